// Command chaincheck verifies that the prompt-chain runtime and a chat-completion
// provider are wired and working, then exercises three prompt agents.
//
// Exit codes: 0 success, 1 dependency or configuration failure, 2 transform
// failure, 3 model client failure. Agent failures are reported but do not change
// the exit code.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"chaincheck/pkg/logx"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run contains the main application logic and returns an exit code.
// This allows defers to execute before os.Exit is called.
func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer logx.Sync()

	exitCode := 0
	root := newRootCommand(&exitCode, &flags{})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = io.WriteString(stderr, "Error: "+err.Error()+"\n")
		if exitCode == 0 {
			exitCode = 1
		}
	}
	return exitCode
}
