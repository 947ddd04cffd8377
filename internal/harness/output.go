package harness

import (
	"io"
	"os"

	"golang.org/x/term"

	"chaincheck/pkg/config"
)

const (
	ansiBold  = "\033[1m"
	ansiReset = "\033[0m"
)

// style decorates headers when stdout is an interactive terminal. Piped output
// stays plain so it can be diffed and parsed.
type style struct {
	bold bool
}

func styleFor(w io.Writer) style {
	f, ok := w.(*os.File)
	if !ok {
		return style{}
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return style{}
	}
	return style{bold: term.IsTerminal(int(f.Fd()))}
}

func (s style) header(text string) string {
	if !s.bold {
		return text
	}
	return ansiBold + text + ansiReset
}

func agentHeader(s style, title string) string {
	return "\n" + s.header("--- "+title+" ---")
}

// providerTitle is the display name used in user-facing messages.
func providerTitle(provider string) string {
	switch provider {
	case config.ProviderCohere:
		return "Cohere"
	case config.ProviderOpenAI:
		return "OpenAI"
	case config.ProviderAnthropic:
		return "Anthropic"
	case config.ProviderGoogle:
		return "Google"
	case config.ProviderOllama:
		return "Ollama"
	default:
		return provider
	}
}
