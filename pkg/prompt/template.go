// Package prompt renders chat prompt templates with named {placeholder} variables.
//
// A template is an ordered list of role-tagged message texts. Braces are doubled to
// produce a literal brace: "{{" renders "{" and "}}" renders "}".
package prompt

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"chaincheck/pkg/llm"
)

// Values maps placeholder names to their substitutions.
type Values map[string]string

// Pair is a role and a message template.
// Accepted roles: system, human or user, ai or assistant.
type Pair struct {
	Role string
	Text string
}

// ParseError reports a malformed template.
type ParseError struct {
	Text   string
	Reason string
	Offset int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid prompt template at offset %d: %s", e.Offset, e.Reason)
}

// MissingVariableError names every placeholder absent from the supplied values.
type MissingVariableError struct {
	Missing []string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing prompt variables: %s", strings.Join(e.Missing, ", "))
}

type segment struct {
	literal string
	name    string // non-empty for a placeholder
}

type message struct {
	role     llm.CompletionRole
	segments []segment
}

// ChatTemplate is an immutable, parsed chat prompt.
type ChatTemplate struct {
	messages  []message
	variables []string
}

// FromMessages parses a chat template. Errors are returned at construction time so
// a bad template never reaches a model call.
func FromMessages(pairs ...Pair) (*ChatTemplate, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("prompt template needs at least one message")
	}

	seen := make(map[string]bool)
	tmpl := &ChatTemplate{}
	for _, p := range pairs {
		role, err := parseRole(p.Role)
		if err != nil {
			return nil, err
		}
		segs, err := parse(p.Text)
		if err != nil {
			return nil, err
		}
		for _, s := range segs {
			if s.name != "" && !seen[s.name] {
				seen[s.name] = true
				tmpl.variables = append(tmpl.variables, s.name)
			}
		}
		tmpl.messages = append(tmpl.messages, message{role: role, segments: segs})
	}
	sort.Strings(tmpl.variables)
	return tmpl, nil
}

// MustFromMessages is FromMessages for templates known at compile time.
func MustFromMessages(pairs ...Pair) *ChatTemplate {
	tmpl, err := FromMessages(pairs...)
	if err != nil {
		panic(err)
	}
	return tmpl
}

func parseRole(role string) (llm.CompletionRole, error) {
	switch strings.ToLower(role) {
	case "system":
		return llm.RoleSystem, nil
	case "human", "user":
		return llm.RoleUser, nil
	case "ai", "assistant":
		return llm.RoleAssistant, nil
	default:
		return "", fmt.Errorf("unknown prompt role %q", role)
	}
}

func parse(text string) ([]segment, error) {
	var segs []segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		switch c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, &ParseError{Text: text, Offset: i, Reason: "unclosed '{'"}
			}
			name := strings.TrimSpace(text[i+1 : i+1+end])
			if name == "" {
				return nil, &ParseError{Text: text, Offset: i, Reason: "empty placeholder name"}
			}
			if strings.ContainsAny(name, "{") {
				return nil, &ParseError{Text: text, Offset: i, Reason: "nested '{' in placeholder"}
			}
			flush()
			segs = append(segs, segment{name: name})
			i += end + 1
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, &ParseError{Text: text, Offset: i, Reason: "single '}' must be escaped as '}}'"}
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return segs, nil
}

// Variables returns the sorted set of placeholder names.
func (t *ChatTemplate) Variables() []string {
	return append([]string(nil), t.variables...)
}

// Format substitutes values into every message. Extra values are ignored.
func (t *ChatTemplate) Format(values Values) ([]llm.CompletionMessage, error) {
	var missing []string
	for _, name := range t.variables {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingVariableError{Missing: missing}
	}

	out := make([]llm.CompletionMessage, 0, len(t.messages))
	for _, m := range t.messages {
		var b strings.Builder
		for _, s := range m.segments {
			if s.name != "" {
				b.WriteString(values[s.name])
			} else {
				b.WriteString(s.literal)
			}
		}
		out = append(out, llm.CompletionMessage{Role: m.role, Content: b.String()})
	}
	return out, nil
}

// Invoke lets a template head a chain pipeline.
func (t *ChatTemplate) Invoke(_ context.Context, values Values) ([]llm.CompletionMessage, error) {
	return t.Format(values)
}
