// Package transform holds the pure list summarizer used to self-test the runnable pipeline.
package transform

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"chaincheck/pkg/chain"
)

// ErrNotSequence is wrapped by TypeError.
var ErrNotSequence = errors.New("input is not a sequence")

// TypeError reports an input that is not a slice or array.
type TypeError struct {
	Got string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("summarize expects a list of items, got %s", e.Got)
}

func (e *TypeError) Unwrap() error {
	return ErrNotSequence
}

// Summary describes one input element.
type Summary struct {
	Original string `json:"original"`
	Upper    string `json:"upper"`
	Length   int    `json:"length"`
}

// Summarize maps every element of a slice or array to its Summary, in order.
// Elements are rendered with fmt.Sprint. Length counts characters, not bytes.
func Summarize(items any) ([]Summary, error) {
	if items == nil {
		return nil, &TypeError{Got: "nil"}
	}

	v := reflect.ValueOf(items)
	if k := v.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, &TypeError{Got: v.Type().String()}
	}

	out := make([]Summary, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		s := fmt.Sprint(v.Index(i).Interface())
		out = append(out, Summary{
			Original: s,
			Upper:    strings.ToUpper(s),
			Length:   utf8.RuneCountInString(s),
		})
	}
	return out, nil
}

// Runnable exposes Summarize as a pipeline step.
func Runnable() chain.Runnable[any, []Summary] {
	return chain.Lambda(Summarize)
}
