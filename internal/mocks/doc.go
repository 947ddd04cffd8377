// Package mocks provides shared mock implementations for testing.
//
// # Usage
//
//	import "chaincheck/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    mockLLM := mocks.NewMockLLMClient()
//	    mockLLM.RespondWith("test response")
//	    // Use mockLLM in test...
//	}
//
// # Available Mocks
//
//   - MockLLMClient: Mock for the llm.LLMClient interface
package mocks

import "strings"

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
