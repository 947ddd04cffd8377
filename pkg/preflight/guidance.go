package preflight

import (
	"fmt"
	"strings"

	"chaincheck/pkg/config"
)

// FormatCheckError formats a failed check result with actionable guidance.
func FormatCheckError(check CheckResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "  %s: %s\n", check.Name, check.Message)
	if check.Error != nil {
		fmt.Fprintf(&sb, "    %v\n", check.Error)
	}
	if g := getGuidance(check); g != "" {
		fmt.Fprintf(&sb, "    %s\n", g)
	}

	return sb.String()
}

// FormatResults formats all preflight results for display.
func FormatResults(results *Results) string {
	var sb strings.Builder

	if results.Passed {
		sb.WriteString("Preflight checks passed\n")
	} else {
		sb.WriteString("Preflight checks failed\n")
	}
	for i := range results.Checks {
		c := results.Checks[i]
		fmt.Fprintf(&sb, "  [%s] %s: %s\n", strings.ToUpper(string(c.Status)), c.Name, c.Message)
	}
	sb.WriteString(results.Summary)
	sb.WriteString("\n")

	return sb.String()
}

// getGuidance returns actionable guidance for fixing a failed or warned check.
func getGuidance(check CheckResult) string {
	switch {
	case check.Name == nameBuildInfo:
		return "Rebuild with module support enabled (GO111MODULE=on)."
	case strings.HasPrefix(check.Name, nameProviders+"/"):
		return "Set provider to one of: " + strings.Join(knownProviders(), ", ")
	case check.Name == "credential":
		switch check.Provider {
		case config.ProviderCohere:
			return "Set COHERE_API_KEY (or point CHAINCHECK_API_KEY_ENV at another variable): https://dashboard.cohere.com/api-keys"
		case config.ProviderOpenAI:
			return "Set OPENAI_API_KEY: https://platform.openai.com/api-keys"
		case config.ProviderAnthropic:
			return "Set ANTHROPIC_API_KEY: https://console.anthropic.com/"
		case config.ProviderGoogle:
			return "Set GOOGLE_GENAI_API_KEY: https://aistudio.google.com/apikey"
		}
	case check.Status == StatusFail && check.Provider != "":
		return "Rebuild chaincheck; the provider SDK is missing from this binary."
	}
	return ""
}

func knownProviders() []string {
	return []string{
		config.ProviderCohere,
		config.ProviderOpenAI,
		config.ProviderAnthropic,
		config.ProviderGoogle,
		config.ProviderOllama,
	}
}
