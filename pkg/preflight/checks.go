package preflight

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"chaincheck/pkg/chain"
	"chaincheck/pkg/config"
	"chaincheck/pkg/providers"
)

// Check names double as the import path being probed.
const (
	nameBuildInfo = "runtime/debug"
	nameRuntime   = "chaincheck/pkg/chain"
	nameProviders = "chaincheck/pkg/providers"
)

// checkBuildInfo verifies the binary carries module information.
func checkBuildInfo(read func() (*debug.BuildInfo, bool)) (*debug.BuildInfo, CheckResult) {
	result := CheckResult{Name: nameBuildInfo}

	info, ok := read()
	if !ok || info == nil {
		result.Status = StatusFail
		result.Message = "build info unavailable"
		result.Error = errors.New("binary was built without module support")
		return nil, result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s built with %s", info.Path, info.GoVersion)
	return info, result
}

// checkRuntime round-trips a value through a two-stage runnable pipeline.
func checkRuntime(ctx context.Context) CheckResult {
	result := CheckResult{Name: nameRuntime}

	upper := chain.Lambda(func(s string) (string, error) { return strings.ToUpper(s), nil })
	length := chain.Lambda(func(s string) (int, error) { return len(s), nil })

	n, err := chain.Pipe(upper, length).Invoke(ctx, "probe")
	if err != nil {
		result.Status = StatusFail
		result.Message = "runnable pipeline failed"
		result.Error = err
		return result
	}
	if n != len("probe") {
		result.Status = StatusFail
		result.Message = "runnable pipeline returned the wrong value"
		result.Error = fmt.Errorf("pipeline produced %d, want %d", n, len("probe"))
		return result
	}

	result.Status = StatusPass
	result.Message = "runnable pipeline is functional"
	return result
}

// checkProviderRegistered verifies a constructor exists for the provider.
func checkProviderRegistered(registry *providers.Registry, provider string) CheckResult {
	result := CheckResult{Name: nameProviders + "/" + provider, Provider: provider}

	if registry == nil {
		result.Status = StatusFail
		result.Message = "no provider registry"
		result.Error = errors.New("provider registry is nil")
		return result
	}
	if _, ok := registry.Lookup(provider); !ok {
		result.Status = StatusFail
		result.Message = "provider is not registered"
		result.Error = fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(registry.Names(), ", "))
		return result
	}

	result.Status = StatusPass
	result.Message = "provider constructor registered"
	return result
}

// checkSDKModule verifies the provider's SDK is linked and reports its version.
func checkSDKModule(info *debug.BuildInfo, provider string) CheckResult {
	path, ok := SDKModules[provider]
	result := CheckResult{Name: path, Provider: provider}
	if !ok {
		result.Name = provider
		result.Status = StatusFail
		result.Message = "no SDK known for provider"
		result.Error = fmt.Errorf("no SDK module mapped for provider %q", provider)
		return result
	}

	v := moduleVersion(info, path)
	if v == "" {
		result.Status = StatusFail
		result.Message = "SDK module not linked"
		result.Error = fmt.Errorf("module %s not found in build info", path)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s %s", path, v)
	return result
}

// checkCredential warns when the provider's key variable is empty. It never fails.
func checkCredential(cfg *config.Config) CheckResult {
	result := CheckResult{Name: "credential", Provider: cfg.Provider, Status: StatusPass}

	name := cfg.KeyEnv()
	if name == "" {
		result.Message = "no credential required"
		return result
	}
	if cfg.APIKey() == "" {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s not set", name)
		result.Error = fmt.Errorf("missing %s", name)
		return result
	}

	result.Message = fmt.Sprintf("%s is set", name)
	return result
}

// moduleVersion returns the resolved version of a dependency, honoring replace
// directives, or "" when the module is not linked.
func moduleVersion(info *debug.BuildInfo, path string) string {
	if info == nil {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path != path {
			continue
		}
		if dep.Replace != nil {
			if dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Replace.Path
		}
		return dep.Version
	}
	return ""
}
