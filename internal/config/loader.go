package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

const includeKey = "$include"

// LoadRaw reads path into a merged raw map, resolving $include directives.
func LoadRaw(path string) (map[string]any, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	seen := map[string]bool{}
	return loadRawRecursive(path, seen)
}

// loadRawRecursive loads one TOML file, resolving $include directives with
// cycle detection, after expanding ${VAR}/$VAR references.
func loadRawRecursive(path string, seen map[string]bool) (map[string]any, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if seen[absPath] {
		return nil, fmt.Errorf("config include cycle detected at %s", absPath)
	}
	seen[absPath] = true
	defer delete(seen, absPath)

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	expanded := os.ExpandEnv(string(data))

	var raw map[string]any
	if err := toml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", absPath, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	includes, err := extractIncludes(raw)
	if err != nil {
		return nil, err
	}

	merged := map[string]any{}
	if len(includes) > 0 {
		baseDir := filepath.Dir(absPath)
		for _, inc := range includes {
			if strings.TrimSpace(inc) == "" {
				continue
			}
			incPath := inc
			if !filepath.IsAbs(incPath) {
				incPath = filepath.Join(baseDir, incPath)
			}
			incRaw, err := loadRawRecursive(incPath, seen)
			if err != nil {
				return nil, err
			}
			merged = mergeMaps(merged, incRaw)
		}
	}

	merged = mergeMaps(merged, raw)
	return merged, nil
}

func extractIncludes(raw map[string]any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}
	includeVal, ok := raw[includeKey]
	if !ok {
		return nil, nil
	}
	delete(raw, includeKey)

	switch typed := includeVal.(type) {
	case string:
		return []string{typed}, nil
	case []string:
		return typed, nil
	case []any:
		paths := make([]string, 0, len(typed))
		for _, entry := range typed {
			value, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("$include entries must be strings")
			}
			paths = append(paths, value)
		}
		return paths, nil
	default:
		return nil, fmt.Errorf("$include must be a string or list of strings")
	}
}

func mergeMaps(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = map[string]any{}
	}
	for key, value := range src {
		if valueMap, ok := value.(map[string]any); ok {
			if existing, ok := dst[key].(map[string]any); ok {
				dst[key] = mergeMaps(existing, valueMap)
				continue
			}
		}
		dst[key] = value
	}
	return dst
}

// decodeRawConfig turns a merged raw map into a Config. The [provider]
// table is handled by hand because its sub-tables are keyed by provider
// name rather than by a fixed field name ([provider.anthropic], not
// [provider.providers.anthropic]); everything else round-trips through a
// strict TOML decode.
func decodeRawConfig(raw map[string]any) (*Config, error) {
	cfg := &Config{}

	if providerRaw, ok := raw["provider"].(map[string]any); ok {
		if def, ok := providerRaw["default"].(string); ok {
			cfg.Provider.Default = def
		}
		cfg.Provider.Providers = map[string]ProviderConfig{}
		for name, v := range providerRaw {
			if name == "default" {
				continue
			}
			sub, ok := v.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("provider.%s must be a table", name)
			}
			pc, err := decodeProviderConfig(sub)
			if err != nil {
				return nil, fmt.Errorf("provider.%s: %w", name, err)
			}
			cfg.Provider.Providers[name] = pc
		}
		delete(raw, "provider")
	}

	payload, err := toml.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("serialize config: %w", err)
	}
	decoder := toml.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	var rest Config
	if err := decoder.Decode(&rest); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Omega = rest.Omega
	cfg.Auth = rest.Auth
	cfg.Channel = rest.Channel
	cfg.Memory = rest.Memory
	cfg.Heartbeat = rest.Heartbeat
	cfg.Scheduler = rest.Scheduler
	cfg.Sandbox = rest.Sandbox
	return cfg, nil
}

func decodeProviderConfig(sub map[string]any) (ProviderConfig, error) {
	payload, err := toml.Marshal(sub)
	if err != nil {
		return ProviderConfig{}, err
	}
	var pc ProviderConfig
	decoder := toml.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&pc); err != nil {
		return ProviderConfig{}, err
	}
	return pc, nil
}
