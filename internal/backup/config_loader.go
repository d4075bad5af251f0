package backup

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigLoader handles loading and saving backup configuration files.
type ConfigLoader struct {
	configPath string
}

// NewConfigLoader creates a new configuration loader.
func NewConfigLoader(configPath string) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
	}
}

// LoadOptions loads options from the YAML file, then applies environment
// overrides and defaults. A missing file is not an error; the recommended
// defaults apply. Validation is deferred to NewService so callers can still
// override directories after loading.
func (cl *ConfigLoader) LoadOptions() (*Options, error) {
	opts := &Options{
		Enabled:             true,
		SafetyBackup:        true,
		ValidateAfterCreate: true,
		Compression:         CompressionOptions{Enabled: true},
	}

	if cl.configPath != "" {
		if err := cl.loadFromFile(opts); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	opts.LoadFromEnvironment()
	opts.SetDefaults()
	return opts, nil
}

func (cl *ConfigLoader) loadFromFile(opts *Options) error {
	if _, err := os.Stat(cl.configPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(cl.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cl.configPath, err)
	}

	if err := yaml.Unmarshal(data, opts); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// SaveOptions writes the options to the YAML file.
func (cl *ConfigLoader) SaveOptions(opts *Options) error {
	if err := opts.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid configuration: %w", err)
	}

	dir := filepath.Dir(cl.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(cl.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
