package cmd

import (
	"fmt"

	"github.com/mattsolo1/grove-core/config"
)

//go:generate sh -c "cd .. && go run ./tools/schema-generator/"

// VCTConfig defines the structure for the 'vct' section in grove.yml.
type VCTConfig struct {
	BaseURL   string `yaml:"base_url" jsonschema:"description=Assistant API endpoint"`
	Parallel  int    `yaml:"parallel" jsonschema:"description=Assistants processed at once by batch commands"`
	OutputDir string `yaml:"output_dir" jsonschema:"description=Directory for fetched and recomposed assistant files"`
}

// loadVCTConfig loads the core grove config and unmarshals the 'vct' extension.
func loadVCTConfig() (*VCTConfig, error) {
	coreCfg, err := config.LoadFrom(".")
	if err != nil {
		// A missing grove.yml just means defaults.
		coreCfg = &config.Config{}
	}

	var vctCfg VCTConfig
	if err := coreCfg.UnmarshalExtension("vct", &vctCfg); err != nil {
		return nil, fmt.Errorf("failed to parse 'vct' configuration from grove.yml: %w", err)
	}
	return &vctCfg, nil
}
