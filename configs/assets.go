package configs

import (
	_ "embed"
)

// ConfigFile the default config, written out with --init
//
//go:embed config.yaml
var ConfigFile string
