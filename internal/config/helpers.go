package config

import (
	"fmt"
	"path/filepath"

	"zerodte-api/pkg/confkit"
	"zerodte-api/pkg/market"
)

// MustLoadMarket loads etc/market.yaml from the project root and panics on error.
// Tools use it when the main config does not reference a market file.
func MustLoadMarket() *market.Config {
	path := filepath.Join(confkit.MustProjectRoot(), "etc", "market.yaml")
	cfg, err := market.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
	return cfg
}
