// Package config loads settings and exposes typed accessors over the shared configuration.
package config

import (
	"path/filepath"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/tamerlane/library/log"
)

// LoadFromFile loads the configuration file at cfgPath into the shared configuration
// and fills in defaults for keys the file leaves unset.
func LoadFromFile(cfgPath string) error {
	gconfig.Shared.Set("cfg_dir", filepath.Dir(cfgPath))
	if err := gconfig.Shared.LoadFromFile(cfgPath); err != nil {
		return errors.Wrapf(err, "load configuration from %q", cfgPath)
	}
	ApplyDefaults()

	log.Logger.Info("load configuration",
		zap.String("config", cfgPath))
	return nil
}

// ApplyDefaults sets every known key that is still unset to its default value.
func ApplyDefaults() {
	for key, value := range defaults() {
		if gconfig.Shared.Get(key) == nil {
			gconfig.Shared.Set(key, value)
		}
	}
}
