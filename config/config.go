// Package config loads default flag values from a YAML file, so that the
// gzinflate CLI can be configured without repeating long-lived flags on
// every invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v2"
)

// DefaultPath returns $XDG_CONFIG_HOME/gzinflate/config.yaml, falling back
// to $HOME/.config/gzinflate/config.yaml when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "gzinflate", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "gzinflate", "config.yaml")
}

// Load reads path and returns its parsed contents. A missing file is not an
// error; it yields an empty config so callers can rely solely on flag
// defaults and command-line overrides.
func Load(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	conf := make(map[string]string)
	if err := yaml.Unmarshal(raw, conf); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return conf, nil
}

// SetFlagsFromYaml visits every flag registered in fs and, for any flag not
// already set on the command line, looks up REPLACE(UPPERCASE(name), '-',
// '_') in conf and applies it as the flag's value. fs is a *pflag.FlagSet
// because cmd/gzinflate is a cobra command; pflag.Flag.Changed makes the
// already-set check a direct lookup instead of the stdlib flag package's
// Visit-only-set-flags idiom.
func SetFlagsFromYaml(fs *pflag.FlagSet, conf map[string]string) (err error) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			return
		}
		key := strings.ToUpper(f.Name)
		key = strings.ReplaceAll(key, "-", "_")
		val, ok := conf[key]
		if !ok {
			return
		}
		if serr := fs.Set(f.Name, val); serr != nil {
			err = fmt.Errorf("config: invalid value %q for %s: %w", val, key, serr)
		}
	})
	return
}
