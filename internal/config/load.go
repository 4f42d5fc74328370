package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/benchalot/benchalot/internal/errkind"
)

// Load reads and validates a configuration file from path. Environment
// variables in the raw file (`${VAR}`) are expanded before YAML decoding,
// the same order of operations chaos-utils' config loader uses, so that
// `{{}}` template placeholders (resolved later, per variable binding) and
// `${}` shell-style environment placeholders (resolved here, once) never
// collide.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, errkind.IO)
	}

	cfg := Default()
	if err := yaml.Unmarshal(expandEnv(raw), &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %v: %w", path, err, errkind.Configuration)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// expandEnv expands ${VAR} references, leaving `{{...}}` template
// placeholders and bare `$VAR`/`$?` shell references untouched so commands
// still see them at run time.
func expandEnv(raw []byte) []byte {
	return envRef.ReplaceAllFunc(raw, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

var envRef = regexp.MustCompile(`\$\{[A-Za-z_][A-Za-z0-9_]*\}`)

// Save writes cfg back to path using the same encoder used for loading, so
// that `--split` output and any round-tripped config stay byte-stable
// modulo key order.
func Save(cfg Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing config %s: %w", path, errkind.IO)
	}
	defer f.Close()

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	defer enc.Close()

	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config %s: %w", path, errkind.IO)
	}
	return nil
}
