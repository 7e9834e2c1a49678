package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultDotEnvFiles are tried in order; local overrides win because godotenv never
// replaces a variable that is already set.
var DefaultDotEnvFiles = []string{".env.local", ".env"}

// LoadDotEnv loads every existing file in paths into the process environment and
// returns the ones it read. Missing files are skipped.
func LoadDotEnv(paths ...string) ([]string, error) {
	var loaded []string
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return loaded, fmt.Errorf("failed to load %s: %w", p, err)
		}
		loaded = append(loaded, p)
	}
	return loaded, nil
}
