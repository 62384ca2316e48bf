package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Source resolves configuration variables by name.
// An empty value is treated the same as an absent one and falls back to the default.
type Source interface {
	Lookup(key string) (string, bool)
}

// MapSource is a Source backed by a plain map, mostly used by tests and the Vault overlay.
type MapSource map[string]string

func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// EnvSource reads from the process environment.
type EnvSource struct{}

func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

type layered []Source

// Layered returns a Source that consults each source in order and returns the first
// non-empty value. When every source that has the key holds "", the key is still
// reported present with an empty value.
func Layered(sources ...Source) Source {
	return layered(sources)
}

func (l layered) Lookup(key string) (string, bool) {
	found := false
	for _, s := range l {
		if s == nil {
			continue
		}
		v, ok := s.Lookup(key)
		if !ok {
			continue
		}
		found = true
		if v != "" {
			return v, true
		}
	}
	return "", found
}

// DotEnv reads a .env file into a MapSource without touching the process environment.
// A missing file yields an empty source.
func DotEnv(path string) (MapSource, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return MapSource{}, nil
		}
		return nil, fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return MapSource(values), nil
}
