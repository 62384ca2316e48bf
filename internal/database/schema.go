package database

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultSchemaPath is the schema script applied when no other path is configured.
const DefaultSchemaPath = "schema.sql"

// SchemaSource supplies the optional DDL script run after the database exists.
type SchemaSource interface {
	// Script returns the script text, or ok=false when there is none.
	Script() (script string, ok bool, err error)
}

// FileSchema reads the script from a file. A missing or empty file means no script.
type FileSchema struct {
	Path string
}

func (f FileSchema) Script() (string, bool, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read schema %s: %w", f.Path, err)
	}
	script := string(data)
	if strings.TrimSpace(script) == "" {
		return "", false, nil
	}
	return script, true, nil
}

// StaticSchema is a fixed script, used by tests and embedded deployments.
type StaticSchema string

func (s StaticSchema) Script() (string, bool, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", false, nil
	}
	return string(s), true, nil
}
