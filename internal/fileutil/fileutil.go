// Package fileutil writes command output to disk.
package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileExists checks if a regular file exists at the given path
func FileExists(filePath string) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WriteFileWithOverwrite writes data to a file, respecting the overwrite flag.
// Returns true if the file was written, false if it was skipped.
func WriteFileWithOverwrite(filePath string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if FileExists(filePath) && !overwrite {
		slog.Info("File already exists, skipping", "filename", filePath)
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return false, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, perm); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	slog.Info("Wrote file", "filename", filePath, "bytes", len(data))
	return true, nil
}

// WriteJSONFile writes data as indented JSON.
func WriteJSONFile(data any, filePath string, overwrite bool) (bool, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return WriteFileWithOverwrite(filePath, append(jsonData, '\n'), 0o644, overwrite)
}

// WriteYAMLFile writes data as YAML.
func WriteYAMLFile(data any, filePath string, overwrite bool) (bool, error) {
	yamlData, err := yaml.Marshal(data)
	if err != nil {
		return false, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return WriteFileWithOverwrite(filePath, yamlData, 0o644, overwrite)
}

// WriteDataFile picks JSON or YAML from the file extension.
func WriteDataFile(data any, filePath string, overwrite bool) (bool, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		return WriteJSONFile(data, filePath, overwrite)
	case ".yaml", ".yml":
		return WriteYAMLFile(data, filePath, overwrite)
	default:
		return false, fmt.Errorf("unsupported output file extension %q (want .json, .yaml or .yml)", filepath.Ext(filePath))
	}
}
