/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package appconfig provides a format-agnostic key/value view over an
// application configuration file. YAML documents and flat properties files
// are both supported; merging new values keeps every unrelated key, comment
// and the file's original layout.
package appconfig

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/faroshq/idp-bootstrap/pkg/util/fsutil"
)

// Format identifies the on-disk syntax of a configuration file.
type Format string

const (
	// FormatYAML is a YAML document tree.
	FormatYAML Format = "yaml"
	// FormatProperties is a flat key=value list.
	FormatProperties Format = "properties"
)

// Source is a dotted-key view over a configuration file.
type Source interface {
	// Format reports the syntax the source was loaded from and will be written as.
	Format() Format
	// Get looks up a dotted key. A missing key is not an error.
	Get(key string) (string, bool)
	// Keys lists the dotted keys holding values, in file order.
	Keys() []string
	// Merge sets every entry, overwriting existing values in place and
	// appending missing keys. It reports whether the content changed.
	Merge(entries map[string]string) (bool, error)
	// CanMerge reports an error when any of keys could not be set without
	// restructuring existing content. Merge performs the same check.
	CanMerge(keys []string) error
	// Encode serializes the source back to its original format.
	Encode() ([]byte, error)
}

// FormatError reports content that is not parseable in any supported format.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration file %s: %v", e.Path, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Load reads and parses the configuration file at path. A file that does not
// exist yields an empty source whose format is chosen from the file extension.
func Load(path string) (Source, error) {
	data, _, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, data)
}

// Parse detects the format of data and parses it. The file name extension
// decides when it is .yml, .yaml or .properties; otherwise the content is
// tried as a YAML mapping first and as a properties list second.
func Parse(name string, data []byte) (Source, error) {
	switch formatFromName(name) {
	case FormatYAML:
		src, err := parseYAML(data)
		if err != nil {
			return nil, &FormatError{Path: name, Err: err}
		}
		return src, nil
	case FormatProperties:
		return parseProperties(data), nil
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return parseYAML(data)
	}
	src, yamlErr := parseYAML(data)
	if yamlErr == nil {
		return src, nil
	}
	if looksLikeProperties(data) {
		return parseProperties(data), nil
	}
	return nil, &FormatError{Path: name, Err: fmt.Errorf("neither YAML nor properties: %w", yamlErr)}
}

// Write serializes src and replaces the file at path with it. The original
// file is left untouched unless the new content is completely written.
func Write(src Source, path string) error {
	data, err := src.Encode()
	if err != nil {
		return fmt.Errorf("encoding %s configuration: %w", src.Format(), err)
	}
	return fsutil.WriteFileAtomic(path, data, 0o644, 0o755)
}

// Locate returns the configuration file to use inside projectDir. The
// candidates are checked in order and the first existing one wins; when none
// exists the first candidate is returned.
func Locate(projectDir string, candidates ...string) string {
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, c := range candidates {
		p := filepath.Join(projectDir, c)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return filepath.Join(projectDir, candidates[0])
}

// DefaultCandidates are the project-relative configuration files Locate checks.
var DefaultCandidates = []string{
	filepath.Join("src", "main", "resources", "application.yml"),
	filepath.Join("src", "main", "resources", "application.yaml"),
	filepath.Join("src", "main", "resources", "application.properties"),
}

func formatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yml", ".yaml":
		return FormatYAML
	case ".properties":
		return FormatProperties
	}
	return ""
}

// looksLikeProperties reports whether every significant line is a comment or
// holds a key/value separator.
func looksLikeProperties(data []byte) bool {
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' || line[0] == '!' {
			continue
		}
		if !strings.ContainsAny(line, "=:") {
			return false
		}
	}
	return true
}

func sortedKeys(entries map[string]string) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
