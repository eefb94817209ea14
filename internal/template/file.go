package template

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// File is the JSON coordinate table format for templates: one
// [sx, sy, ex, ey] quadruple per segment.
type File struct {
	Name     string       `json:"name"`
	Segments [][4]float64 `json:"segments"`
}

// Decode parses a JSON coordinate table into a precomputed template.
func Decode(data []byte, maxSegments int) (*Template, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse template JSON: %w", err)
	}
	segs := make([]LineSegment, 0, len(f.Segments))
	for _, q := range f.Segments {
		segs = append(segs, LineSegment{
			Start: Point{X: q[0], Y: q[1]},
			End:   Point{X: q[2], Y: q[3]},
		})
	}
	return FromSegments(f.Name, maxSegments, segs), nil
}

// Encode renders a template as a JSON coordinate table.
func Encode(t *Template) ([]byte, error) {
	f := File{Name: t.Name, Segments: make([][4]float64, 0, t.Len())}
	for _, s := range t.segments {
		f.Segments = append(f.Segments, [4]float64{s.Start.X, s.Start.Y, s.End.X, s.End.Y})
	}
	return json.MarshalIndent(f, "", "  ")
}

// LoadFile reads a JSON coordinate table from disk. A template without a
// name is named after the file.
func LoadFile(p string, maxSegments int) (*Template, error) {
	cleanPath := filepath.Clean(p)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("template file must have .json extension, got %q", ext)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template file: %w", err)
	}
	t, err := Decode(data, maxSegments)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cleanPath, err)
	}
	if t.Name == "" {
		t.Name = strings.TrimSuffix(filepath.Base(cleanPath), ".json")
	}
	return t, nil
}

// SaveFile writes t as a JSON coordinate table.
func SaveFile(p string, t *Template) error {
	data, err := Encode(t)
	if err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	if err := os.WriteFile(p, data, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	return nil
}

// Builtin returns a fresh copy of a built-in template.
func Builtin(name string, maxSegments int) (*Template, error) {
	data, err := builtinFS.ReadFile(path.Join("builtin", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("unknown built-in template %q (have %s)", name, strings.Join(BuiltinNames(), ", "))
	}
	return Decode(data, maxSegments)
}

// BuiltinNames lists the built-in templates in sorted order.
func BuiltinNames() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}
