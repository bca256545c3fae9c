package gen

import (
	"context"
	"go/token"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/nvt2106/magicstore/schema"
)

// DefaultHeader is the header comment of generated files.
const DefaultHeader = "Code generated by magicstore. DO NOT EDIT."

// Config configures Generate.
type Config struct {
	// Target is the output directory.
	Target string
	// Package is the package name of the generated files. Defaults to the
	// base name of Target, reduced to a valid package name.
	Package string
	// Header is the header comment of generated files.
	Header string
	// Workers limits the files written in parallel.
	Workers int
}

func (c *Config) defaults() error {
	if c.Target == "" {
		return NewConfigError("Target", nil, "missing target directory")
	}
	if c.Package == "" {
		c.Package = packageName(filepath.Base(c.Target))
	}
	if !token.IsIdentifier(c.Package) {
		return NewConfigError("Package", c.Package, "package name must be a valid identifier")
	}
	if c.Header == "" {
		c.Header = DefaultHeader
	}
	return nil
}

// packageName derives a package name from a directory name: letters and
// digits are kept and lowercased, and a name that is still not a usable
// identifier falls back to "gen" or gets it as a prefix.
func packageName(dir string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '_':
			return unicode.ToLower(r)
		default:
			return -1
		}
	}, dir)
	switch {
	case name == "" || name == "_" || token.IsKeyword(name):
		return "gen"
	case unicode.IsDigit([]rune(name)[0]):
		return "gen" + name
	}
	return name
}

// Generate validates the schemas and writes one wrapper file per schema.
func Generate(ctx context.Context, cfg Config, schemas []*schema.Entity) (WriterMetrics, error) {
	if err := cfg.defaults(); err != nil {
		return WriterMetrics{}, err
	}
	if err := schema.Validate(schemas); err != nil {
		return WriterMetrics{}, NewGenerationError("parse", "", "invalid schemas", err)
	}
	files := make([]fileTask, 0, len(schemas))
	for _, e := range schemas {
		t := &Type{Entity: e}
		if err := t.check(); err != nil {
			return WriterMetrics{}, err
		}
		files = append(files, fileTask{name: t.File(), file: genEntity(cfg.Package, cfg.Header, t)})
	}
	w := NewWriter(cfg.Target).WithWorkers(cfg.Workers)
	if err := w.WriteAll(ctx, files); err != nil {
		return w.Metrics(), err
	}
	return w.Metrics(), nil
}
