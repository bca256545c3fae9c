// Package load reads entity schemas from YAML catalogs.
package load

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nvt2106/magicstore/schema"
)

// ErrNoCatalog is returned for a directory without catalog files.
var ErrNoCatalog = errors.New("load: no catalog files")

// Path loads the catalog at path. A directory loads every *.yaml and *.yml
// file in it, in lexical order, as one catalog.
func Path(path string) ([]*schema.Entity, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	if !info.IsDir() {
		return schema.LoadCatalogFile(path)
	}
	files, err := Files(path)
	if err != nil {
		return nil, err
	}
	var (
		entities []*schema.Entity
		declared = make(map[string]string)
	)
	for _, file := range files {
		list, err := schema.LoadCatalogFile(file)
		if err != nil {
			return nil, fmt.Errorf("load: %s: %w", filepath.Base(file), err)
		}
		for _, e := range list {
			if prev, ok := declared[e.Name]; ok {
				return nil, fmt.Errorf("load: entity %s declared in %s and %s", e.Name, filepath.Base(prev), filepath.Base(file))
			}
			declared[e.Name] = file
		}
		entities = append(entities, list...)
	}
	return entities, nil
}

// Files returns the catalog files of dir.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoCatalog, dir)
	}
	return files, nil
}
