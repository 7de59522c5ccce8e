package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jwebster45206/page-engine/pkg/storage"
	"github.com/jwebster45206/page-engine/pkg/world"
)

// WorldDir lists the world files kept in a directory.
type WorldDir struct {
	Dir    string
	Logger *slog.Logger
}

var _ storage.WorldLister = WorldDir{}

func (d WorldDir) ListWorlds(ctx context.Context) ([]storage.WorldSummary, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return ListWorlds(d.Dir, logger)
}

// FindWorldFiles returns every .json, .yaml and .yml file under dir, sorted.
func FindWorldFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk worlds directory: %w", err)
	}
	slices.Sort(files)
	return files, nil
}

// WorldName is the definition's name, or the file stem when it has none.
func WorldName(def world.Definition, path string) string {
	if def.Name != "" {
		return def.Name
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// ListWorlds summarizes every decodable world file under dir, ordered by
// file. Files that fail to decode are logged and left out; cmd/validate is
// the place to find out why.
func ListWorlds(dir string, logger *slog.Logger) ([]storage.WorldSummary, error) {
	files, err := FindWorldFiles(dir)
	if err != nil {
		logger.Error("Failed to list worlds", "dir", dir, "error", err)
		return nil, err
	}

	worlds := make([]storage.WorldSummary, 0, len(files))
	for _, path := range files {
		def, err := world.ReadFile(path)
		if err != nil {
			logger.Warn("Skipping unreadable world file", "path", path, "error", err)
			continue
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}
		worlds = append(worlds, storage.WorldSummary{
			Name:      WorldName(def, path),
			File:      rel,
			Start:     def.Start,
			Locations: len(def.Locations),
		})
	}
	return worlds, nil
}
