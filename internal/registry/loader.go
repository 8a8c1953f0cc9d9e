package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"wromgpt/internal/common/fsutil"
)

// ErrModelNotFound is returned by Resolve when no file matches the model name.
var ErrModelNotFound = errors.New("model not found")

const modelExt = ".gguf"

// Model is a model file discovered on disk.
type Model struct {
	// Name is the file name without the .gguf extension.
	Name string
	Path string
}

// LoadDir scans a directory for *.gguf files, sorted by name.
func LoadDir(dir string) ([]Model, error) {
	abs, err := absDir(dir)
	if err != nil {
		return nil, err
	}
	if !fsutil.PathExists(abs) {
		return nil, fmt.Errorf("models dir %s does not exist", abs)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), modelExt) {
			continue
		}
		models = append(models, Model{Name: strings.TrimSuffix(name, filepath.Ext(name)), Path: filepath.Join(abs, name)})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// Resolve maps a model name to a model file. name may be a path to an
// existing file; otherwise it is looked up in dir as "<name>", "<name>.gguf"
// or, failing those, by case-insensitive file stem.
func Resolve(dir, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty model name", ErrModelNotFound)
	}
	if p, err := fsutil.ExpandHome(name); err == nil && fsutil.IsFile(p) {
		return filepath.Abs(p)
	}
	abs, err := absDir(dir)
	if err != nil {
		return "", err
	}
	for _, cand := range []string{name, name + modelExt} {
		p := filepath.Join(abs, cand)
		if fsutil.IsFile(p) {
			return p, nil
		}
	}
	models, err := LoadDir(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s (%v)", ErrModelNotFound, name, err)
	}
	for _, m := range models {
		if strings.EqualFold(m.Name, strings.TrimSuffix(name, modelExt)) {
			return m.Path, nil
		}
	}
	avail := make([]string, 0, len(models))
	for _, m := range models {
		avail = append(avail, m.Name)
	}
	return "", fmt.Errorf("%w: %s in %s (available: %s)", ErrModelNotFound, name, abs, strings.Join(avail, ", "))
}

func absDir(dir string) (string, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	return abs, nil
}
