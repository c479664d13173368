package prefabs

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed defaults/*.yaml
var DefaultsFS embed.FS

// Documents lists the files that make up a config snapshot.
var Documents = []string{ArchetypesFile, FactionsFile, BehaviorTreesFile}

// LoadDocument reads name from dir, falling back to the embedded default when
// the file does not exist on disk. An empty dir reads defaults only.
func LoadDocument(dir, name string) ([]byte, error) {
	if dir != "" {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("prefabs: load %s: %w", name, err)
		}
	}
	data, err := DefaultsFS.ReadFile("defaults/" + name)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load default %s: %w", name, err)
	}
	return data, nil
}

// LoadDir builds a snapshot from dir, filling missing documents from the
// embedded defaults.
func LoadDir(dir string) (*Config, error) {
	docs := make(map[string][]byte, len(Documents))
	for _, name := range Documents {
		data, err := LoadDocument(dir, name)
		if err != nil {
			return nil, &ConfigError{Path: dir, Errors: []string{err.Error()}}
		}
		docs[name] = data
	}
	source := dir
	if source == "" {
		source = "embedded"
	}
	return Build(source, docs)
}

// LoadDefaults builds the snapshot shipped with the binary.
func LoadDefaults() (*Config, error) {
	return LoadDir("")
}
