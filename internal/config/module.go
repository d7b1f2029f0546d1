package config

import (
	_ "embed"
	"os"
	"path/filepath"

	"github.com/dmitryduka/cellvm/internal/logging"
)

//go:embed schema.cue
var schema string

// Module provides Loader via dscope, searching for cellvm.cue/.cellvm.cue
// in the working directory, the user config dir, and /etc, in that order —
// the same three-tier search the teacher's ConfigsLoader provider uses.
type Module struct{}

func (Module) Loader(logger logging.Logger) Loader {
	var paths []string
	defer func() {
		if len(paths) > 0 {
			logger.Info("config file", "paths", paths)
		}
	}()

	filenames := []string{"cellvm.cue", ".cellvm.cue"}

	if workingDir, err := os.Getwd(); err == nil {
		for _, filename := range filenames {
			path := filepath.Join(workingDir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		for _, filename := range filenames {
			path := filepath.Join(configDir, filename)
			if _, err := os.Stat(path); err == nil {
				paths = append(paths, path)
			}
		}
	}

	for _, filename := range filenames {
		path := filepath.Join("/etc", filename)
		if _, err := os.Stat(path); err == nil {
			paths = append(paths, path)
		}
	}

	loader := NewLoader(paths, schema)
	if err := loader.Validate(); err != nil {
		logger.Warn("config file invalid, using flags and defaults only", "error", err)
	}
	return loader
}
