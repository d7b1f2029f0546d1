// Package config loads and schema-validates the optional cellvm.cue /
// .cellvm.cue configuration file, grounded on the teacher's configs and
// taiconfigs packages' use of cuelang.org/go: a CUE schema compiled once,
// config files unified against it and validated. Unlike the teacher's
// configs.Loader, which exposes a generic AssignFirst(path string, target
// any)/First[T] pair good for arbitrary CUE paths, cellvm's config surface
// is four known settings (heap_size, stack_size, optimize, jit), so Loader
// decodes each file straight into a Settings struct and exposes one typed
// accessor per setting instead of a path-string API.
package config

import (
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Settings is the decoded shape of a cellvm.cue file. Every field is
// optional; when more than one candidate file exists (internal/config's
// search order is cwd, then user config dir, then /etc) the earliest file
// that sets a given field wins, field by field.
type Settings struct {
	HeapSize  *int64 `json:"heap_size"`
	StackSize *int64 `json:"stack_size"`
	Optimize  *bool  `json:"optimize"`
	JIT       *bool  `json:"jit"`
}

func (s *Settings) fillFrom(other Settings) {
	if s.HeapSize == nil {
		s.HeapSize = other.HeapSize
	}
	if s.StackSize == nil {
		s.StackSize = other.StackSize
	}
	if s.Optimize == nil {
		s.Optimize = other.Optimize
	}
	if s.JIT == nil {
		s.JIT = other.JIT
	}
}

// Loader resolves the merged Settings across every candidate config file,
// each validated against the same schema, in search order.
type Loader struct {
	resolve func() (Settings, error)
}

// NewLoader builds a Loader over filePaths (files that don't exist are
// simply absent from the result — callers pre-filter with os.Stat, matching
// the teacher's search-path convention). schemaSrc, if non-empty, is
// compiled as a closed CUE struct and every file is unified against it
// before being decoded.
func NewLoader(filePaths []string, schemaSrc string) Loader {
	return Loader{
		resolve: sync.OnceValues(func() (Settings, error) {
			ctx := cuecontext.New()

			var schema cue.Value
			if schemaSrc != "" {
				schema = ctx.CompileString("close({" + schemaSrc + "})")
				if err := schema.Err(); err != nil {
					return Settings{}, err
				}
			}

			var merged Settings
			for _, filePath := range filePaths {
				content, err := os.ReadFile(filePath)
				if err != nil {
					return Settings{}, err
				}

				value := ctx.CompileBytes(content, cue.Filename(filePath))
				if err := value.Err(); err != nil {
					return Settings{}, err
				}

				if schema.Exists() {
					if err := schema.Unify(value).Validate(); err != nil {
						return Settings{}, err
					}
				}

				var s Settings
				if err := value.Decode(&s); err != nil {
					return Settings{}, err
				}
				merged.fillFrom(s)
			}

			return merged, nil
		}),
	}
}

// Validate forces the loader to read, parse, and validate every candidate
// file now, surfacing any error instead of deferring it to the first field
// access (whose accessors degrade to "unset" on error rather than panic).
func (l Loader) Validate() error {
	_, err := l.resolve()
	return err
}

func (l Loader) settings() Settings {
	s, err := l.resolve()
	if err != nil {
		return Settings{}
	}
	return s
}

// HeapSize returns the configured per-semispace heap cell count, or
// (0, false) if no loaded file sets heap_size.
func (l Loader) HeapSize() (int64, bool) {
	s := l.settings()
	if s.HeapSize == nil {
		return 0, false
	}
	return *s.HeapSize, true
}

// StackSize returns the configured operand/frame slot count, or
// (0, false) if no loaded file sets stack_size.
func (l Loader) StackSize() (int64, bool) {
	s := l.settings()
	if s.StackSize == nil {
		return 0, false
	}
	return *s.StackSize, true
}

// Optimize reports whether the compiler's peephole passes should run per
// the loaded config, defaulting to false if unset.
func (l Loader) Optimize() bool {
	s := l.settings()
	return s.Optimize != nil && *s.Optimize
}

// JIT reports whether the VM should dispatch through the closure-threaded
// engine per the loaded config, defaulting to false if unset.
func (l Loader) JIT() bool {
	s := l.settings()
	return s.JIT != nil && *s.JIT
}
