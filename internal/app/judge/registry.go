// Package judge implements the judging engine: the language registry, the
// execution backend client, the verdict classifier, the testcase runner, the
// submission orchestrator and the leaderboard aggregation.
package judge

import (
	_ "embed"
	"math"
	"os"

	"codearena/internal/common"

	"github.com/pelletier/go-toml/v2"
)

//go:embed languages.toml
var defaultLanguageConfig []byte

// Language maps a submission's declared language code to the executor's
// identifier plus the resource-scaling policy applied to problem limits.
type Language struct {
	Code             string  `toml:"code"`
	Name             string  `toml:"name"`
	BackendID        int     `toml:"backend_id"`
	TimeMultiplier   float64 `toml:"time_multiplier"`
	MemoryMultiplier float64 `toml:"memory_multiplier"`
}

// Limits are the effective resource ceilings for one testcase execution.
type Limits struct {
	TimeMs   int
	MemoryKB int
}

// Scale applies the language's multipliers to base problem limits.
func (l Language) Scale(base Limits) Limits {
	return Limits{
		TimeMs:   int(math.Round(float64(base.TimeMs) * l.TimeMultiplier)),
		MemoryKB: int(math.Round(float64(base.MemoryKB) * l.MemoryMultiplier)),
	}
}

// Registry is the static language table. Built once at startup, read-only
// afterward, so concurrent lookups need no synchronization.
type Registry struct {
	languages map[string]Language
}

type registryFile struct {
	Languages []Language `toml:"languages"`
}

// NewRegistry loads the language table from the TOML file at path, or from
// the embedded default configuration when path is empty.
func NewRegistry(path string) (*Registry, error) {
	raw := defaultLanguageConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, common.Errorf("read language config %s: %w", path, err)
		}
		raw = b
	}

	var file registryFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, common.Errorf("parse language config: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, common.Errorf("language config declares no languages: %w", common.ErrValidation)
	}

	langs := make(map[string]Language, len(file.Languages))
	for _, l := range file.Languages {
		if l.Code == "" || l.BackendID == 0 {
			return nil, common.Errorf("language entry %q missing code or backend id: %w", l.Code, common.ErrValidation)
		}
		if l.TimeMultiplier <= 0 {
			l.TimeMultiplier = 1
		}
		if l.MemoryMultiplier <= 0 {
			l.MemoryMultiplier = 1
		}
		langs[l.Code] = l
	}
	return &Registry{languages: langs}, nil
}

// Lookup resolves a language code. Unknown codes fail with
// common.ErrUnsupportedLanguage; the submission is rejected before judging.
func (r *Registry) Lookup(code string) (Language, error) {
	l, ok := r.languages[code]
	if !ok {
		return Language{}, common.Errorf("language %q: %w", code, common.ErrUnsupportedLanguage)
	}
	return l, nil
}

// Codes lists the registered language codes, for API discovery.
func (r *Registry) Codes() []string {
	codes := make([]string, 0, len(r.languages))
	for code := range r.languages {
		codes = append(codes, code)
	}
	return codes
}
