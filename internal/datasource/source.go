package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/planwork/pkg/history"
	"github.com/vanderheijden86/planwork/pkg/model"
)

// SourceType identifies how a completion log is persisted.
type SourceType string

const (
	// SourceTypeSQLite is a completions.db SQLite store.
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeJSONL is an append-only completions.jsonl file.
	SourceTypeJSONL SourceType = "jsonl"
)

// Priority values per source type; higher wins when mod times are equal.
// SQLite reflects collaborator writes sooner than the JSONL export, so it
// outranks JSONL at comparable freshness.
const (
	PrioritySQLite = 100
	PriorityJSONL  = 50
)

// Source is one discovered completion-log location.
type Source struct {
	Type     SourceType `json:"type"`
	Path     string     `json:"path"`
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	Size     int64      `json:"size"`

	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
	RecordCount     int    `json:"record_count"`
}

// String returns a human-readable description of the source.
func (s Source) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, records=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RecordCount, status)
}

// DiscoveryOptions configures source discovery.
type DiscoveryOptions struct {
	// DataDir is the directory holding the completion stores.
	DataDir string
	// Validate opens each discovered source and counts its records.
	Validate bool
	// IncludeInvalid keeps sources that failed validation in the result.
	IncludeInvalid bool
	// Logger receives discovery progress; nil discards it.
	Logger func(msg string)
}

// DiscoverSources finds completion-log sources under DataDir, freshest
// first. With Validate set, sources that fail to parse are dropped unless
// IncludeInvalid is also set.
func DiscoverSources(opts DiscoveryOptions) ([]Source, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	if opts.DataDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("datasource: resolve working directory: %w", err)
		}
		opts.DataDir = wd
	}
	opts.Logger(fmt.Sprintf("discovering completion sources in %s", opts.DataDir))

	var sources []Source
	if s, ok := statSource(filepath.Join(opts.DataDir, "completions.db"), SourceTypeSQLite, PrioritySQLite); ok {
		sources = append(sources, s)
	}
	sources = append(sources, discoverJSONL(opts.DataDir)...)

	if opts.Validate {
		for i := range sources {
			validateSource(&sources[i])
			if !sources[i].Valid {
				opts.Logger(fmt.Sprintf("validation failed for %s: %s", sources[i].Path, sources[i].ValidationError))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sort.Slice(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
	opts.Logger(fmt.Sprintf("discovered %d sources", len(sources)))
	return sources, nil
}

// LoadCompletions selects the freshest valid source under dataDir and reads
// it. No source at all returns ErrSourceMissing.
func LoadCompletions(dataDir string) (history.Snapshot, error) {
	sources, err := DiscoverSources(DiscoveryOptions{DataDir: dataDir, Validate: true})
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no completion log under %s", ErrSourceMissing, dataDir)
	}

	best := sources[0]
	switch best.Type {
	case SourceTypeSQLite:
		records, _, err := Completions(best.Path)
		if err != nil {
			return nil, err
		}
		return history.Snapshot(records), nil
	default:
		return history.LoadFile(best.Path, nil)
	}
}

func statSource(path string, typ SourceType, priority int) (Source, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return Source{}, false
	}
	return Source{
		Type:     typ,
		Path:     path,
		Priority: priority,
		ModTime:  info.ModTime(),
		Size:     info.Size(),
	}, true
}

func discoverJSONL(dataDir string) []Source {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil
	}
	var sources []Source
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		// Skip backups and merge artifacts left by collaborators.
		if strings.Contains(name, ".backup") || strings.Contains(name, ".orig") || strings.Contains(name, ".merge") {
			continue
		}
		if s, ok := statSource(filepath.Join(dataDir, name), SourceTypeJSONL, PriorityJSONL); ok {
			sources = append(sources, s)
		}
	}
	return sources
}

func validateSource(s *Source) {
	var records []model.CompletionRecord
	var err error
	switch s.Type {
	case SourceTypeSQLite:
		records, _, err = Completions(s.Path)
	default:
		var snap history.Snapshot
		snap, err = history.LoadFile(s.Path, nil)
		records = snap
	}
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return
	}
	s.Valid = true
	s.RecordCount = len(records)
}
