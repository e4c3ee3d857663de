package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/fivetide/phiremock-server/pkg/expectation"
)

// ExpectationSource supplies the expectations registered at boot.
// The disk implementation scans a directory once; in-memory sources are
// injected by tests and embedders.
type ExpectationSource interface {
	LoadAll() ([]*expectation.Expectation, error)
}

// DirSource loads every *.json file under Dir (recursively) as a single
// expectation. Files are loaded in lexical path order so insertion order,
// and with it matcher tie-breaking, is deterministic across boots.
// Changes on disk after boot are not observed.
type DirSource struct {
	Dir string
}

// LoadAll scans the directory and parses each expectation file.
// A file that fails to parse aborts the load with the file named in the
// error: a broken bootstrap is a fatal configuration error, not a warning.
func (s *DirSource) LoadAll() ([]*expectation.Expectation, error) {
	if info, err := os.Stat(s.Dir); err != nil {
		return nil, fmt.Errorf("expectations directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("expectations directory: %s is not a directory", s.Dir)
	}

	paths, err := doublestar.FilepathGlob(filepath.Join(s.Dir, "**", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", s.Dir, err)
	}
	sort.Strings(paths)

	expectations := make([]*expectation.Expectation, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		e, err := expectation.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		expectations = append(expectations, e)
	}
	return expectations, nil
}

// StaticSource serves a fixed expectation list. Used by tests and by
// embedders that build expectations programmatically.
type StaticSource struct {
	Expectations []*expectation.Expectation
}

// LoadAll returns the configured expectations.
func (s *StaticSource) LoadAll() ([]*expectation.Expectation, error) {
	return s.Expectations, nil
}
