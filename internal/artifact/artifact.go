// Package artifact reads and writes the pipeline's durable JSON
// artifacts: one file per bank per stage plus the final aggregate.
// Writes are whole-file and atomic (temp file + rename), so a re-run
// overwrites a bank's artifact wholesale and never corrupts a sibling's.
package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/cbdata-group/listing-cli/internal/model"
)

// Subdirectories per stage under the data dir.
const (
	rawDir        = "search_results"
	filteredDir   = "filtered_urls"
	classifiedDir = "final_output"

	aggregateFile = "high_confidence_listing_urls.json"
	rosterFile    = "websites.json"
)

// Store owns the artifact directory layout.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating stage directories.
func NewStore(dir string) (*Store, error) {
	for _, sub := range []string{rawDir, filteredDir, classifiedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, eris.Wrapf(err, "artifact: create %s", sub)
		}
	}
	return &Store{dir: dir}, nil
}

// Dir returns the root data directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) bankPath(sub string, bank model.Bank) string {
	return filepath.Join(s.dir, sub, bank.ArtifactName()+".json")
}

// writeJSON writes v to path atomically.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "artifact: marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "artifact: create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return eris.Wrap(err, "artifact: rename")
	}
	return nil
}

// readJSON reads path into v. A missing file returns os.ErrNotExist via
// errors.Is so callers can distinguish absent input from corrupt input.
func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return eris.Wrapf(err, "artifact: read %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "artifact: parse %s", path)
	}
	return nil
}

// HasRaw reports whether the bank's raw search artifact exists.
func (s *Store) HasRaw(bank model.Bank) bool {
	_, err := os.Stat(s.bankPath(rawDir, bank))
	return err == nil
}

// WriteRaw persists the bank's raw search results.
func (s *Store) WriteRaw(bank model.Bank, r model.RawResult) error {
	return writeJSON(s.bankPath(rawDir, bank), r)
}

// ReadRaw loads the bank's raw search results.
func (s *Store) ReadRaw(bank model.Bank) (model.RawResult, error) {
	var r model.RawResult
	err := readJSON(s.bankPath(rawDir, bank), &r)
	return r, err
}

// HasFiltered reports whether the bank's filtered artifact exists.
func (s *Store) HasFiltered(bank model.Bank) bool {
	_, err := os.Stat(s.bankPath(filteredDir, bank))
	return err == nil
}

// WriteFiltered persists the bank's filtered candidates.
func (s *Store) WriteFiltered(bank model.Bank, r model.FilteredResult) error {
	return writeJSON(s.bankPath(filteredDir, bank), r)
}

// ReadFiltered loads the bank's filtered candidates.
func (s *Store) ReadFiltered(bank model.Bank) (model.FilteredResult, error) {
	var r model.FilteredResult
	err := readJSON(s.bankPath(filteredDir, bank), &r)
	return r, err
}

// HasClassified reports whether the bank's classified artifact exists.
func (s *Store) HasClassified(bank model.Bank) bool {
	_, err := os.Stat(s.bankPath(classifiedDir, bank))
	return err == nil
}

// WriteClassified persists the bank's classified entries.
func (s *Store) WriteClassified(bank model.Bank, r model.ClassifiedResult) error {
	return writeJSON(s.bankPath(classifiedDir, bank), r)
}

// ReadClassified loads the bank's classified entries.
func (s *Store) ReadClassified(bank model.Bank) (model.ClassifiedResult, error) {
	var r model.ClassifiedResult
	err := readJSON(s.bankPath(classifiedDir, bank), &r)
	return r, err
}

// ListClassified returns every classified artifact, ordered by filename
// so the collector's bank iteration order is stable across runs.
func (s *Store) ListClassified() ([]model.ClassifiedResult, error) {
	pattern := filepath.Join(s.dir, classifiedDir, "*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, eris.Wrap(err, "artifact: list classified")
	}

	results := make([]model.ClassifiedResult, 0, len(paths))
	for _, p := range paths {
		var r model.ClassifiedResult
		if err := readJSON(p, &r); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}

// WriteRoster persists the deduplicated bank roster.
func (s *Store) WriteRoster(banks []model.Bank) error {
	return writeJSON(filepath.Join(s.dir, rosterFile), banks)
}

// ReadRoster loads the deduplicated bank roster.
func (s *Store) ReadRoster() ([]model.Bank, error) {
	var banks []model.Bank
	err := readJSON(filepath.Join(s.dir, rosterFile), &banks)
	return banks, err
}

// WriteAggregate persists the final high-confidence listing list.
func (s *Store) WriteAggregate(entries []model.HighConfidenceEntry) error {
	return writeJSON(filepath.Join(s.dir, aggregateFile), entries)
}

// ReadAggregate loads the final high-confidence listing list.
func (s *Store) ReadAggregate() ([]model.HighConfidenceEntry, error) {
	var entries []model.HighConfidenceEntry
	err := readJSON(filepath.Join(s.dir, aggregateFile), &entries)
	return entries, err
}
