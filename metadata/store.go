// metadata/store.go
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/models"
)

// Store persists the last successfully processed edition per category as
// a single JSON document. It is the single source of truth for staleness
// decisions: a record is written only by Commit, after a fully successful
// cycle, with write-to-temp-then-rename semantics so no reader ever
// observes a half-written file. A .bak sibling of the last good document
// is kept for recovery.
type Store struct {
	path   string
	logger logrus.FieldLogger
}

func NewStore(path string, logger logrus.FieldLogger) *Store {
	return &Store{path: path, logger: logger}
}

// Load returns the record for a category, or nil when none exists.
// A corrupt metadata file must never block forward progress: Load first
// attempts a restore from the backup and, failing that, logs and reports
// the record as absent so the resolver fails open toward reprocessing.
func (s *Store) Load(category models.ChartCategory) (*models.MetadataRecord, error) {
	records, err := s.read()
	if err != nil {
		corrupt := &models.MetadataCorruptionError{Path: s.path, Err: err}
		s.logger.Warnf("Metadata: %v, attempting restore from backup", corrupt)

		if restoreErr := s.Restore(); restoreErr != nil {
			s.logger.Warnf("Metadata: restore failed (%v), treating record as absent", restoreErr)
			return nil, nil
		}
		if records, err = s.read(); err != nil {
			s.logger.Warnf("Metadata: backup is also unreadable (%v), treating record as absent", err)
			return nil, nil
		}
		s.logger.Info("Metadata: restored metadata from backup")
	}

	rec, ok := records[category]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Commit atomically advances the persisted record for a category. The
// previous document is first copied to the .bak sibling, then the new
// document is written to a temp file and renamed into place. Any I/O
// error here is fatal for the cycle: the record must not silently lose
// durability.
func (s *Store) Commit(category models.ChartCategory, editionCode string, effectiveDate *time.Time) error {
	records, err := s.read()
	if err != nil {
		// A corrupt document is replaced rather than blocking the commit;
		// the surviving categories are whatever the backup still holds.
		s.logger.Warnf("Metadata: existing document unreadable on commit (%v), rewriting", err)
		records = map[models.ChartCategory]models.MetadataRecord{}
	}

	records[category] = models.MetadataRecord{
		Category:                   category,
		LastProcessedEditionCode:   editionCode,
		LastProcessedEffectiveDate: effectiveDate,
		LastSuccessTimestamp:       time.Now().UTC(),
	}

	if err := s.Backup(); err != nil {
		return fmt.Errorf("failed to back up metadata before commit: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace metadata file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"category": category, "edition": editionCode}).
		Info("Metadata: committed record")
	return nil
}

// Backup copies the current document to its .bak sibling. A missing
// document is not an error; there is simply nothing to back up yet.
func (s *Store) Backup() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return copyFile(s.path, s.path+".bak")
}

// Restore replaces the document with the last good backup.
func (s *Store) Restore() error {
	if _, err := os.Stat(s.path + ".bak"); err != nil {
		return fmt.Errorf("no usable backup: %w", err)
	}
	return copyFile(s.path+".bak", s.path)
}

// read loads and decodes the whole document. A missing file yields an
// empty map; a malformed file yields an error for Load/Commit to handle.
func (s *Store) read() (map[models.ChartCategory]models.MetadataRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[models.ChartCategory]models.MetadataRecord{}, nil
	}
	if err != nil {
		return nil, err
	}

	records := map[models.ChartCategory]models.MetadataRecord{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
