// models/chart.go
package models

import (
	"fmt"
	"time"
)

// ChartCategory identifies one independent processing lane. Lanes never
// share state and may run concurrently.
type ChartCategory string

const (
	CategorySectional ChartCategory = "sectional"
	CategoryIFRLow    ChartCategory = "ifr-low"
	CategoryIFRHigh   ChartCategory = "ifr-high"
)

// AllCategories returns every supported chart category, in the order the
// lanes are normally run.
func AllCategories() []ChartCategory {
	return []ChartCategory{CategorySectional, CategoryIFRLow, CategoryIFRHigh}
}

// ParseCategory converts a CLI/config string into a ChartCategory.
func ParseCategory(s string) (ChartCategory, error) {
	c := ChartCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown chart category %q (expected one of %v)", s, AllCategories())
	}
	return c, nil
}

// Valid reports whether c is one of the supported categories.
func (c ChartCategory) Valid() bool {
	switch c {
	case CategorySectional, CategoryIFRLow, CategoryIFRHigh:
		return true
	}
	return false
}

// EditionDescriptor is one candidate published chart set for a category,
// as discovered on the FAA listing pages. Descriptors are produced fresh
// on every run and are never persisted.
type EditionDescriptor struct {
	Category      ChartCategory `json:"category"`
	EditionCode   string        `json:"edition_code"`
	EffectiveDate *time.Time    `json:"effective_date,omitempty"` // nil when the listing date was unparseable
	SourceURL     string        `json:"source_url"`
}

// MetadataRecord is the persisted record of the last fully processed
// edition for a category. A record exists only after a complete
// download+convert+publish cycle succeeded; partial work never mutates it.
type MetadataRecord struct {
	Category                   ChartCategory `json:"category"`
	LastProcessedEditionCode   string        `json:"last_processed_edition_code"`
	LastProcessedEffectiveDate *time.Time    `json:"last_processed_effective_date,omitempty"`
	LastSuccessTimestamp       time.Time     `json:"last_success_timestamp"`
}

// WorkingFile is one raster extracted from a downloaded archive, tagged
// with the tile directory its pyramid will be written to.
type WorkingFile struct {
	SourcePath string
	TileDir    string
}

// WorkingSet is the ephemeral per-run extraction result for one edition.
// It is created by the fetcher, consumed by the conversion orchestrator,
// and discarded with its directory afterwards.
type WorkingSet struct {
	Category    ChartCategory
	EditionCode string
	Dir         string
	Files       []WorkingFile
}

// PublishDiff tells the publisher which previously published artifacts
// must be invalidated before uploading a new edition. DeletePrefixes are
// remote prefixes relative to the publisher's root.
type PublishDiff struct {
	Category          ChartCategory
	DeletePrefixes    []string
	EditionTransition bool
}
