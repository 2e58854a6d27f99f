// scraper/edition_parser.go
package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gewnthar/charttiles/models"
)

// Regex for VFR zip names like "SEA_20250711.zip" (region code + cycle date).
var vfrZipPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z_\-]*)_(\d{8})\.zip$`)

// Regex to find published dates like "Jul 11 2025" in IFR table cells.
var ifrPublishedDatePattern = regexp.MustCompile(`([A-Z][a-z]{2} \d{1,2} \d{4})`)

const (
	vfrCycleLayout     = "20060102"   // date part of VFR zip names
	ifrPublishedLayout = "Jan 2 2006" // published dates on the IFR page
)

// Only conterminous-US enroute charts are mirrored.
var ifrAllowedPrefixes = map[models.ChartCategory][]string{
	models.CategoryIFRLow:  {"ELUS"},
	models.CategoryIFRHigh: {"EHUS"},
}

// Regional variants (Alaska, Hawaii, Pacific, area charts) are out of scope.
var ifrSkipPrefixes = []string{
	"ELAK", "EHAA", "ELHI", "EHPH", "ELPA", "EHPA", "AREA", "EHAK", "EPHI",
}

// ParseVFRZipName turns a VFR listing zip filename into an
// EditionDescriptor. The edition code is the zip base name, which carries
// both the region and the cycle date; the parsed date is kept separately
// as the tie-break when codes match. Filenames that do not match the
// recognized identity pattern are rejected and skipped by the catalog.
func ParseVFRZipName(category models.ChartCategory, filename, sourceURL string) (models.EditionDescriptor, error) {
	matches := vfrZipPattern.FindStringSubmatch(filename)
	if matches == nil {
		return models.EditionDescriptor{}, fmt.Errorf("filename %q does not match the VFR chart pattern", filename)
	}

	ed := models.EditionDescriptor{
		Category:    category,
		EditionCode: strings.TrimSuffix(filename, ".zip"),
		SourceURL:   sourceURL,
	}

	if t, err := time.Parse(vfrCycleLayout, matches[2]); err == nil {
		tt := t.UTC()
		ed.EffectiveDate = &tt
	}
	// An unparseable date leaves EffectiveDate nil; the edition code alone
	// still identifies the edition.

	return ed, nil
}

// ParseIFREntry turns an IFR table row (chart code cell + detail cell
// text) into an EditionDescriptor. IFR chart codes are stable across
// cycles, so the published date extracted from the detail cell is what
// distinguishes editions with the same code.
func ParseIFREntry(category models.ChartCategory, chartCode, cellText, sourceURL string) (models.EditionDescriptor, error) {
	chartCode = strings.TrimSpace(chartCode)
	if !ifrCodeAllowed(category, chartCode) {
		return models.EditionDescriptor{}, fmt.Errorf("chart code %q is not a recognized %s chart", chartCode, category)
	}

	ed := models.EditionDescriptor{
		Category:    category,
		EditionCode: chartCode,
		SourceURL:   sourceURL,
	}

	if m := ifrPublishedDatePattern.FindStringSubmatch(cellText); m != nil {
		if t, err := time.Parse(ifrPublishedLayout, m[1]); err == nil {
			tt := t.UTC()
			ed.EffectiveDate = &tt
		}
	}

	return ed, nil
}

// ifrCodeAllowed applies the category's identity pattern and the explicit
// regional exclusion list.
func ifrCodeAllowed(category models.ChartCategory, chartCode string) bool {
	for _, skip := range ifrSkipPrefixes {
		if strings.HasPrefix(chartCode, skip) {
			return false
		}
	}
	for _, prefix := range ifrAllowedPrefixes[category] {
		if strings.HasPrefix(chartCode, prefix) {
			return true
		}
	}
	return false
}
