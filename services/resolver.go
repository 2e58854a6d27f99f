// services/resolver.go
package services

import (
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/gewnthar/charttiles/models"
)

// Classification is the staleness verdict for a category.
type Classification string

const (
	ClassificationCurrent Classification = "current"
	ClassificationStale   Classification = "stale"
)

// Decision is the resolver's output: a verdict, the edition the cycle
// should process, and the publish diff that invalidates previously
// published artifacts when the edition code changed.
type Decision struct {
	Classification Classification
	Edition        models.EditionDescriptor
	Diff           models.PublishDiff
	Reason         string
}

// Resolve classifies a category as current or stale by comparing the
// discovered candidates against the persisted record. It is a pure
// function: it only computes a decision for the fetch/publish steps to
// act on.
//
// The edition code is the primary identity; effective dates only break
// ties because date parsing can fail or be ambiguous. When neither the
// code nor the date can settle the comparison, the category is treated
// as stale: reprocessing a current edition is wasteful but safe, while
// silently skipping a new one is not.
func Resolve(category models.ChartCategory, candidates []models.EditionDescriptor, record *models.MetadataRecord) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{}, fmt.Errorf("no candidate editions for %s", category)
	}

	chosen := newestCandidate(candidates)
	dec := Decision{
		Classification: ClassificationStale,
		Edition:        chosen,
		Diff:           models.PublishDiff{Category: category},
	}

	if record == nil {
		dec.Reason = "no previous record"
		return dec, nil
	}

	switch {
	case chosen.EditionCode != "" && record.LastProcessedEditionCode != "":
		if chosen.EditionCode == record.LastProcessedEditionCode {
			if newerDate(chosen.EffectiveDate, record.LastProcessedEffectiveDate) {
				// Same code republished with a later date: same remote
				// prefix, so the upload overwrites in place without a
				// delete pass.
				dec.Reason = "same edition code with newer effective date"
				return dec, nil
			}
			dec.Classification = ClassificationCurrent
			dec.Reason = "edition code matches last processed edition"
			return dec, nil
		}
		dec.Reason = fmt.Sprintf("edition code changed from %s to %s", record.LastProcessedEditionCode, chosen.EditionCode)
		dec.Diff.EditionTransition = true
		dec.Diff.DeletePrefixes = []string{remotePrefix(category, record.LastProcessedEditionCode)}
		return dec, nil

	case chosen.EffectiveDate != nil && record.LastProcessedEffectiveDate != nil:
		// Identity unavailable on one side; fall back to dates.
		if newerDate(chosen.EffectiveDate, record.LastProcessedEffectiveDate) {
			dec.Reason = "newer effective date (edition code unavailable)"
			return dec, nil
		}
		dec.Classification = ClassificationCurrent
		dec.Reason = "effective date not newer than last processed (edition code unavailable)"
		return dec, nil

	default:
		dec.Reason = "edition identity and effective date both unavailable; failing open"
		return dec, nil
	}
}

// newestCandidate picks the candidate with the latest effective date;
// candidates without a date keep their listing order behind dated ones.
func newestCandidate(candidates []models.EditionDescriptor) models.EditionDescriptor {
	sorted := make([]models.EditionDescriptor, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].EffectiveDate, sorted[j].EffectiveDate
		switch {
		case di != nil && dj != nil:
			return di.After(*dj)
		case di != nil:
			return true
		default:
			return false
		}
	})
	return sorted[0]
}

// newerDate compares day-truncated UTC dates; nil on either side means
// the comparison cannot claim the candidate is newer.
func newerDate(candidate, recorded *time.Time) bool {
	if candidate == nil || recorded == nil {
		return false
	}
	c := truncateToDay(*candidate)
	r := truncateToDay(*recorded)
	return c.After(r)
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// remotePrefix is the object-store prefix an edition's tiles live under,
// relative to the publisher's configured root.
func remotePrefix(category models.ChartCategory, editionCode string) string {
	return path.Join(string(category), editionCode)
}
