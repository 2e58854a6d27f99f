// services/sync_service.go
package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/gewnthar/charttiles/models"
)

// EditionCatalog discovers the candidate editions currently listed
// upstream for one category.
type EditionCatalog interface {
	Discover(ctx context.Context, category models.ChartCategory) ([]models.EditionDescriptor, error)
}

// ArchiveFetcher retrieves and unpacks an edition's archive.
type ArchiveFetcher interface {
	FetchExtract(ctx context.Context, ed models.EditionDescriptor) (*models.WorkingSet, error)
	ExtractLocal(ctx context.Context, category models.ChartCategory, zipPath string) (*models.WorkingSet, error)
}

// TileConverter turns every raster in a working set into a tile pyramid.
// A nil return means all files succeeded; anything less blocks the
// metadata commit.
type TileConverter interface {
	ConvertAll(ctx context.Context, ws *models.WorkingSet) error
}

// TilePublisher uploads a working set's tile directories, deleting the
// previous edition's remote artifacts first on an edition transition.
type TilePublisher interface {
	PublishTiles(ctx context.Context, diff models.PublishDiff, ws *models.WorkingSet) error
}

// MetadataStore is the durable record of the last processed edition.
type MetadataStore interface {
	Load(category models.ChartCategory) (*models.MetadataRecord, error)
	Commit(category models.ChartCategory, editionCode string, effectiveDate *time.Time) error
}

// Outcome is the per-category result reported in the run summary.
type Outcome string

const (
	OutcomeCurrent Outcome = "current"
	OutcomeSynced  Outcome = "synced"
	OutcomeFailed  Outcome = "failed"
)

// CycleResult is the structured summary line for one category lane. All
// failures are converted into results at the lane boundary; one
// category's failure never aborts its siblings.
type CycleResult struct {
	Category    models.ChartCategory
	Outcome     Outcome
	EditionCode string
	Err         error
}

// Options tune a sync run.
type Options struct {
	// CheckCurrent engages the staleness resolver. When false every
	// selected category is processed unconditionally; the resolver is
	// still consulted so edition transitions invalidate old artifacts.
	CheckCurrent bool
	// LocalArchive, when set, bypasses discovery and download and runs
	// the pipeline against a single local zip. Requires exactly one
	// selected category.
	LocalArchive string
}

// SyncService drives the incremental synchronization cycle for each
// chart category lane: discover, resolve staleness, fetch+extract,
// convert, publish, commit.
type SyncService struct {
	catalog   EditionCatalog
	fetcher   ArchiveFetcher
	converter TileConverter
	publisher TilePublisher
	meta      MetadataStore
	logger    logrus.FieldLogger
}

func NewSyncService(catalog EditionCatalog, fetcher ArchiveFetcher, converter TileConverter,
	publisher TilePublisher, meta MetadataStore, logger logrus.FieldLogger,
) *SyncService {
	return &SyncService{
		catalog:   catalog,
		fetcher:   fetcher,
		converter: converter,
		publisher: publisher,
		meta:      meta,
		logger:    logger,
	}
}

// Run executes the selected category lanes in parallel. Lanes own
// disjoint metadata records, working directories and remote prefixes, so
// they need no coordination beyond waiting for all of them to finish.
func (s *SyncService) Run(ctx context.Context, categories []models.ChartCategory, opts Options) []CycleResult {
	if opts.LocalArchive != "" {
		if len(categories) != 1 {
			return []CycleResult{{
				Outcome: OutcomeFailed,
				Err:     fmt.Errorf("a local archive run requires exactly one chart category, got %d", len(categories)),
			}}
		}
		return []CycleResult{s.runLocalArchive(ctx, categories[0], opts)}
	}

	results := make([]CycleResult, len(categories))
	var g errgroup.Group
	for i, category := range categories {
		i, category := i, category
		g.Go(func() error {
			results[i] = s.runLane(ctx, category, opts)
			return nil
		})
	}
	// Lanes report failures through their CycleResult, never through the
	// group.
	_ = g.Wait()
	return results
}

// runLane is one category's full cycle. Every failure is caught here and
// turned into a CycleResult; the metadata record is committed exactly
// once, after publish succeeded, and never on partial failure or
// cancellation.
func (s *SyncService) runLane(ctx context.Context, category models.ChartCategory, opts Options) CycleResult {
	logger := s.logger.WithField("category", category)

	record, err := s.meta.Load(category)
	if err != nil {
		// The store already degrades corrupt files to absent, so any
		// remaining error is unexpected. Proceed as absent: that only
		// forces an extra sync, never skips one.
		logger.Warnf("Sync: metadata load failed (%v), treating record as absent", err)
		record = nil
	}

	candidates, err := s.catalog.Discover(ctx, category)
	if err != nil {
		return s.failed(category, "", &models.DiscoveryError{Category: category, Err: err})
	}
	if len(candidates) == 0 {
		return s.failed(category, "", &models.DiscoveryError{Category: category, Err: fmt.Errorf("no editions discovered")})
	}

	decision, err := Resolve(category, candidates, record)
	if err != nil {
		return s.failed(category, "", &models.DiscoveryError{Category: category, Err: err})
	}

	if !opts.CheckCurrent && decision.Classification == ClassificationCurrent {
		logger.Info("Sync: currency check disabled, processing unconditionally")
		decision.Classification = ClassificationStale
	}

	if decision.Classification == ClassificationCurrent {
		logger.Infof("Sync: %s is current (%s), skipping", decision.Edition.EditionCode, decision.Reason)
		return CycleResult{Category: category, Outcome: OutcomeCurrent, EditionCode: decision.Edition.EditionCode}
	}
	logger.Infof("Sync: %s is stale (%s)", decision.Edition.EditionCode, decision.Reason)

	ws, err := s.fetcher.FetchExtract(ctx, decision.Edition)
	if err != nil {
		return s.failed(category, decision.Edition.EditionCode, err)
	}

	return s.convertPublishCommit(ctx, decision, ws)
}

// runLocalArchive is the single-archive override path: no discovery, no
// download, but the same convert/publish/commit semantics.
func (s *SyncService) runLocalArchive(ctx context.Context, category models.ChartCategory, opts Options) CycleResult {
	editionCode := strings.TrimSuffix(filepath.Base(opts.LocalArchive), filepath.Ext(opts.LocalArchive))
	record, _ := s.meta.Load(category)

	candidate := models.EditionDescriptor{
		Category:    category,
		EditionCode: editionCode,
		SourceURL:   "file://" + opts.LocalArchive,
	}
	decision, err := Resolve(category, []models.EditionDescriptor{candidate}, record)
	if err != nil {
		return s.failed(category, editionCode, err)
	}

	if opts.CheckCurrent && decision.Classification == ClassificationCurrent {
		return CycleResult{Category: category, Outcome: OutcomeCurrent, EditionCode: editionCode}
	}
	decision.Classification = ClassificationStale

	ws, err := s.fetcher.ExtractLocal(ctx, category, opts.LocalArchive)
	if err != nil {
		return s.failed(category, editionCode, err)
	}

	return s.convertPublishCommit(ctx, decision, ws)
}

func (s *SyncService) convertPublishCommit(ctx context.Context, decision Decision, ws *models.WorkingSet) CycleResult {
	category := ws.Category

	if err := s.converter.ConvertAll(ctx, ws); err != nil {
		return s.failed(category, ws.EditionCode, err)
	}

	if err := s.publisher.PublishTiles(ctx, decision.Diff, ws); err != nil {
		return s.failed(category, ws.EditionCode, err)
	}

	// An aborted cycle must not advance the record even when every
	// earlier step happened to finish.
	if err := ctx.Err(); err != nil {
		return s.failed(category, ws.EditionCode, fmt.Errorf("cycle aborted before commit: %w", err))
	}

	if err := s.meta.Commit(category, ws.EditionCode, decision.Edition.EffectiveDate); err != nil {
		return s.failed(category, ws.EditionCode, err)
	}

	s.logger.WithFields(logrus.Fields{"category": category, "edition": ws.EditionCode}).
		Info("Sync: cycle complete")
	return CycleResult{Category: category, Outcome: OutcomeSynced, EditionCode: ws.EditionCode}
}

func (s *SyncService) failed(category models.ChartCategory, editionCode string, err error) CycleResult {
	s.logger.WithField("category", category).Errorf("Sync: cycle failed: %v", err)
	return CycleResult{Category: category, Outcome: OutcomeFailed, EditionCode: editionCode, Err: err}
}
