// convert/orchestrator.go
package convert

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/models"
)

// Toolchain is the converter contract: a palette probe, an RGBA
// expansion step and the tiler itself. *GDAL is the production
// implementation.
type Toolchain interface {
	IsPaletted(ctx context.Context, rasterPath string) (bool, error)
	ExpandRGBA(ctx context.Context, rasterPath, vrtPath string) error
	Tile(ctx context.Context, rasterPath, outputDir string) error
}

// Orchestrator converts every raster in a working set into a tile
// pyramid. Files convert independently and in parallel up to the worker
// bound; one failing input does not abort the others, but any failure
// makes the edition ineligible for the metadata commit.
type Orchestrator struct {
	tools   Toolchain
	workers int
	logger  logrus.FieldLogger
}

func NewOrchestrator(tools Toolchain, workers int, logger logrus.FieldLogger) *Orchestrator {
	if workers <= 0 {
		workers = 1
	}
	return &Orchestrator{tools: tools, workers: workers, logger: logger}
}

// ConvertAll runs the per-file pipeline over the working set. The
// returned error is nil only when every file succeeded; otherwise it is a
// ConversionError aggregating each file's failure.
func (o *Orchestrator) ConvertAll(ctx context.Context, ws *models.WorkingSet) error {
	errs := make([]error, len(ws.Files))

	var wg sync.WaitGroup
	sem := make(chan struct{}, o.workers)
	for i, file := range ws.Files {
		// Stop issuing new conversions once the run is aborted, but let
		// in-flight files finish and record their own outcome.
		if ctx.Err() != nil {
			errs[i] = fmt.Errorf("conversion not started: %w", ctx.Err())
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		i, file := i, file
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = o.convertFile(ctx, file)
		}()
	}
	wg.Wait()

	var merr *multierror.Error
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", ws.Files[i].SourcePath, err))
			o.logger.WithField("file", ws.Files[i].SourcePath).Errorf("Convert: %v", err)
		}
	}
	if failed > 0 {
		return &models.ConversionError{
			Category: ws.Category,
			Failed:   failed,
			Total:    len(ws.Files),
			Err:      merr.ErrorOrNil(),
		}
	}

	o.logger.WithFields(logrus.Fields{"category": ws.Category, "edition": ws.EditionCode}).
		Infof("Convert: %d files converted", len(ws.Files))
	return nil
}

// convertFile probes one raster, expands it to RGBA when paletted, and
// tiles the (possibly expanded) source.
func (o *Orchestrator) convertFile(ctx context.Context, file models.WorkingFile) error {
	input := file.SourcePath

	paletted, err := o.tools.IsPaletted(ctx, input)
	if err != nil {
		// A failed probe is not fatal: assume direct-color and let the
		// tiler decide, matching the converter's own tolerance.
		o.logger.WithField("file", input).Warnf("Convert: palette probe failed: %v", err)
		paletted = false
	}

	if paletted {
		vrtPath := input + ".vrt"
		o.logger.WithField("file", input).Debug("Convert: paletted raster, expanding to RGBA VRT")
		if err := o.tools.ExpandRGBA(ctx, input, vrtPath); err != nil {
			return fmt.Errorf("rgba expansion failed: %w", err)
		}
		input = vrtPath
	}

	if err := o.tools.Tile(ctx, input, file.TileDir); err != nil {
		return fmt.Errorf("tiling failed: %w", err)
	}
	return nil
}
