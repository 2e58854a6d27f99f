// convert/orchestrator_test.go
package convert

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gewnthar/charttiles/models"
)

// fakeToolchain records tool invocations; conversions run concurrently.
type fakeToolchain struct {
	mu          sync.Mutex
	palettedSet map[string]bool
	probeErr    error
	expandErr   error
	tileErrs    map[string]error

	expanded []string
	tiled    []string
}

func (f *fakeToolchain) IsPaletted(ctx context.Context, rasterPath string) (bool, error) {
	if f.probeErr != nil {
		return false, f.probeErr
	}
	return f.palettedSet[rasterPath], nil
}

func (f *fakeToolchain) ExpandRGBA(ctx context.Context, rasterPath, vrtPath string) error {
	if f.expandErr != nil {
		return f.expandErr
	}
	f.mu.Lock()
	f.expanded = append(f.expanded, rasterPath)
	f.mu.Unlock()
	return nil
}

func (f *fakeToolchain) Tile(ctx context.Context, rasterPath, outputDir string) error {
	if err := f.tileErrs[rasterPath]; err != nil {
		return err
	}
	f.mu.Lock()
	f.tiled = append(f.tiled, rasterPath)
	f.mu.Unlock()
	return nil
}

func workingSet(paths ...string) *models.WorkingSet {
	ws := &models.WorkingSet{Category: models.CategorySectional, EditionCode: "SEA_20250711", Dir: "/work"}
	for _, p := range paths {
		ws.Files = append(ws.Files, models.WorkingFile{SourcePath: p, TileDir: p + "_tiles"})
	}
	return ws
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestConvertAllNonPaletted(t *testing.T) {
	tools := &fakeToolchain{}
	o := NewOrchestrator(tools, 2, quietLogger())

	err := o.ConvertAll(context.Background(), workingSet("/work/a.tif", "/work/b.tif"))
	require.NoError(t, err)

	assert.Empty(t, tools.expanded, "non-paletted rasters must not be RGBA-expanded")
	assert.ElementsMatch(t, []string{"/work/a.tif", "/work/b.tif"}, tools.tiled)
}

func TestConvertAllPalettedExpandsBeforeTiling(t *testing.T) {
	tools := &fakeToolchain{palettedSet: map[string]bool{"/work/a.tif": true}}
	o := NewOrchestrator(tools, 1, quietLogger())

	err := o.ConvertAll(context.Background(), workingSet("/work/a.tif", "/work/b.tif"))
	require.NoError(t, err)

	assert.Equal(t, []string{"/work/a.tif"}, tools.expanded)
	// The paletted raster is tiled through its VRT, the other directly.
	assert.ElementsMatch(t, []string{"/work/a.tif.vrt", "/work/b.tif"}, tools.tiled)
}

func TestConvertAllProbeFailureFallsBackToDirect(t *testing.T) {
	tools := &fakeToolchain{probeErr: errors.New("gdalinfo missing")}
	o := NewOrchestrator(tools, 1, quietLogger())

	err := o.ConvertAll(context.Background(), workingSet("/work/a.tif"))
	require.NoError(t, err)
	assert.Equal(t, []string{"/work/a.tif"}, tools.tiled)
}

func TestConvertAllOneFailureDoesNotAbortOthers(t *testing.T) {
	tools := &fakeToolchain{tileErrs: map[string]error{"/work/b.tif": errors.New("boom")}}
	o := NewOrchestrator(tools, 2, quietLogger())

	err := o.ConvertAll(context.Background(), workingSet("/work/a.tif", "/work/b.tif", "/work/c.tif"))
	require.Error(t, err)

	var convErr *models.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 1, convErr.Failed)
	assert.Equal(t, 3, convErr.Total)

	// The healthy inputs still converted.
	assert.ElementsMatch(t, []string{"/work/a.tif", "/work/c.tif"}, tools.tiled)
}

func TestConvertAllExpandFailureFailsThatFile(t *testing.T) {
	tools := &fakeToolchain{
		palettedSet: map[string]bool{"/work/a.tif": true},
		expandErr:   errors.New("translate failed"),
	}
	o := NewOrchestrator(tools, 1, quietLogger())

	err := o.ConvertAll(context.Background(), workingSet("/work/a.tif"))
	require.Error(t, err)
	assert.Empty(t, tools.tiled)
}

func TestConvertAllCancelledContextStopsNewWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tools := &fakeToolchain{}
	o := NewOrchestrator(tools, 1, quietLogger())

	err := o.ConvertAll(ctx, workingSet("/work/a.tif", "/work/b.tif"))
	require.Error(t, err)
	assert.Empty(t, tools.tiled)
}
