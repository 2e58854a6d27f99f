// convert/gdal.go
package convert

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/config"
)

// GDAL drives the external GDAL toolchain: gdalinfo for the palette
// probe, gdal_translate for RGBA expansion and gdal2tiles for the tile
// pyramid itself. The tools signal failure via non-zero exit; stderr is
// folded into the returned error.
type GDAL struct {
	infoCmd      string
	translateCmd string
	tilesCmd     string
	logger       logrus.FieldLogger
}

func NewGDAL(cfg config.ConversionConfig, logger logrus.FieldLogger) *GDAL {
	return &GDAL{
		infoCmd:      cfg.GdalInfoCmd,
		translateCmd: cfg.GdalTranslateCmd,
		tilesCmd:     cfg.Gdal2TilesCmd,
		logger:       logger,
	}
}

// IsPaletted probes whether a raster uses a palette-indexed color model.
func (g *GDAL) IsPaletted(ctx context.Context, rasterPath string) (bool, error) {
	out, err := exec.CommandContext(ctx, g.infoCmd, rasterPath).Output()
	if err != nil {
		return false, fmt.Errorf("%s failed for %s: %w", g.infoCmd, rasterPath, err)
	}
	return strings.Contains(string(out), "ColorInterp=Palette"), nil
}

// ExpandRGBA produces an RGBA-expanded virtual raster with the same
// geotransform as the paletted source.
func (g *GDAL) ExpandRGBA(ctx context.Context, rasterPath, vrtPath string) error {
	out, err := exec.CommandContext(ctx, g.translateCmd,
		"-of", "vrt", "-expand", "rgba", rasterPath, vrtPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed for %s: %w (output: %s)",
			g.translateCmd, rasterPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Tile converts a raster into a tile-pyramid directory.
func (g *GDAL) Tile(ctx context.Context, rasterPath, outputDir string) error {
	out, err := exec.CommandContext(ctx, g.tilesCmd, rasterPath, outputDir).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed for %s: %w (output: %s)",
			g.tilesCmd, rasterPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}
