// scraper/archive.go
package scraper

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/models"
	"github.com/gewnthar/charttiles/services"
)

// A transient failure on the multi-hundred-megabyte chart archives gets
// two more attempts before the cycle fails.
const downloadAttempts = 3

// Fetcher downloads the archive for a stale edition and extracts it into
// a working directory scoped to (category, edition code). A failure at
// any step discards the whole working directory so the next run retries
// the same edition from scratch.
type Fetcher struct {
	client       *http.Client
	downloadDir  string
	retryBackoff time.Duration
	logger       logrus.FieldLogger
}

func NewFetcher(downloadDir string, timeout, retryBackoff time.Duration, logger logrus.FieldLogger) *Fetcher {
	return &Fetcher{
		client:       &http.Client{Timeout: timeout},
		downloadDir:  downloadDir,
		retryBackoff: retryBackoff,
		logger:       logger,
	}
}

// FetchExtract retrieves the edition's archive, verifies it opens cleanly
// and extracts the rasters it contains.
func (f *Fetcher) FetchExtract(ctx context.Context, ed models.EditionDescriptor) (*models.WorkingSet, error) {
	workDir := filepath.Join(f.downloadDir, string(ed.Category), ed.EditionCode)

	// A leftover directory from an interrupted run is never trusted.
	if err := os.RemoveAll(workDir); err != nil {
		return nil, &models.FetchError{Category: ed.Category, URL: ed.SourceURL, Err: err}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, &models.FetchError{Category: ed.Category, URL: ed.SourceURL, Err: err}
	}

	zipPath := filepath.Join(workDir, filenameFromURL(ed.SourceURL))
	err := services.WithRetry(ctx, func() error {
		if err := f.downloadFile(ctx, ed.SourceURL, zipPath); err != nil {
			f.logger.Warnf("Fetcher: download of %s failed, may retry: %v", ed.SourceURL, err)
			return err
		}
		return nil
	}, downloadAttempts, f.retryBackoff)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, &models.FetchError{Category: ed.Category, URL: ed.SourceURL, Err: err}
	}

	ws, err := extractArchive(ed, workDir, zipPath)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, &models.FetchError{Category: ed.Category, URL: ed.SourceURL, Err: err}
	}

	f.logger.WithFields(logrus.Fields{"category": ed.Category, "edition": ed.EditionCode}).
		Infof("Fetcher: extracted %d raster files to %s", len(ws.Files), workDir)
	return ws, nil
}

// ExtractLocal builds a working set from an already-downloaded archive.
// Used by the single-archive CLI override for minimal end-to-end runs.
func (f *Fetcher) ExtractLocal(ctx context.Context, category models.ChartCategory, zipPath string) (*models.WorkingSet, error) {
	editionCode := strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	ed := models.EditionDescriptor{Category: category, EditionCode: editionCode, SourceURL: "file://" + zipPath}

	workDir := filepath.Join(f.downloadDir, string(category), editionCode)
	if err := os.RemoveAll(workDir); err != nil {
		return nil, &models.FetchError{Category: category, URL: ed.SourceURL, Err: err}
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, &models.FetchError{Category: category, URL: ed.SourceURL, Err: err}
	}

	ws, err := extractArchive(ed, workDir, zipPath)
	if err != nil {
		os.RemoveAll(workDir)
		return nil, &models.FetchError{Category: category, URL: ed.SourceURL, Err: err}
	}
	return ws, nil
}

// downloadFile streams a URL to a local path. Cancelling the context
// aborts an in-flight transfer.
func (f *Fetcher) downloadFile(ctx context.Context, url, localSavePath string) error {
	f.logger.Debugf("Fetcher: downloading %s to %s", url, localSavePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build GET request for %s: %w", url, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download file from %s: received status code %d", url, resp.StatusCode)
	}

	outFile, err := os.Create(localSavePath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localSavePath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, resp.Body); err != nil {
		return fmt.Errorf("failed to copy downloaded content to %s: %w", localSavePath, err)
	}
	return nil
}

// extractArchive verifies the archive is well formed and unpacks it. A
// truncated download fails the zip open, which is the completeness check.
func extractArchive(ed models.EditionDescriptor, workDir, zipPath string) (*models.WorkingSet, error) {
	info, err := os.Stat(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", zipPath, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("archive %s is empty", zipPath)
	}

	reader, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("archive %s is not a valid zip: %w", zipPath, err)
	}
	defer reader.Close()

	for _, entry := range reader.File {
		if err := extractEntry(entry, workDir); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", entry.Name, err)
		}
	}

	ws := &models.WorkingSet{Category: ed.Category, EditionCode: ed.EditionCode, Dir: workDir}
	err = filepath.Walk(workDir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		lower := strings.ToLower(path)
		if strings.HasSuffix(lower, ".tif") || strings.HasSuffix(lower, ".tiff") {
			ws.Files = append(ws.Files, models.WorkingFile{
				SourcePath: path,
				TileDir:    strings.TrimSuffix(path, filepath.Ext(path)) + "_tiles",
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate extracted rasters: %w", err)
	}

	if len(ws.Files) == 0 {
		return nil, fmt.Errorf("archive %s contained no raster files", zipPath)
	}
	return ws, nil
}

func extractEntry(entry *zip.File, workDir string) error {
	// Reject entries that would escape the working directory.
	destPath := filepath.Join(workDir, filepath.Clean(entry.Name))
	if !strings.HasPrefix(destPath, filepath.Clean(workDir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry path %q escapes the working directory", entry.Name)
	}

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}

	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

func filenameFromURL(url string) string {
	return url[strings.LastIndex(url, "/")+1:]
}
