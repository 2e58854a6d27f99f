// publish/publisher.go
package publish

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"

	"github.com/gewnthar/charttiles/config"
	"github.com/gewnthar/charttiles/models"
	"github.com/gewnthar/charttiles/services"
)

// CacheControl is applied to every published tile. Tile content at a
// given path is immutable once an edition is fixed, so clients may cache
// for a full year.
const CacheControl = "public, max-age=31536000, immutable"

// Upload and delete each get one retry after a fixed backoff; a second
// failure fails the category's cycle.
const maxAttempts = 2

// objectStore is the slice of the minio client the publisher uses,
// narrowed so tests can substitute a fake.
type objectStore interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// Publisher uploads tile pyramids to an S3-compatible object store and
// invalidates the previous edition's artifacts on an edition transition.
type Publisher struct {
	client  objectStore
	bucket  string
	root    string
	backoff time.Duration
	logger  logrus.FieldLogger
}

// New builds a Publisher against the configured endpoint. Credentials
// come from the environment (AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY).
func New(cfg config.PublishConfig, logger logrus.FieldLogger) (*Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Region: cfg.Region,
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	return newWithClient(client, cfg, logger), nil
}

func newWithClient(client objectStore, cfg config.PublishConfig, logger logrus.FieldLogger) *Publisher {
	return &Publisher{
		client:  client,
		bucket:  cfg.Bucket,
		root:    strings.Trim(cfg.Prefix, "/"),
		backoff: cfg.RetryBackoff,
		logger:  logger,
	}
}

// PublishTiles performs the delete-then-upload cycle for one edition.
// On an edition transition the previous edition's prefix is deleted first
// so stale tiles do not linger next to the new set; the brief window with
// no published artifacts is an accepted trade-off.
func (p *Publisher) PublishTiles(ctx context.Context, diff models.PublishDiff, ws *models.WorkingSet) error {
	if diff.EditionTransition {
		for _, prefix := range diff.DeletePrefixes {
			if err := p.deletePrefix(ctx, prefix); err != nil {
				return &models.PublishError{Category: ws.Category, Op: "delete", Err: err}
			}
		}
	}

	uploaded := 0
	for _, file := range ws.Files {
		n, err := p.uploadTileDir(ctx, ws, file.TileDir)
		uploaded += n
		if err != nil {
			return &models.PublishError{Category: ws.Category, Op: "upload", Err: err}
		}
	}

	p.logger.WithFields(logrus.Fields{"category": ws.Category, "edition": ws.EditionCode}).
		Infof("Publish: uploaded %d objects", uploaded)
	return nil
}

// DeleteCategory removes every published artifact under a category's
// prefix. Used by the cleanup command; categories target disjoint
// prefixes so cleanups may run in parallel.
func (p *Publisher) DeleteCategory(ctx context.Context, category models.ChartCategory) error {
	if err := p.deletePrefix(ctx, string(category)); err != nil {
		return &models.PublishError{Category: category, Op: "delete", Err: err}
	}
	return nil
}

// uploadTileDir walks one tile pyramid and uploads every file, keyed by
// its path relative to the working directory under
// <root>/<category>/<edition>/.
func (p *Publisher) uploadTileDir(ctx context.Context, ws *models.WorkingSet, tileDir string) (int, error) {
	uploaded := 0
	err := filepath.Walk(tileDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(ws.Dir, filePath)
		if err != nil {
			return err
		}
		object := path.Join(p.root, string(ws.Category), ws.EditionCode, filepath.ToSlash(rel))

		opts := minio.PutObjectOptions{
			ContentType:  contentTypeFor(filePath),
			CacheControl: CacheControl,
		}
		putErr := services.WithRetry(ctx, func() error {
			_, err := p.client.FPutObject(ctx, p.bucket, object, filePath, opts)
			if err != nil {
				p.logger.Warnf("Publish: put %s failed, may retry: %v", object, err)
			}
			return err
		}, maxAttempts, p.backoff)
		if putErr != nil {
			return fmt.Errorf("put %q: %w", object, putErr)
		}
		uploaded++
		return nil
	})
	return uploaded, err
}

// deletePrefix removes all objects under a prefix relative to the root.
func (p *Publisher) deletePrefix(ctx context.Context, relPrefix string) error {
	prefix := path.Join(p.root, relPrefix)
	if prefix != "" {
		prefix += "/"
	}
	p.logger.Infof("Publish: deleting objects under %s", prefix)

	return services.WithRetry(ctx, func() error {
		objects := p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		})
		for obj := range objects {
			if obj.Err != nil {
				return fmt.Errorf("list %q: %w", prefix, obj.Err)
			}
			if err := p.client.RemoveObject(ctx, p.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
				return fmt.Errorf("remove %q: %w", obj.Key, err)
			}
		}
		return nil
	}, maxAttempts, p.backoff)
}

func contentTypeFor(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".html":
		return "text/html"
	case ".xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
