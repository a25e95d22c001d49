package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"

	"github.com/espython/website-builder/internal/platform/config"
)

const exportContentType = "application/json"

// ErrExportsDisabled indicates that no exports bucket has been configured.
var ErrExportsDisabled = errors.New("storage exports: bucket not configured")

// ExportObject describes an uploaded site document.
type ExportObject struct {
	Bucket      string    `json:"bucket"`
	Object      string    `json:"object"`
	DownloadURL string    `json:"downloadUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt,omitempty"`
}

// objectStore is the subset of Cloud Storage the uploader relies on.
type objectStore interface {
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
	SignedURL(bucket, object string, expires time.Time) (string, error)
}

type gcsObjectStore struct {
	client *gcs.Client
}

func (s gcsObjectStore) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s gcsObjectStore) SignedURL(bucket, object string, expires time.Time) (string, error) {
	return s.client.Bucket(bucket).SignedURL(object, &gcs.SignedURLOptions{
		Scheme:  gcs.SigningSchemeV4,
		Method:  "GET",
		Expires: expires,
	})
}

// ExportUploader writes exported site documents to a Cloud Storage bucket.
type ExportUploader struct {
	store  objectStore
	bucket string
	prefix string
	expiry time.Duration
	now    func() time.Time
}

// ExportOption customises the uploader.
type ExportOption func(*ExportUploader)

// WithExportClock overrides the clock used for signed URL expiry.
func WithExportClock(now func() time.Time) ExportOption {
	return func(u *ExportUploader) {
		if now != nil {
			u.now = now
		}
	}
}

func withObjectStore(store objectStore) ExportOption {
	return func(u *ExportUploader) {
		if store != nil {
			u.store = store
		}
	}
}

// NewExportUploader constructs an uploader backed by the provided Cloud Storage client.
func NewExportUploader(client *gcs.Client, cfg config.ExportsConfig, opts ...ExportOption) (*ExportUploader, error) {
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, ErrExportsDisabled
	}
	u := &ExportUploader{
		bucket: bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		expiry: cfg.URLExpiry,
		now:    time.Now,
	}
	if client != nil {
		u.store = gcsObjectStore{client: client}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(u)
		}
	}
	if u.store == nil {
		return nil, errors.New("storage exports: client is required")
	}
	return u, nil
}

// Upload stores the document and, when an expiry is configured, returns a signed download URL.
// Signing failures are reported with the object still in place.
func (u *ExportUploader) Upload(ctx context.Context, projectID, fileName string, data []byte) (ExportObject, error) {
	if u == nil || u.store == nil {
		return ExportObject{}, errors.New("storage exports: uploader is not initialised")
	}
	object, err := BuildExportPath(u.prefix, projectID, fileName)
	if err != nil {
		return ExportObject{}, err
	}
	if err := u.store.Write(ctx, u.bucket, object, exportContentType, data); err != nil {
		return ExportObject{}, fmt.Errorf("storage exports: write %s: %w", object, err)
	}
	result := ExportObject{Bucket: u.bucket, Object: object}
	if u.expiry <= 0 {
		return result, nil
	}
	expires := u.now().UTC().Add(u.expiry)
	url, err := u.store.SignedURL(u.bucket, object, expires)
	if err != nil {
		return result, fmt.Errorf("storage exports: sign %s: %w", object, err)
	}
	result.DownloadURL = url
	result.ExpiresAt = expires
	return result, nil
}
