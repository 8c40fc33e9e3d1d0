// Package media implements the image pipeline: download a remote
// attachment, transcode it to a size-capped WebP, upload it to the
// object store, and return the public URL plus dimensions. Failure of
// a single attachment is isolated; callers log and skip.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lakpahana/discord-forum/internal/errkind"
)

// allowedExtensions is the accepted set of attachment extensions.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true,
	".gif": true, ".webp": true, ".bmp": true, ".svg": true,
}

// Config holds the pipeline's size caps, loaded from IMAGE_MAX_MB/W/H.
type Config struct {
	MaxBytes int64
	MaxW     int
	MaxH     int
}

// DefaultConfig returns the canonical caps (10 MB, 1920x1080).
func DefaultConfig() Config {
	return Config{MaxBytes: 10 * 1024 * 1024, MaxW: 1920, MaxH: 1080}
}

// Uploader is the object-store boundary the pipeline uploads through.
// Concrete implementations (S3Uploader) live beside this interface so
// the transform logic can be tested without network access.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) (publicURL string, err error)
}

// Result is what the Reconciler embeds into a post's body_html as an
// <img> tag.
type Result struct {
	URL       string
	Width     int
	Height    int
	SizeBytes int
}

// Pipeline wires a downloader and an Uploader behind the transform.
type Pipeline struct {
	httpClient *http.Client
	uploader   Uploader
	cfg        Config
}

// New constructs a Pipeline. httpClient may be nil to use http.DefaultClient.
func New(httpClient *http.Client, uploader Uploader, cfg Config) *Pipeline {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Pipeline{httpClient: httpClient, uploader: uploader, cfg: cfg}
}

// ProcessAttachment runs one attachment URL through the whole
// pipeline. A returned error is always per-entity (errkind.PerEntity): the
// caller's contract is to log it and persist the enclosing post
// without this image, never to abort the whole reconciliation.
func (p *Pipeline) ProcessAttachment(ctx context.Context, attachmentURL, filename string) (Result, error) {
	if !hasAllowedExtension(attachmentURL) {
		return Result{}, errkind.Wrap(errkind.PerEntity, fmt.Errorf("media: extension of %q is not in the allowlist", attachmentURL))
	}

	raw, err := p.download(ctx, attachmentURL)
	if err != nil {
		return Result{}, errkind.Wrap(errkind.PerEntity, err)
	}

	encoded, width, height, err := transform(raw, p.cfg)
	if err != nil {
		return Result{}, errkind.Wrap(errkind.PerEntity, fmt.Errorf("media: transforming %q: %w", attachmentURL, err))
	}

	now := time.Now().UTC()
	key := ObjectKey(encoded, now)

	publicURL, err := p.uploader.Upload(ctx, key, encoded, "image/webp", map[string]string{
		"original-filename": filename,
		"processed-at":      now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return Result{}, errkind.Wrap(errkind.PerEntity, fmt.Errorf("media: uploading %q: %w", key, err))
	}

	return Result{URL: publicURL, Width: width, Height: height, SizeBytes: len(encoded)}, nil
}

// hasAllowedExtension checks the URL path's extension (query string
// stripped).
func hasAllowedExtension(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(path.Ext(parsed.Path))
	return allowedExtensions[ext]
}

// download streams the attachment with a bound on both the declared
// Content-Length and the actual bytes read.
func (p *Pipeline) download(ctx context.Context, attachmentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("media: building request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: fetching %q: %w", attachmentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: fetching %q: unexpected status %d", attachmentURL, resp.StatusCode)
	}
	if resp.ContentLength > p.cfg.MaxBytes {
		return nil, fmt.Errorf("media: %q declares %d bytes, exceeding the %d byte cap", attachmentURL, resp.ContentLength, p.cfg.MaxBytes)
	}

	limited := io.LimitReader(resp.Body, p.cfg.MaxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("media: reading body of %q: %w", attachmentURL, err)
	}
	if int64(len(body)) > p.cfg.MaxBytes {
		return nil, fmt.Errorf("media: %q exceeded the %d byte cap mid-stream", attachmentURL, p.cfg.MaxBytes)
	}
	return body, nil
}

// transform auto-orients, strips metadata (imaging.Decode/Encode never
// carries it forward), resizes fit=inside without enlargement, and
// re-encodes to WebP quality 85.
func transform(raw []byte, cfg Config) (encoded []byte, width, height int, err error) {
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decoding image: %w", err)
	}

	resized := fitInsideNoEnlarge(img, cfg.MaxW, cfg.MaxH)
	bounds := resized.Bounds()

	var buf bytes.Buffer
	if err := encodeWebP(&buf, resized); err != nil {
		return nil, 0, 0, fmt.Errorf("encoding webp: %w", err)
	}

	return buf.Bytes(), bounds.Dx(), bounds.Dy(), nil
}

// fitInsideNoEnlarge scales img down to fit within maxW x maxH while
// preserving aspect ratio, but never scales up an image already
// smaller than the box.
func fitInsideNoEnlarge(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxW && bounds.Dy() <= maxH {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}

// ObjectKey derives the content-hashed key
// YYYY/MM/{sha256(content || iso_timestamp)[:16]}.webp. The timestamp
// salt means re-processing the same bytes produces a new key every
// time; the pipeline deliberately does not deduplicate, and relies on
// the surrounding upsert's idempotence to bound storage.
func ObjectKey(content []byte, now time.Time) string {
	iso := now.Format(time.RFC3339Nano)
	sum := sha256.Sum256(append(append([]byte{}, content...), []byte(iso)...))
	hash16 := hex.EncodeToString(sum[:])[:16]
	return fmt.Sprintf("%04d/%02d/%s.webp", now.Year(), now.Month(), hash16)
}
