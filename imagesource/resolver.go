// Package imagesource turns scene image sources into decoded pixels.
//
// Inline sources are decoded in memory without any network access. Remote
// sources are fetched over HTTP under a bounded timeout. Both paths register
// the standard library decoders plus BMP, TIFF and WebP from golang.org/x/image.
package imagesource

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/ByLCY/easel/scene"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 32 << 20
)

var (
	// ErrDecode marks payloads that could not be decoded as an image.
	ErrDecode = errors.New("image decode failed")
	// ErrFetch marks remote sources that could not be retrieved.
	ErrFetch = errors.New("image fetch failed")
	// ErrTimeout marks remote fetches that exceeded the configured timeout.
	ErrTimeout = errors.New("image fetch timed out")
)

// Options configures a Resolver.
type Options struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	Logger   hclog.Logger
}

// Resolver decodes inline sources and fetches remote ones. It holds no
// per-render state and may be shared by concurrent renders.
type Resolver struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   hclog.Logger
}

// New returns a Resolver with defaults filled in.
func New(opts Options) *Resolver {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	return &Resolver{
		client:   opts.Client,
		timeout:  opts.Timeout,
		maxBytes: opts.MaxBytes,
		logger:   opts.Logger.Named("imagesource"),
	}
}

// Timeout reports the per-fetch deadline.
func (r *Resolver) Timeout() time.Duration { return r.timeout }

// Resolve returns the decoded image for src.
func (r *Resolver) Resolve(ctx context.Context, src scene.Source) (image.Image, error) {
	switch s := src.(type) {
	case *scene.InlineSource:
		return DecodeInline(s)
	case *scene.RemoteSource:
		return r.fetch(ctx, s.URL)
	case nil:
		return nil, fmt.Errorf("%w: missing source", ErrDecode)
	default:
		return nil, fmt.Errorf("%w: unsupported source %T", ErrDecode, src)
	}
}

// DecodeInline decodes already-unwrapped image bytes. A declared media type
// outside image/* is rejected before decoding.
func DecodeInline(src *scene.InlineSource) (image.Image, error) {
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: empty inline payload", ErrDecode)
	}
	if err := checkMediaType(src.MediaType); err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return img, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, r.fetchError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, url, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, r.fetchError(ctx, err)
	}
	if int64(len(body)) > r.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetch, url, r.maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, url, err)
	}
	r.logger.Debug("fetched remote image", "url", url, "format", format,
		"bytes", len(body), "elapsed", time.Since(start))
	return img, nil
}

func (r *Resolver) fetchError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrTimeout, r.timeout, err)
	}
	return fmt.Errorf("%w: %w", ErrFetch, err)
}

func checkMediaType(mediaType string) error {
	if mediaType == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return fmt.Errorf("%w: media type %q: %w", ErrDecode, mediaType, err)
	}
	if !strings.HasPrefix(mt, "image/") {
		return fmt.Errorf("%w: media type %q is not an image", ErrDecode, mediaType)
	}
	return nil
}
