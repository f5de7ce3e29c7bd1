package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

var (
	ErrLogoTooLarge = errors.New("logo exceeds size limit")
	ErrLogoSource   = errors.New("unsupported logo source")
)

const (
	DefaultLogoLimit   = 2 << 20
	DefaultLogoTimeout = 5 * time.Second
	DefaultLogoPixels  = 4096 * 4096
)

// LogoLoader fetches and decodes the image referenced by a logoUrl setting.
type LogoLoader interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Loader resolves data: URIs, http(s) URLs and, when AllowFiles is set, local paths.
type Loader struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	// MaxPixels bounds the decoded width*height.
	MaxPixels  int
	AllowFiles bool
}

func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(ref, "data:"):
		data, err = decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		data, err = l.fetch(ctx, ref)
	case l.AllowFiles:
		data, err = l.readFile(ref)
	default:
		return nil, fmt.Errorf("%w: %q", ErrLogoSource, ref)
	}
	if err != nil {
		return nil, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > l.maxPixels()/cfg.Height {
		return nil, fmt.Errorf("%w: %dx%d pixels", ErrLogoTooLarge, cfg.Width, cfg.Height)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}
	return img, nil
}

func (l *Loader) maxPixels() int {
	if l.MaxPixels > 0 {
		return l.MaxPixels
	}
	return DefaultLogoPixels
}

func (l *Loader) limit() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return DefaultLogoLimit
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultLogoTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch logo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch logo: unexpected status %s", resp.Status)
	}
	return readLimited(resp.Body, l.limit())
}

func (l *Loader) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLimited(f, l.limit())
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrLogoTooLarge
	}
	return data, nil
}

// decodeDataURI accepts data:[<mediatype>][;base64],<data>.
func decodeDataURI(ref string) ([]byte, error) {
	meta, body, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data URI", ErrLogoSource)
	}
	if strings.HasSuffix(meta, ";base64") {
		data, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return nil, fmt.Errorf("data URI: %w", err)
		}
		return data, nil
	}
	s, err := url.PathUnescape(body)
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return []byte(s), nil
}
