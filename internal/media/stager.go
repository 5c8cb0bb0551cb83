package media

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

const (
	stagingDirPermissions  = 0o750
	stagingFilePermissions = 0o640

	defaultFetchTimeout  = 30 * time.Second
	defaultMaxFetchBytes = 20 << 20
)

// Staging errors.
var (
	ErrInvalidBase64 = errors.New("invalid base64 image")
	ErrFetch         = errors.New("fetch image failed")
	ErrTooLarge      = errors.New("image too large")
)

// Stager writes outbound images to the staging directory.
type Stager struct {
	dir      string
	client   *http.Client
	maxBytes int64
}

// NewStager returns a Stager for cfg. A nil client uses a dedicated
// http.Client with cfg.FetchTimeout.
func NewStager(cfg config.MediaConfig, client *http.Client) *Stager {
	if client == nil {
		timeout := time.Duration(cfg.FetchTimeout) * time.Second
		if timeout <= 0 {
			timeout = defaultFetchTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxFetchBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFetchBytes
	}
	return &Stager{dir: cfg.StagingDir, client: client, maxBytes: maxBytes}
}

// Dir returns the staging directory.
func (s *Stager) Dir() string {
	return s.dir
}

// StageImage returns msg with Path pointing at a local file.
//
//   - Base64 set: decoded into {dir}/{uuid}.{jpg|png}; the extension follows
//     Path (.jpg/.jpeg → jpg) and defaults to png.
//   - Path starting with "http": fetched; the extension follows the
//     response Content-Type (image/jpeg → jpg) and defaults to png.
//   - Otherwise msg is returned unchanged.
//
// Base64 is cleared in the returned message.
func (s *Stager) StageImage(ctx context.Context, msg wcf.PathMsg) (wcf.PathMsg, error) {
	var (
		path string
		err  error
	)
	switch {
	case msg.Base64 != "":
		path, err = s.stageBase64(msg.Base64, extFromPath(msg.Path))
	case strings.HasPrefix(msg.Path, "http"):
		path, err = s.stageURL(ctx, msg.Path)
	default:
		return msg, nil
	}
	if err != nil {
		return msg, err
	}

	msg.Path = path
	msg.Base64 = ""
	return msg, nil
}

func (s *Stager) stageBase64(payload, ext string) (string, error) {
	// Accept data URIs as well as bare base64.
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBase64, err)
	}
	return s.write(data, ext)
}

func (s *Stager) stageURL(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxBytes)
	}
	return s.write(data, extFromContentType(resp.Header.Get("Content-Type")))
}

func (s *Stager) write(data []byte, ext string) (string, error) {
	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", fmt.Errorf("resolving staging dir: %w", err)
	}
	if err := os.MkdirAll(dir, stagingDirPermissions); err != nil {
		return "", fmt.Errorf("creating staging dir: %w", err)
	}
	path := filepath.Join(dir, uuid.NewString()+"."+ext)
	if err := os.WriteFile(path, data, stagingFilePermissions); err != nil {
		return "", fmt.Errorf("writing staged image: %w", err)
	}
	return path, nil
}

func extFromPath(path string) string {
	if strings.HasSuffix(path, ".jpg") || strings.HasSuffix(path, ".jpeg") {
		return "jpg"
	}
	return "png"
}

func extFromContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil && mediaType == "image/jpeg" {
		return "jpg"
	}
	return "png"
}
