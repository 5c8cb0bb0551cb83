package attachment

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/logging"
	"github.com/RexQian/wcf-gateway/internal/wcf"
)

// DefaultInterval is the pause between empty decrypt polls.
const DefaultInterval = time.Second

// Retrieval kinds reported to the Observer.
const (
	KindImage = "image"
	KindFile  = "file"
)

// Descriptor identifies an attachment carried by a message.
type Descriptor struct {
	ID    uint64
	Thumb string
	Extra string
}

// Observer is notified once per pipeline run.
type Observer interface {
	ObserveRetrieval(kind string, polls int, elapsed time.Duration, err error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retriever runs the download and poll phases against a guarded backend.
type Retriever struct {
	guard    *wcf.Guard
	interval time.Duration
	sleep    SleepFunc
	observer Observer
	logger   *logging.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithInterval overrides DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(r *Retriever) { r.interval = d }
}

// WithSleep replaces the sleep between polls. Tests use it to count sleeps.
func WithSleep(fn SleepFunc) Option {
	return func(r *Retriever) { r.sleep = fn }
}

// WithObserver reports each run to o.
func WithObserver(o Observer) Option {
	return func(r *Retriever) { r.observer = o }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Retriever) { r.logger = logger.With("component", "attachment") }
}

// New returns a Retriever using guard for every backend call.
func New(guard *wcf.Guard, opts ...Option) *Retriever {
	r := &Retriever{
		guard:    guard,
		interval: DefaultInterval,
		sleep:    sleepContext,
		logger:   logging.Default().With("component", "attachment"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SaveImage downloads an image attachment and waits for it to be decrypted
// into dir. It returns the decrypted file path.
//
// The thumbnail reference is not used for images.
func (r *Retriever) SaveImage(ctx context.Context, d Descriptor, dir string, timeout uint8) (string, error) {
	start := time.Now()
	d.Thumb = ""

	var polls int
	path, err := func() (string, error) {
		if err := r.Download(ctx, d); err != nil {
			return "", err
		}
		var p string
		var err error
		p, polls, err = r.Resolve(ctx, d.Extra, dir, timeout)
		return p, err
	}()

	r.observe(KindImage, polls, start, err)
	return path, err
}

// SaveFile downloads a file attachment. Files are not encrypted, so the
// path is the descriptor's Extra once the backend accepts the download.
func (r *Retriever) SaveFile(ctx context.Context, d Descriptor) (string, error) {
	start := time.Now()
	err := r.Download(ctx, d)
	r.observe(KindFile, 0, start, err)
	if err != nil {
		return "", err
	}
	return d.Extra, nil
}

// Download makes the single download_attach call for d.
func (r *Retriever) Download(ctx context.Context, d Descriptor) error {
	ok, err := wcf.Call(ctx, r.guard, wcf.OpDownloadAttach, func(ctx context.Context, c wcf.Client) (bool, error) {
		return c.DownloadAttach(ctx, wcf.AttachMsg{ID: d.ID, Thumb: d.Thumb, Extra: d.Extra})
	})
	if err != nil {
		return err
	}
	if !ok {
		return ErrDownloadRejected
	}
	return nil
}

// Resolve polls decrypt_image until the backend returns a
// path, making at most timeout calls and sleeping one interval between
// them. polls is the number of calls made; timeout 0 makes none.
//
// A backend error aborts immediately. Cancelling ctx cuts the current
// sleep short and returns ctx.Err().
func (r *Retriever) Resolve(ctx context.Context, src, dir string, timeout uint8) (path string, polls int, err error) {
	for polls < int(timeout) {
		path, err = wcf.Call(ctx, r.guard, wcf.OpDecryptImage, func(ctx context.Context, c wcf.Client) (string, error) {
			return c.DecryptImage(ctx, wcf.DecPath{Src: src, Dst: dir})
		})
		polls++
		if err != nil {
			return "", polls, err
		}
		if path != "" {
			return path, polls, nil
		}
		if polls == int(timeout) {
			break
		}
		if err := r.sleep(ctx, r.interval); err != nil {
			return "", polls, err
		}
	}
	return "", polls, ErrDownloadTimeout
}

// ReadFile reads a resolved attachment. Errors wrap ErrReadFile.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFile, err)
	}
	return data, nil
}

func (r *Retriever) observe(kind string, polls int, start time.Time, err error) {
	elapsed := time.Since(start)
	if err != nil {
		r.logger.Warn("attachment retrieval failed", "kind", kind, "polls", polls, "error", err)
	} else {
		r.logger.Debug("attachment retrieved", "kind", kind, "polls", polls, "duration_ms", elapsed.Milliseconds())
	}
	if r.observer != nil {
		r.observer.ObserveRetrieval(kind, polls, elapsed, err)
	}
}
