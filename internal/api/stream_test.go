package api

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/RexQian/wcf-gateway/internal/wcf"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDownloadImage_Streams(t *testing.T) {
	env := testServer(t)
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 'd', 'a', 't', 'a'}
	path := writeTemp(t, "abc.jpg", jpeg)
	pollingFake(env, 1, path)

	w := env.do(http.MethodGet, "/download-image?id=1&extra=x.dat&dir=out&timeout=3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cl := w.Header().Get("Content-Length"); cl != strconv.Itoa(len(jpeg)) {
		t.Errorf("Content-Length = %q", cl)
	}
	if w.Body.String() != string(jpeg) {
		t.Errorf("body = %x", w.Body.Bytes())
	}
}

func TestDownloadImage_Failures(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		rejected bool
		wantCode int
		wantBody string
	}{
		{"timed out", "/download-image?id=1&extra=x.dat&dir=out&timeout=2", false, http.StatusInternalServerError, "download timed out"},
		{"rejected", "/download-image?id=1&extra=x.dat&dir=out&timeout=2", true, http.StatusInternalServerError, "download failed"},
		{"missing dir", "/download-image?id=1&extra=x.dat&timeout=2", false, http.StatusBadRequest, ""},
		{"timeout out of range", "/download-image?id=1&extra=x.dat&dir=out&timeout=256", false, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			pollingFake(env, 1000, "never")
			if tt.rejected {
				env.fake.DownloadAttachFunc = nil
			}

			w := env.do(http.MethodGet, tt.target, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusBadRequest {
				if n := len(env.fake.Calls()); n != 0 {
					t.Errorf("backend called %d times", n)
				}
				return
			}
			if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
				t.Errorf("Content-Type = %q", ct)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestDownloadFile_Streams(t *testing.T) {
	env := testServer(t)
	pdf := []byte("%PDF-1.4 test")
	path := writeTemp(t, "report.pdf", pdf)
	var attach wcf.AttachMsg
	env.fake.DownloadAttachFunc = func(_ context.Context, m wcf.AttachMsg) (bool, error) {
		attach = m
		return true, nil
	}

	w := env.do(http.MethodGet, "/download-file?id=5&extra="+url.QueryEscape(path), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Body.String() != string(pdf) {
		t.Errorf("body = %q", w.Body.String())
	}
	if attach.ID != 5 || attach.Extra != path || attach.Thumb != "" {
		t.Errorf("attach = %+v", attach)
	}
	if n := env.fake.CallCount(wcf.OpDecryptImage); n != 0 {
		t.Errorf("decrypt_image calls = %d, want 0", n)
	}
}

func TestDownloadFile_Failures(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.pdf")

	tests := []struct {
		name       string
		target     string
		rejected   bool
		wantCode   int
		wantPrefix string
	}{
		{"missing file", "/download-file?id=5&extra=" + url.QueryEscape(missing), false, http.StatusInternalServerError, "read file failed: "},
		{"rejected", "/download-file?id=5&extra=" + url.QueryEscape(missing), true, http.StatusInternalServerError, "download failed"},
		{"missing extra", "/download-file?id=5", false, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testServer(t)
			if !tt.rejected {
				env.fake.DownloadAttachFunc = func(context.Context, wcf.AttachMsg) (bool, error) { return true, nil }
			}

			w := env.do(http.MethodGet, tt.target, "")
			if w.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantCode)
			}
			if !strings.HasPrefix(w.Body.String(), tt.wantPrefix) {
				t.Errorf("body = %q, want prefix %q", w.Body.String(), tt.wantPrefix)
			}
		})
	}
}
