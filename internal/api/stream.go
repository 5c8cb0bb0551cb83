package api

import (
	"net/http"
	"strconv"

	"github.com/RexQian/wcf-gateway/internal/attachment"
	"github.com/RexQian/wcf-gateway/internal/media"
)

func parseDownloadImage(q *query) saveImageRequest {
	return saveImageRequest{
		ID:      q.Uint64("id"),
		Extra:   q.Required("extra"),
		Dir:     q.Required("dir"),
		Timeout: q.Uint8("timeout"),
	}
}

func parseDownloadFile(q *query) saveFileRequest {
	return saveFileRequest{
		ID:    q.Uint64("id"),
		Extra: q.Required("extra"),
		Thumb: q.Optional("thumb"),
	}
}

// handleDownloadImage runs the image pipeline and streams the result.
func (s *Server) handleDownloadImage(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r, parseDownloadImage)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	path, err := s.saveImage(r.Context(), req)
	if err != nil {
		writePlainError(w, err.Error())
		return
	}
	s.streamFile(w, path, media.ImageContentType(path))
}

// handleDownloadFile downloads a file attachment and streams it.
func (s *Server) handleDownloadFile(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r, parseDownloadFile)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	path, err := s.saveFile(r.Context(), req)
	if err != nil {
		writePlainError(w, err.Error())
		return
	}
	s.streamFile(w, path, media.FileContentType(path))
}

// streamFile writes the whole file at path with the given content type.
func (s *Server) streamFile(w http.ResponseWriter, path, contentType string) {
	data, err := attachment.ReadFile(path)
	if err != nil {
		s.logger.Warn("attachment read failed", "path", path, "error", err)
		writePlainError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write; client may have gone away
	w.Write(data)
}
