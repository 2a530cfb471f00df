package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/ivlev/png2gif/internal/config"
	"github.com/ivlev/png2gif/internal/ctxlog"
	"github.com/ivlev/png2gif/internal/engine"
	"github.com/ivlev/png2gif/internal/share"
)

type errorResponse struct {
	Error string `json:"error"`
}

type fileResponse struct {
	Path   string `json:"path"`
	URL    string `json:"url,omitempty"`
	Frames int    `json:"frames"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps assembly errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNoInputFrames), errors.Is(err, engine.ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctxlog.FromContext(r.Context()).Error("error creating gif", "error", err)
	writeJSON(w, statusFor(err), errorResponse{Error: "Failed to create GIF: " + err.Error()})
}

// acquire reserves an assembly slot or answers 503.
func (s *Server) acquire(w http.ResponseWriter) bool {
	if !s.slots.TryAcquire(1) {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Too many GIF requests in progress"})
		return false
	}
	return true
}

func (s *Server) handleCreateGIF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}
	if !s.acquire(w) {
		return
	}
	defer s.slots.Release(1)

	res, err := s.assembler.Assemble(s.cfg.Assembly)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if limit := s.cfg.Server.MaxResponseBytes; limit > 0 && int64(len(res.Data)) > limit {
		s.fail(w, r, fmt.Errorf("gif is %d bytes, response limit is %d", len(res.Data), limit))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/gif")
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Data); err != nil {
		ctxlog.FromContext(r.Context()).Warn("write gif response", "error", err)
	}
}

func (s *Server) handleCreateGIFFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}
	if !s.acquire(w) {
		return
	}
	defer s.slots.Release(1)

	dir := s.cfg.Server.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", engine.ErrWrite, err))
		return
	}
	// Уникальное имя: параллельные запросы не пишут в один файл.
	out := config.OutputConfig{
		Path:       filepath.Join(dir, "gif_"+uuid.NewString()+".gif"),
		PublicRoot: s.cfg.Output.PublicRoot,
	}

	res, err := s.assembler.AssembleToFile(s.cfg.Assembly, out)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := fileResponse{
		Path:   res.RelativePath,
		Frames: res.Frames,
		Width:  res.Width,
		Height: res.Height,
	}
	if res.RelativePath != "" {
		if u, err := share.PublicURL(s.cfg.Server.BaseURL, res.RelativePath); err == nil {
			resp.URL = u
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShareQR(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	u, err := share.PublicURL(s.cfg.Server.BaseURL, rel)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if _, err := os.Stat(filepath.Join(s.cfg.Output.PublicRoot, filepath.FromSlash(rel))); err != nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "File not found"})
		return
	}

	size := share.DefaultQRSize
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 2048 {
			size = n
		}
	}

	png, err := share.QRCode(u, size)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	_, _ = w.Write(png)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(r.Context()).Debug("health check endpoint hit")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
