package apihttp

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"

	"torrentstream/internal/domain"
	"torrentstream/internal/streaming"
)

// parseOptionalIntQuery returns nil when the query value is absent, and a
// parse error for a present-but-malformed one.
func parseOptionalIntQuery(r *http.Request, key string) (*int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/start/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}

	fileIdx, err1 := parseOptionalIntQuery(r, "fileIdx")
	season, err2 := parseOptionalIntQuery(r, "season")
	episode, err3 := parseOptionalIntQuery(r, "episode")
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, r, http.StatusBadRequest, "invalid query parameter")
		return
	}

	t, err := s.engine.StartTorrent(hash, fileIdx, season, episode)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "started",
		"hash":    hash,
		"fileIdx": t.RequestedFileIndex,
		"season":  t.RequestedSeason,
		"episode": t.RequestedEpisode,
	})
}

// statusResponse mirrors the Control API's status payload: all fields present,
// null where unknown.
type statusResponse struct {
	Status        string   `json:"status"`
	MetadataReady bool     `json:"metadataReady"`
	FileName      *string  `json:"fileName"`
	FileSize      *int64   `json:"fileSize"`
	FileIdx       *int     `json:"fileIdx"`
	TotalFiles    *int     `json:"totalFiles"`
	Duration      *float64 `json:"duration"`
	Peers         *int     `json:"peers"`
	Seeds         *int     `json:"seeds"`
	Speed         *string  `json:"speed"`
	Progress      *string  `json:"progress"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/status/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}

	t, ok := s.engine.GetState(hash)
	if !ok {
		// An unknown hash is not an error: it was either never started, or
		// was just removed by /stop. Report it rather than 404.
		writeJSON(w, http.StatusOK, statusResponse{Status: "not_started"})
		return
	}

	resp := statusResponse{
		Status:        string(t.Status),
		MetadataReady: t.MetadataReady,
	}
	if t.MetadataReady {
		name := t.SelectedFileName
		size := t.SelectedFileSize
		idx := t.SelectedFileIndex
		total := t.TotalFiles
		resp.FileName = &name
		resp.FileSize = &size
		resp.FileIdx = &idx
		resp.TotalFiles = &total
	}
	if live, ok := s.engine.GetStatus(hash); ok {
		peers := live.Peers
		seeds := live.Seeds
		speed := fmt.Sprintf("%.2f", float64(live.DownloadRateBps)/1024)
		progress := fmt.Sprintf("%.1f", live.Progress*100)
		resp.Peers = &peers
		resp.Seeds = &seeds
		resp.Speed = &speed
		resp.Progress = &progress
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/pause/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}
	if err := s.engine.PauseTorrent(hash); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "paused", "hash": hash})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/stop/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}
	if err := s.engine.RemoveTorrent(hash); err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "removed", "hash": hash})
}

func (s *Server) handleMetered(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("value")
	on, err := strconv.ParseBool(value)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid value parameter")
		return
	}
	s.engine.SetMeteredMode(on)
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "metered": on})
}

// handleProxy implements the Range-Aware Streaming Proxy route.
func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	hash, err := hashFromPath(r, "/proxy/")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid info hash")
		return
	}

	t, err := waitForMetadata(r.Context(), s.engine, hash)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}

	size := t.SelectedFileSize
	contentType := contentTypeFor(filepathExt(t.SelectedFileName))

	rangeHeader := r.Header.Get("Range")
	var start, end int64
	status := http.StatusOK
	if rangeHeader != "" {
		start, end, err = parseByteRange(rangeHeader, size)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid range")
			return
		}
		status = http.StatusPartialContent
	} else {
		start, end = 0, size-1
	}

	handle, err := streaming.Open(r.Context(), s.engine, hash, start, end)
	if err != nil {
		s.writeEngineError(w, r, err)
		return
	}
	defer handle.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(handle.ContentLength(), 10))
	if status == http.StatusPartialContent {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}

	buf := make([]byte, 64*1024)
	for {
		n, readErr := handle.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		if readErr != nil {
			return
		}
	}
}

func filepathExt(name string) string {
	return filepath.Ext(name)
}

func (s *Server) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownTorrent):
		writeError(w, r, http.StatusNotFound, "unknown torrent")
	case errors.Is(err, domain.ErrTorrentError):
		writeError(w, r, http.StatusInternalServerError, "torrent error")
	case errors.Is(err, domain.ErrNotReady):
		writeError(w, r, http.StatusServiceUnavailable, "metadata not ready")
	case errors.Is(err, domain.ErrPieceTimeout):
		writeError(w, r, http.StatusInternalServerError, "piece timeout")
	case errors.Is(err, domain.ErrBadRange):
		writeError(w, r, http.StatusBadRequest, "bad range")
	case errors.Is(err, domain.ErrEngineStopped):
		writeError(w, r, http.StatusServiceUnavailable, "engine stopped")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, "invalid input")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
