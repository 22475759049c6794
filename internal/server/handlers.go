package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"mediagate/internal/downloader"
	"mediagate/pkg/apikey"
	apperrors "mediagate/pkg/errors"
	"mediagate/pkg/instagram"
	"mediagate/pkg/logger"
	"mediagate/pkg/progress"
	"mediagate/pkg/storage"
)

const (
	rateLimitMessage = "Rate limit exceeded. Try again after 24 hours."
	maxBodyBytes     = 1 << 20
)

type channelRequest struct {
	ChannelURL string `json:"channel_url"`
}

type downloadRequest struct {
	URL string `json:"url"`
}

type downloadResponse struct {
	DownloadID string `json:"download_id"`
	Kind       string `json:"kind"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "YouTube Channel Data API is Running!",
		"status":  "OK",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// admit runs the rate limiter for the caller and writes the rejection
// itself. It returns false when the handler must stop.
func (s *Server) admit(w http.ResponseWriter, r *http.Request) bool {
	client := ClientKey(r, s.cfg.TrustForwardedFor)

	d, err := s.limiter.Decide(r.Context(), client)
	if err != nil {
		s.writeError(w, r, apperrors.Internal("Internal server error", err))
		return false
	}

	s.metrics.observeAdmission(d.Allowed)
	logger.LogAdmission(s.logger.WithContext(r.Context()), client, d.Allowed, d.Attempts)

	if !d.Allowed {
		seconds := int(d.RetryAfter(s.now()).Seconds())
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		s.writeError(w, r, apperrors.RateLimited(rateLimitMessage))
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrorTypeValidation, "Invalid request body", err)
	}
	return nil
}

// handleFetchChannelData counts the request against the caller's quota
// before looking at the body, so malformed requests use quota too
func (s *Server) handleFetchChannelData(w http.ResponseWriter, r *http.Request) {
	if !s.admit(w, r) {
		return
	}

	var req channelRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	ch, err := s.channels.Lookup(r.Context(), strings.TrimSpace(req.ChannelURL))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleInstagramPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, nil); err != nil {
		s.logger.WithContext(r.Context()).WithError(err).Error("Failed to render page")
	}
}

// handleDownload only charges quota for URLs it can actually download. An
// admitted request stays charged when the pool then refuses the job.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	kind, ok := instagram.Classify(req.URL)
	if !ok {
		s.writeError(w, r, apperrors.Validation("Unsupported Instagram URL"))
		return
	}

	if !s.admit(w, r) {
		return
	}

	job := downloader.NewJob(instagram.Normalize(req.URL), kind)
	if err := s.pool.Submit(job); err != nil {
		apiErr := apperrors.Upstream("Download service unavailable", err)
		if errors.Is(err, downloader.ErrQueueFull) {
			apiErr.Message = "Download queue is full"
		}
		apiErr.Code = http.StatusServiceUnavailable
		s.writeError(w, r, apiErr)
		return
	}

	writeJSON(w, http.StatusAccepted, downloadResponse{DownloadID: job.ID, Kind: string(kind)})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress.ServeSSE(w, r, s.hub, chi.URLParam(r, "id"))
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if strings.HasSuffix(name, storage.SidecarSuffix) {
		s.writeError(w, r, apperrors.NotFound("File not found"))
		return
	}

	path, err := s.library.Resolve(name)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) || errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, r, apperrors.NotFound("File not found"))
			return
		}
		s.writeError(w, r, apperrors.Internal("Failed to open file", err))
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleGenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, rec, err := s.keys.Issue(r.Context(), ClientKey(r, s.cfg.TrustForwardedFor))
	if err != nil {
		s.writeError(w, r, apperrors.Internal("Failed to generate API key", err))
		return
	}

	s.logger.WithContext(r.Context()).InfoWithFields("API key issued", map[string]interface{}{
		"key_id": rec.ID,
		"owner":  rec.Owner,
	})
	writeJSON(w, http.StatusOK, map[string]string{"api_key": key})
}

func (s *Server) handleRevokeAPIKey(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get(APIKeyHeader)
	if key == "" {
		s.writeError(w, r, apperrors.New(apperrors.ErrorTypeAuth, "Missing API key"))
		return
	}

	if err := s.keys.Revoke(r.Context(), key); err != nil {
		if errors.Is(err, apikey.ErrInvalidKey) || errors.Is(err, apikey.ErrRevokedKey) {
			s.writeError(w, r, apperrors.Wrap(apperrors.ErrorTypeAuth, "Invalid API key", err))
			return
		}
		s.writeError(w, r, apperrors.Internal("Failed to revoke API key", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
