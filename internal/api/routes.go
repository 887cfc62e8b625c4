package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/assets"
	"github.com/heimdex/heimdex-editor/internal/cloud"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/project"
	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(LoopbackGuard())
		r.Get("/media/{assetId}", mediaHandler(cfg))
		r.Head("/media/{assetId}", mediaHandler(cfg))
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Config, cfg.Logger))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))
		r.Get("/projects/{id}/exports", listProjectExportsHandler(cfg))

		r.Get("/assets", listAssetsHandler(cfg))
		r.Post("/assets", uploadAssetHandler(cfg))
		r.Post("/assets/import", importAssetHandler(cfg))

		r.Get("/sessions", listSessionsHandler(cfg))
		r.Post("/sessions", createSessionHandler(cfg))
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionStateHandler(cfg))
			r.Delete("/", closeSessionHandler(cfg))

			r.Post("/clips", appendClipHandler(cfg))
			r.Delete("/clips/{clipId}", removeClipHandler(cfg))
			r.Post("/clips/{clipId}/split", splitClipHandler(cfg))
			r.Post("/clips/{clipId}/move", moveClipHandler(cfg))

			r.Post("/audio", addAudioHandler(cfg))
			r.Delete("/audio/{trackId}", removeAudioHandler(cfg))
			r.Put("/audio/{trackId}/volume", audioVolumeHandler(cfg))

			r.Put("/tool", toolHandler(cfg))
			r.Post("/click", clickHandler(cfg))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/play", playHandler(cfg))
			r.Post("/pause", pauseHandler(cfg))
			r.Post("/media/timeupdate", timeUpdateHandler(cfg))
			r.Post("/media/ended", endedHandler(cfg))

			r.Post("/save", saveHandler(cfg))
			r.Post("/exports", startExportHandler(cfg))
			r.Get("/exports/{jobId}", exportStatusHandler(cfg))
			r.Get("/edl", edlHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		sessions := 0
		if cfg.Sessions != nil {
			sessions = len(cfg.Sessions.IDs())
		}
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  cfg.Version,
			UptimeS:  uptime,
			Sessions: sessions,
			Remote:   cfg.Remote,
		})
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		err := cfg.Media.ServeAsset(w, r, assetID)
		if errors.Is(err, playback.ErrMediaNotFound) {
			WriteError(w, http.StatusNotFound, "media not found", "NOT_FOUND")
			return
		}
		if err != nil {
			cfg.Logger.Error("media error", "error", err, "asset_id", assetID)
		}
	}
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// writeDomainError maps service errors onto HTTP statuses and error codes.
func writeDomainError(w http.ResponseWriter, cfg ServerConfig, err error) {
	var apiErr *cloud.APIError
	switch {
	case errors.Is(err, errBadRequest):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, assets.ErrNotFound),
		errors.Is(err, timeline.ErrClipNotFound),
		errors.Is(err, timeline.ErrTrackNotFound),
		errors.Is(err, render.ErrJobNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, session.ErrUnknownTool),
		errors.Is(err, render.ErrInvalidSettings),
		errors.Is(err, timeline.ErrInvalidAsset),
		errors.Is(err, timeline.ErrInvalidClip):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, assets.ErrUnsupportedFormat):
		WriteError(w, http.StatusUnsupportedMediaType, err.Error(), "UNSUPPORTED_FORMAT")
	case errors.Is(err, assets.ErrQuotaExceeded):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error(), "QUOTA_EXCEEDED")
	case errors.Is(err, render.ErrNoProject):
		WriteError(w, http.StatusConflict, err.Error(), "PROJECT_NOT_SAVED")
	case errors.Is(err, render.ErrEmptyTimeline):
		WriteError(w, http.StatusConflict, err.Error(), "EMPTY_TIMELINE")
	case errors.Is(err, session.ErrClosed):
		WriteError(w, http.StatusGone, err.Error(), "SESSION_CLOSED")
	case errors.Is(err, cloud.ErrNotConfigured):
		WriteError(w, http.StatusServiceUnavailable, err.Error(), "NOT_CONFIGURED")
	case errors.As(err, &apiErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_ERROR")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		WriteError(w, http.StatusServiceUnavailable, "request timed out", "TIMEOUT")
	default:
		cfg.Logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.List(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}
		if projects == nil {
			projects = []*project.Summary{}
		}
		WriteJSON(w, http.StatusOK, map[string]any{"projects": projects})
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if s := cfg.Sessions.FindProject(id); s != nil {
			WriteError(w, http.StatusConflict, "project is open in a session", "PROJECT_OPEN")
			return
		}
		if err := cfg.Projects.Delete(r.Context(), id); err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listProjectExportsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exports, err := cfg.Projects.Exports(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		if exports == nil {
			exports = []render.Progress{}
		}
		WriteJSON(w, http.StatusOK, ExportsResponse{Exports: exports})
	}
}
