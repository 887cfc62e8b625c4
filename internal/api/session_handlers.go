package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/render"
	"github.com/heimdex/heimdex-editor/internal/session"
)

// sessionHandler resolves the {id} session and runs op against it, replying
// with the resulting session state.
func sessionHandler(cfg ServerConfig, op func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		st, err := op(r.Context(), s, r)
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, st)
	}
}

var errBadRequest = errors.New("invalid request body")

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadRequest
	}
	return nil
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, SessionsResponse{Sessions: cfg.Sessions.IDs()})
	}
}

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		var (
			s   *session.Session
			err error
		)
		if req.ProjectID != "" {
			s, err = cfg.Sessions.Open(r.Context(), req.ProjectID)
			if err != nil {
				writeDomainError(w, cfg, err)
				return
			}
		} else {
			s = cfg.Sessions.Create(req.Name, req.Description)
		}

		st, err := s.State(r.Context())
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusCreated, st)
	}
}

func sessionStateHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.State(ctx)
	})
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func appendClipHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req AppendClipRequest
		if err := decodeBody(r, &req); err != nil || req.AssetID == "" {
			return session.State{}, errBadRequest
		}
		return s.AppendClip(ctx, req.AssetID)
	})
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.RemoveClip(ctx, chi.URLParam(r, "clipId"))
	})
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req TimeRequest
		if err := decodeBody(r, &req); err != nil || req.Time == nil {
			return session.State{}, errBadRequest
		}
		return s.SplitClip(ctx, chi.URLParam(r, "clipId"), *req.Time)
	})
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req MoveClipRequest
		if err := decodeBody(r, &req); err != nil || req.Index == nil {
			return session.State{}, errBadRequest
		}
		return s.MoveClip(ctx, chi.URLParam(r, "clipId"), *req.Index)
	})
}

func addAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req AddAudioRequest
		if err := decodeBody(r, &req); err != nil || req.AssetID == "" {
			return session.State{}, errBadRequest
		}
		return s.AddAudioTrack(ctx, req.AssetID, req.StartTime)
	})
}

func removeAudioHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.RemoveAudioTrack(ctx, chi.URLParam(r, "trackId"))
	})
}

func audioVolumeHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req VolumeRequest
		if err := decodeBody(r, &req); err != nil || req.Volume == nil {
			return session.State{}, errBadRequest
		}
		return s.SetAudioVolume(ctx, chi.URLParam(r, "trackId"), *req.Volume)
	})
}

func toolHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req ToolRequest
		if err := decodeBody(r, &req); err != nil {
			return session.State{}, err
		}
		return s.SetTool(ctx, req.Tool)
	})
}

func clickHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req TimeRequest
		if err := decodeBody(r, &req); err != nil || req.Time == nil {
			return session.State{}, errBadRequest
		}
		return s.Click(ctx, *req.Time)
	})
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req TimeRequest
		if err := decodeBody(r, &req); err != nil || req.Time == nil {
			return session.State{}, errBadRequest
		}
		return s.Seek(ctx, *req.Time)
	})
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.Play(ctx)
	})
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.Pause(ctx)
	})
}

func timeUpdateHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req TimeUpdateRequest
		if err := decodeBody(r, &req); err != nil || req.Time == nil {
			return session.State{}, errBadRequest
		}
		return s.MediaTimeUpdate(ctx, req.Seq, *req.Time)
	})
}

func endedHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		var req EndedRequest
		if err := decodeBody(r, &req); err != nil {
			return session.State{}, err
		}
		return s.MediaEnded(ctx, req.Seq)
	})
}

func saveHandler(cfg ServerConfig) http.HandlerFunc {
	return sessionHandler(cfg, func(ctx context.Context, s *session.Session, r *http.Request) (session.State, error) {
		return s.Save(ctx)
	})
}

func startExportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		var req ExportRequest
		if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
			return
		}

		job, err := s.StartExport(r.Context(), render.Settings{Resolution: req.Resolution, Format: req.Format})
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, ExportResponse{
			JobID:         job.ID,
			ProjectID:     job.ProjectID,
			Settings:      job.Settings,
			TotalDuration: job.TotalDuration,
		})
	}
}

func exportStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		p, err := s.ExportProgress(r.Context(), chi.URLParam(r, "jobId"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func edlHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		name, body, err := s.EDL(r.Context())
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}
}
