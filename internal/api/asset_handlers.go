package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/heimdex/heimdex-editor/internal/assets"
)

// uploadFormField is the multipart field carrying the media file.
const uploadFormField = "file"

func listAssetsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list := cfg.Assets.List()
		if list == nil {
			list = []*assets.Record{}
		}
		WriteJSON(w, http.StatusOK, AssetsResponse{Assets: list})
	}
}

// uploadAssetHandler streams a multipart upload into the asset store. The
// optional size query parameter declares the file length so the quota can be
// checked before any bytes are read.
func uploadAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		size := int64(-1)
		if v := r.URL.Query().Get("size"); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				WriteError(w, http.StatusBadRequest, "size must be a non-negative integer", "BAD_REQUEST")
				return
			}
			size = n
		}

		mr, err := r.MultipartReader()
		if err != nil {
			WriteError(w, http.StatusBadRequest, "expected multipart/form-data", "BAD_REQUEST")
			return
		}

		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				WriteError(w, http.StatusBadRequest, "missing file field", "BAD_REQUEST")
				return
			}
			if err != nil {
				WriteError(w, http.StatusBadRequest, "malformed multipart body", "BAD_REQUEST")
				return
			}
			if part.FormName() != uploadFormField || part.FileName() == "" {
				part.Close()
				continue
			}

			rec, err := cfg.Ingest.Upload(r.Context(), part.FileName(), size, part)
			part.Close()
			if err != nil {
				writeDomainError(w, cfg, err)
				return
			}
			WriteJSON(w, http.StatusCreated, rec)
			return
		}
	}
}

func importAssetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ImportRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.UserFileID) == "" {
			WriteError(w, http.StatusBadRequest, "userFileId is required", "BAD_REQUEST")
			return
		}

		rec, err := cfg.Ingest.ImportFromLibrary(r.Context(), req.UserFileID)
		if err != nil {
			writeDomainError(w, cfg, err)
			return
		}
		WriteJSON(w, http.StatusCreated, rec)
	}
}
