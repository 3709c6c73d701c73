package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/avatars"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/presence"
)

const maxAvatarUploadBytes = 32 << 20

// UploadAvatarHandler replaces a session's avatar frames from a multipart
// upload. Only PNG parts are kept.
type UploadAvatarHandler struct {
	Presence *presence.Service
	Avatars  *avatars.Store
}

func (h UploadAvatarHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session"))
	if !h.Presence.IsValid(sessionID) {
		writeError(w, r, core.NewInvalidSessionError("unknown session id"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarUploadBytes)
	if err := r.ParseMultipartForm(maxAvatarUploadBytes); err != nil {
		writeError(w, r, core.NewInvalidRequestError("request body must be multipart form data"))
		return
	}

	var files []avatars.File
	for _, headers := range r.MultipartForm.File {
		for _, header := range headers {
			part, err := header.Open()
			if err != nil {
				writeError(w, r, core.NewInvalidRequestError("unreadable file part"))
				return
			}
			data, err := io.ReadAll(part)
			part.Close()
			if err != nil {
				writeError(w, r, core.NewInvalidRequestError("unreadable file part"))
				return
			}
			files = append(files, avatars.File{Filename: header.Filename, Data: data})
		}
	}
	if len(files) == 0 {
		writeError(w, r, core.NewInvalidRequestError("no files in upload"))
		return
	}

	written, err := h.Avatars.Replace(sessionID, files)
	if err != nil {
		writeError(w, r, core.NewAPIError("failed to store avatars"))
		return
	}

	names := make([]string, len(written))
	for i, f := range written {
		names[i] = f.Filename
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "avatars uploaded",
		"files":   names,
	})
}

type avatarEntry struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// GetAvatarsHandler lists another user's avatar frames. Reading someone
// else's frames requires a consent edge toward their session.
type GetAvatarsHandler struct {
	Presence *presence.Service
	Avatars  *avatars.Store
}

func (h GetAvatarsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session"))
	identity := strings.TrimSpace(r.PathValue("identity"))
	if !h.Presence.IsValid(sessionID) {
		writeError(w, r, core.NewInvalidSessionError("unknown session id"))
		return
	}
	targetSession, ok := h.Presence.SessionOf(identity)
	if !ok {
		writeError(w, r, core.NewInvalidIdentityError("identity has no bound session"))
		return
	}
	if targetSession != sessionID && !h.Presence.IsAllowed(sessionID, targetSession) {
		writeError(w, r, core.NewNotAuthorizedError("not allowed to read this identity"))
		return
	}

	files, ok, err := h.Avatars.List(targetSession)
	if err != nil {
		writeError(w, r, core.NewAPIError("failed to read avatars"))
		return
	}
	if !ok || len(files) == 0 {
		writeError(w, r, core.NewNoDataError("No data available!"))
		return
	}

	entries := make([]avatarEntry, len(files))
	for i, f := range files {
		entries[i] = avatarEntry{Filename: f.Filename, Data: f.Data}
	}
	writeJSON(w, http.StatusOK, map[string]any{"avatars": entries})
}
