package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/core"
	"github.com/AwesomeSauce-Software/gooftuber-server/pkg/gateway/mw"
)

type errorEnvelope struct {
	Error *core.Error `json:"error"`
}

// statusForType maps the error taxonomy onto HTTP statuses.
func statusForType(t core.ErrorType) int {
	switch t {
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrInvalidSession:
		return http.StatusUnauthorized
	case core.ErrInvalidIdentity:
		return http.StatusNotFound
	case core.ErrInvalidInvite:
		return http.StatusUnauthorized
	case core.ErrCodeExpired:
		return http.StatusBadRequest
	case core.ErrCodeIncorrect:
		return http.StatusUnauthorized
	case core.ErrNotAuthorized:
		return http.StatusForbidden
	case core.ErrNoData:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders any error as the canonical JSON envelope. Non-canonical
// errors become opaque api_errors so internals never leak to clients.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())

	var coreErr *core.Error
	if !errors.As(err, &coreErr) {
		coreErr = core.NewAPIError("internal error")
	}
	if coreErr.RequestID == "" {
		coreErr.RequestID = reqID
	}
	writeJSON(w, statusForType(coreErr.Type), errorEnvelope{Error: coreErr})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
