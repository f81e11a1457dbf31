package server

import (
	"encoding/json"
	"errors"
	"net/http"

	coreerrors "wagerchain/core/errors"
	"wagerchain/native/casino"
	"wagerchain/native/house"
	"wagerchain/native/referral"
)

var notFound = []error{
	house.ErrHouseNotFound,
	casino.ErrRoundNotFound,
	casino.ErrBetNotFound,
	referral.ErrNotRegistered,
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(err error) int {
	for _, target := range notFound {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	switch coreerrors.KindOf(err) {
	case coreerrors.KindValidation:
		return http.StatusBadRequest
	case coreerrors.KindAuthorization:
		return http.StatusForbidden
	case coreerrors.KindState:
		return http.StatusConflict
	case coreerrors.KindResource:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), Kind: coreerrors.KindOf(err).String()}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
		body = errorBody{Error: "internal error"}
	}
	writeJSON(w, status, body)
}
