// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/samber/oops"

	"github.com/holomush/gambit/internal/auth"
	"github.com/holomush/gambit/internal/authz"
	"github.com/holomush/gambit/internal/profile"
	"github.com/holomush/gambit/internal/validate"
	"github.com/holomush/gambit/pkg/errutil"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeInternal   = "INTERNAL_ERROR"
	codeBadRequest = "BAD_REQUEST"
)

// Transport-level error kinds.
var (
	errBadRequest       = errors.New("bad request")
	errTooLarge         = errors.New("request body too large")
	errNoRoute          = errors.New("route not found")
	errMethodNotAllowed = errors.New("method not allowed")
)

// statusOf maps an error kind onto an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoRoute):
		return http.StatusNotFound
	case errors.Is(err, errMethodNotAllowed):
		return http.StatusMethodNotAllowed
	case errors.Is(err, validate.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrWrongTokenType),
		errors.Is(err, authz.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountInactive),
		errors.Is(err, authz.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrAlreadyExists),
		errors.Is(err, profile.ErrAlreadyExists),
		errors.Is(err, authz.ErrAlreadyExists),
		errors.Is(err, authz.ErrAssignmentExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrNotFound),
		errors.Is(err, profile.ErrNotFound),
		errors.Is(err, authz.ErrNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err. Server errors are logged and their detail is not
// sent to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Status: status, Code: errutil.Code(err)}

	if status == http.StatusInternalServerError {
		errutil.LogError(r.Context(), s.logger, "request failed", err)
		body.Code = codeInternal
		body.Message = "internal server error"
		writeJSON(w, status, body)
		return
	}

	if body.Code == "" {
		body.Code = codeBadRequest
	}
	body.Message = oops.GetPublic(err, publicMessage(err))
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	s.logger.DebugContext(r.Context(), "request rejected", errutil.Attrs(err)...)
	writeJSON(w, status, body)
}

// publicMessage is the client-facing text for errors without a public message.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrAccountInactive):
		return auth.ErrAccountInactive.Error()
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongTokenType):
		return "could not validate credentials"
	case errors.Is(err, authz.ErrForbidden):
		return "not enough privileges"
	case errors.Is(err, auth.ErrAlreadyExists):
		return "user with this username or email already exists"
	case errors.Is(err, profile.ErrAlreadyExists):
		return "profile already exists"
	case errors.Is(err, authz.ErrAssignmentExists):
		return "assignment already exists"
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, profile.ErrNotFound), errors.Is(err, authz.ErrNotFound):
		return "not found"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // client may disconnect
		json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return oops.Code("REQUEST_TOO_LARGE").
				Public("request body too large").
				Wrap(errors.Join(errTooLarge, err))
		}
		return oops.Code("REQUEST_MALFORMED").
			Public("request body must be a valid JSON object").
			Wrap(errors.Join(errBadRequest, err))
	}
	return nil
}
