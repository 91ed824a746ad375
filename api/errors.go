package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/vocdoni/secret-ballot/log"
	"github.com/vocdoni/secret-ballot/round"
)

// Error is an API error: a unique code plus the HTTP status the handler
// answers with. Codes are listed in errors_definition.go.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// MarshalJSON encodes the error message and code, the status travels in the
// response header. Example: {"error":"round result not found: round 9","code":40009}
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{
		Err:  e.Err.Error(),
		Code: e.Code,
	})
}

func (e Error) Error() string {
	return e.Err.Error()
}

// Unwrap exposes the underlying error chain.
func (e Error) Unwrap() error {
	return e.Err
}

// Write sends the error as the JSON body of a response with the error
// status.
func (e Error) Write(w http.ResponseWriter) {
	msg, err := json.Marshal(e)
	if err != nil {
		log.Warnw("could not encode API error", "error", err.Error())
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	log.Debugw("API error response", "error", e.Error(), "code", e.Code, "httpStatus", e.HTTPstatus)
	w.Header().Set("Content-Type", "application/json")
	http.Error(w, string(msg), e.HTTPstatus)
}

// Withf returns a copy of e with the formatted detail appended to the
// message.
func (e Error) Withf(format string, args ...any) Error {
	return e.WithErr(fmt.Errorf(format, args...))
}

// WithErr returns a copy of e with err appended to the message.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// ballotError maps an error returned by the ballot to the API error
// answered to the user. Rejections of the state machine are conflicts the
// user can act on, anything else is a server error.
func ballotError(err error) Error {
	switch {
	case errors.Is(err, round.ErrPhase):
		return ErrWrongPhase.WithErr(err)
	case errors.Is(err, round.ErrDuplicateVoter):
		return ErrAlreadyVoted.WithErr(err)
	case errors.Is(err, round.ErrRoundMismatch):
		return ErrRoundMismatch.WithErr(err)
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
