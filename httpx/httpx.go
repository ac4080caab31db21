/*
Package httpx contains the JSON and error conventions shared by all HTTP
servers and clients of this module.

An error response always has the form

	{"request_id": "req_...", "error": {"code": 3, "message": "..."}}

where code is the registered error code, so that clients can rebuild an
error of the same kind with errors.ByCode.
*/
package httpx

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/iov-one/docseal/errors"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ReadJSON decodes the request body. Unknown fields are rejected.
func ReadJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrapf(errors.ErrInput, "decode json: %s", err)
	}
	return nil
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	RequestID string    `json:"request_id"`
	Error     ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    uint32 `json:"code"`
	Message string `json:"message"`
}

// WriteError writes the error response of err. Unless debug is set, errors
// without a registered code are reported as internal errors only.
func WriteError(w http.ResponseWriter, err error, debug bool) {
	code, msg := errors.Info(err, debug)
	WriteJSON(w, StatusCode(err), ErrorResponse{
		RequestID: NewRequestID(),
		Error:     ErrorBody{Code: code, Message: msg},
	})
}

var (
	statusMu sync.RWMutex
	statuses = map[uint32]int{
		errors.ErrUnauthorized.Code(): http.StatusUnauthorized,
		errors.ErrNotFound.Code():     http.StatusNotFound,
		errors.ErrDuplicate.Code():    http.StatusConflict,
		errors.ErrState.Code():        http.StatusConflict,
		errors.ErrImmutable.Code():    http.StatusConflict,
		errors.ErrExpired.Code():      http.StatusConflict,
		errors.ErrMsg.Code():          http.StatusBadRequest,
		errors.ErrModel.Code():        http.StatusBadRequest,
		errors.ErrEmpty.Code():        http.StatusBadRequest,
		errors.ErrType.Code():         http.StatusBadRequest,
		errors.ErrInput.Code():        http.StatusBadRequest,
		errors.ErrNetwork.Code():      http.StatusBadGateway,
		errors.ErrStorage.Code():      http.StatusBadGateway,
		errors.ErrTimeout.Code():      http.StatusGatewayTimeout,
	}
)

// RegisterStatus declares the HTTP status of an error registered outside
// of the errors package. Unregistered codes are served as 500.
func RegisterStatus(e *errors.Error, status int) {
	statusMu.Lock()
	defer statusMu.Unlock()
	statuses[e.Code()] = status
}

// StatusCode returns the HTTP status for err.
func StatusCode(err error) int {
	statusMu.RLock()
	defer statusMu.RUnlock()
	if s, ok := statuses[errors.Code(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// DecodeError returns the error described by a failed response. Responses
// that do not follow the error format are classified by their status.
func DecodeError(resp *http.Response) error {
	raw, err := ioutil.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return errors.Wrap(errors.ErrNetwork, err.Error())
	}
	var body ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Code != 0 {
		return errors.ByCode(body.Error.Code).New(body.Error.Message)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrap(errors.ErrNotFound, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrap(errors.ErrUnauthorized, resp.Status)
	case resp.StatusCode >= 500:
		return errors.Wrap(errors.ErrNetwork, resp.Status)
	default:
		return errors.Wrap(errors.ErrInput, resp.Status)
	}
}
