// Package errs provides the error type the bridges return to the web layer.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// ErrCode is an application error category.
type ErrCode struct {
	value string
}

func (ec ErrCode) String() string {
	return ec.value
}

func (ec ErrCode) MarshalText() ([]byte, error) {
	return []byte(ec.value), nil
}

var (
	Validation      = ErrCode{value: "validation"}
	NotFound        = ErrCode{value: "not_found"}
	Unauthenticated = ErrCode{value: "unauthenticated"}
	Forbidden       = ErrCode{value: "forbidden"}
	Conflict        = ErrCode{value: "conflict"}
	Fetch           = ErrCode{value: "fetch"}
	Store           = ErrCode{value: "store"}
	TooManyRequests = ErrCode{value: "too_many_requests"}
	Internal        = ErrCode{value: "internal"}
	InternalOnlyLog = ErrCode{value: "internal_only_log"}
)

var httpStatus = map[ErrCode]int{
	Validation:      http.StatusBadRequest,
	NotFound:        http.StatusNotFound,
	Unauthenticated: http.StatusUnauthorized,
	Forbidden:       http.StatusForbidden,
	Conflict:        http.StatusBadRequest,
	Fetch:           http.StatusBadRequest,
	Store:           http.StatusInternalServerError,
	TooManyRequests: http.StatusTooManyRequests,
	Internal:        http.StatusInternalServerError,
	InternalOnlyLog: http.StatusInternalServerError,
}

// Error is the error returned by handlers. Message is sent to the client.
type Error struct {
	Code     ErrCode `json:"-"`
	Message  string  `json:"error"`
	FuncName string  `json:"-"`
	FileName string  `json:"-"`
	err      error
}

// New wraps err with code, using err's text as the message.
func New(code ErrCode, err error) *Error {
	e := newAt(2, code, err.Error())
	e.err = err
	return e
}

// Newf formats the message.
func Newf(code ErrCode, format string, v ...any) *Error {
	return newAt(2, code, fmt.Sprintf(format, v...))
}

// Wrap keeps err as the cause but sends message to the client.
func Wrap(code ErrCode, err error, message string) *Error {
	e := newAt(2, code, message)
	e.err = err
	return e
}

func newAt(skip int, code ErrCode, message string) *Error {
	e := &Error{Code: code, Message: message}
	if pc, file, line, ok := runtime.Caller(skip); ok {
		e.FileName = fmt.Sprintf("%s:%d", file, line)
		if fn := runtime.FuncForPC(pc); fn != nil {
			e.FuncName = fn.Name()
		}
	}
	return e
}

func (e *Error) Error() string {
	if e.err != nil && e.err.Error() != e.Message {
		return e.Message + ": " + e.err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.err
}

// HTTPStatus maps the code to a status.
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Encode writes the standard failure body.
func (e *Error) Encode() ([]byte, string, error) {
	data, err := json.Marshal(struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}{Error: e.Message})
	return data, "application/json", err
}

// Is reports whether err is an *Error carrying code.
func Is(err error, code ErrCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
