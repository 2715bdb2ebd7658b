package errs

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/jrazmi/devcamper/core/repositories"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
	"github.com/jrazmi/devcamper/infrastructure/web"
	"github.com/jrazmi/devcamper/sdk/validation"
)

// FromRepository translates errors coming out of the repositories and the
// request decoder into an *Error.
func FromRepository(err error) *Error {
	var (
		appErr  *Error
		failure *repositories.Failure
		fields  validation.FieldErrors
		fetch   *docstore.FetchError
	)

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &fields):
		return Wrap(Validation, err, fields.Error())
	case errors.As(err, &failure):
		return Wrap(codeFor(failure.Kind), err, failure.Message)
	case errors.As(err, &fetch):
		if fetch.Invalid() {
			return Wrap(Fetch, err, fetch.Err.Error())
		}
		return Wrap(Store, err, "Server Error")
	case errors.Is(err, repositories.ErrNotFound):
		return Wrap(NotFound, err, "Resource not found")
	case errors.Is(err, repositories.ErrDuplicate):
		return Wrap(Validation, err, "Duplicate field value entered")
	case errors.Is(err, repositories.ErrValidation):
		return Wrap(Validation, err, err.Error())
	case errors.Is(err, repositories.ErrForbidden):
		return Wrap(Forbidden, err, "Not authorized to access this route")
	case errors.Is(err, repositories.ErrConflict):
		return Wrap(Conflict, err, err.Error())
	case errors.Is(err, repositories.ErrUnauthenticated):
		return Wrap(Unauthenticated, err, "Invalid credentials")
	case errors.Is(err, web.ErrEmptyBody):
		return Wrap(Validation, err, "Request body is empty")
	case isDecodeError(err):
		return Wrap(Validation, err, "Malformed request body")
	}
	return Wrap(Internal, err, "Server Error")
}

func codeFor(kind error) ErrCode {
	switch {
	case errors.Is(kind, repositories.ErrNotFound):
		return NotFound
	case errors.Is(kind, repositories.ErrForbidden):
		return Forbidden
	case errors.Is(kind, repositories.ErrUnauthenticated):
		return Unauthenticated
	case errors.Is(kind, repositories.ErrConflict):
		return Conflict
	case errors.Is(kind, repositories.ErrValidation), errors.Is(kind, repositories.ErrDuplicate):
		return Validation
	}
	return Internal
}

func isDecodeError(err error) bool {
	var (
		syntax    *json.SyntaxError
		typeError *json.UnmarshalTypeError
	)
	return errors.As(err, &syntax) || errors.As(err, &typeError) || errors.Is(err, io.ErrUnexpectedEOF)
}
