package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var (
	ErrEmptyBody    = errors.New("request body is empty")
	ErrNoFile       = errors.New("no file uploaded")
	ErrFileTooLarge = errors.New("uploaded file is too large")
)

// Param returns the web call parameters from the request.
func Param(r *http.Request, key string) string {
	return r.PathValue(key)
}

// QueryParam returns query parameters from the request.
func QueryParam(r *http.Request, key string) string {
	query := r.URL.Query()
	return query.Get(key)
}

// Decoder represents data that can be decoded.
type Decoder interface {
	Decode(data []byte) error
}

type validator interface {
	Validate() error
}

// Decode reads the body of an HTTP request and decodes it into the specified data model.
// If the data model implements the validator interface, the Validate method will be called.
func Decode(r *http.Request, v any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("unable to read request body: %w", err)
	}
	if len(data) == 0 {
		return ErrEmptyBody
	}

	if decoder, ok := v.(Decoder); ok {
		if err := decoder.Decode(data); err != nil {
			return fmt.Errorf("decode: %w", err)
		}
	} else {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
	}

	if validator, ok := v.(validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("validation: %w", err)
		}
	}

	return nil
}

// File is an uploaded multipart file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// FormFile reads the multipart file stored under field. Files larger than
// maxBytes fail with ErrFileTooLarge.
func FormFile(r *http.Request, field string, maxBytes int64) (File, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return File{}, ErrNoFile
		}
		return File{}, fmt.Errorf("parse multipart form: %w", err)
	}

	f, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return File{}, ErrNoFile
		}
		return File{}, fmt.Errorf("form file: %w", err)
	}
	defer f.Close()

	if header.Size > maxBytes {
		return File{}, ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return File{}, ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return File{Name: header.Filename, ContentType: contentType, Data: data}, nil
}
