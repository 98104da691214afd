package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pipecraft/apiserver/internal/apperr"
	"github.com/pipecraft/apiserver/internal/auth"
	"github.com/pipecraft/apiserver/internal/logging"
	"github.com/pipecraft/apiserver/internal/services"
)

const (
	maxJSONBytes      = 16 << 10
	maxUploadBytes    = 5 << 20
	maxMultipartBytes = maxUploadBytes + maxJSONBytes
)

// Response is the envelope of every API reply.
type Response struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []apperr.FieldError `json:"errors"`
	Data    any                 `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{
		Success: true,
		Message: message,
		Errors:  []apperr.FieldError{},
		Data:    data,
	})
}

// writeError renders err through the envelope. Unclassified failures are
// logged with their cause and rendered without it.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	fields := apperr.Fields(err)
	if fields == nil {
		fields = []apperr.FieldError{}
	}
	writeJSON(w, status, Response{
		Success: false,
		Message: apperr.PublicMessage(err),
		Errors:  fields,
		Data:    nil,
	})
}

// decodeJSON reads a JSON body of at most maxJSONBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("request body too large")
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxMultipartBytes)
	if err := r.ParseMultipartForm(maxMultipartBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation("uploaded file too large")
		}
		return apperr.Validation("invalid multipart form")
	}
	return nil
}

// formFile returns the single file uploaded under field, or nil. The caller
// closes the returned file once the request is done.
func formFile(r *http.Request, field string) (*services.File, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	headers := r.MultipartForm.File[field]
	if len(headers) == 0 {
		return nil, noop, nil
	}
	if len(headers) > 1 {
		return nil, noop, apperr.Validation(fmt.Sprintf("only one %s file is allowed", field))
	}
	header := headers[0]
	if header.Size > maxUploadBytes {
		return nil, noop, apperr.Validation("uploaded file too large")
	}
	f, err := header.Open()
	if err != nil {
		return nil, noop, apperr.Validation("failed to read upload")
	}
	return &services.File{
		Name:        header.Filename,
		ContentType: contentType(header),
		Size:        header.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// formString returns the trimmed form value of key, or nil when absent.
func formString(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}

func formValue(r *http.Request, key string) string {
	if v := formString(r, key); v != nil {
		return *v
	}
	return ""
}

func formInt(r *http.Request, key string) (*int, error) {
	v := formString(r, key)
	if v == nil || *v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(*v)
	if err != nil {
		return nil, apperr.Validation("invalid request", apperr.FieldError{Field: key, Message: "must be an integer"})
	}
	return &n, nil
}

func queryString(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := queryString(r, key)
	if v == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil, apperr.Validation("invalid request", apperr.FieldError{Field: key, Message: "must be true or false"})
	}
	return &b, nil
}

func urlParam(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

// actor returns the identity installed by RequireAuth.
func actor(r *http.Request) auth.Identity {
	identity, _ := auth.IdentityFromContext(r.Context())
	return identity
}

// Healthz reports process liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func Ping(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "Pong! Server is up and running.", nil)
}
