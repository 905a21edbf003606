package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/migrator/internal/core"
	"github.com/go-chi/chi/v5"
)

// parseIntParam extracts an integer query parameter with a default value.
// Returns defaultVal if the parameter is missing, invalid, or negative.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultVal
	}
	return n
}

// jobIDParam reads the {id} route parameter.
func jobIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad migration id %q", core.ErrInvalidJob, raw)
	}
	return id, nil
}

// clientIP returns the connection address without its port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// uploadedFile parses a multipart body capped at maxSize and returns the
// "file" part. The caller closes the file.
func uploadedFile(w http.ResponseWriter, r *http.Request, maxSize int64) (multipart.File, *multipart.FileHeader, error) {
	if maxSize > 0 {
		// Leave room for the form fields around the file.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, nil, fmt.Errorf("%w: request body over %d bytes", core.ErrFileTooLarge, tooBig.Limit)
		}
		return nil, nil, fmt.Errorf("%w: invalid form: %v", core.ErrInvalidJob, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: no file provided", core.ErrInvalidJob)
	}
	return file, header, nil
}
