package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/apicus/apicus/internal/analyzer"
)

// requestError is a client error detected before reaching the analyzer.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// statusFor maps an error to an HTTP status code.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrServiceNotFound), errors.Is(err, analyzer.ErrMetricNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
