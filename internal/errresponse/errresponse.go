// Package errresponse renders API errors.
package errresponse

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return newErr(err, http.StatusBadRequest, "Invalid request.")
}

func ErrRender(err error) render.Renderer {
	return newErr(err, http.StatusUnprocessableEntity, "Error rendering response.")
}

// ErrUnavailable reports that the article source could not be reached.
func ErrUnavailable(err error) render.Renderer {
	return newErr(err, http.StatusServiceUnavailable, "Source unavailable.")
}

func ErrInternal(err error) render.Renderer {
	return newErr(err, http.StatusInternalServerError, "Internal error.")
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

func newErr(err error, status int, text string) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     text,
		ErrorText:      err.Error(),
	}
}
