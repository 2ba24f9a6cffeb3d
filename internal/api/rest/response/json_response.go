package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorResponse is the body of every failed request. Message is meant for
// the person using the app, Error is a short machine-friendly summary.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// JSONResponse writes the given data as a JSON response with the specified status code.
func JSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// JSONErrorResponse writes an error without a user facing message.
func JSONErrorResponse(w http.ResponseWriter, statusCode int, err string) {
	JSONResponse(w, statusCode, ErrorResponse{Error: err})
}

func JSONErrorWithMessage(w http.ResponseWriter, statusCode int, err, message string) {
	JSONResponse(w, statusCode, ErrorResponse{Error: err, Message: message})
}

// Attachment writes body as a download named filename.
func Attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
