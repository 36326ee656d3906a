package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"hermannm.dev/devlog/log"
	"hermannm.dev/safetab/command"
	"hermannm.dev/safetab/filter"
	"hermannm.dev/wrap"
)

type errorResponse struct {
	Error string `json:"error"`
	// Set when a query command failed to parse.
	SyntaxError *command.SyntaxError `json:"syntaxError,omitempty"`
	// Set when a query compared a column with an incompatible value or operator.
	TypeError *filter.TypeError `json:"typeError,omitempty"`
}

func sendJSON(res http.ResponseWriter, value any) {
	sendJSONWithStatus(res, http.StatusOK, value)
}

func sendJSONWithStatus(res http.ResponseWriter, statusCode int, value any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)

	if err := json.NewEncoder(res).Encode(value); err != nil {
		log.ErrorCause(err, "failed to serialize response")
	}
}

func sendClientError(res http.ResponseWriter, err error, message string) {
	sendError(res, http.StatusBadRequest, err, message)
}

func sendServerError(res http.ResponseWriter, err error, message string) {
	sendError(res, http.StatusInternalServerError, err, message)
}

func sendError(res http.ResponseWriter, statusCode int, err error, message string) {
	if statusCode >= http.StatusInternalServerError && err != nil {
		log.ErrorCause(err, message, slog.Int("status", statusCode))
	}

	if err != nil {
		if message == "" {
			message = err.Error()
		} else {
			message = wrap.Error(err, message).Error()
		}
	}

	if statusCode < http.StatusInternalServerError {
		log.Info(message, slog.Int("status", statusCode))
	}

	sendJSONWithStatus(res, statusCode, errorResponse{Error: message})
}

// Sends 413 for uploads over the configured limit, and 400 for other invalid uploads.
func sendUploadError(res http.ResponseWriter, err error, message string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		sendError(res, http.StatusRequestEntityTooLarge, err, message)
		return
	}
	sendClientError(res, err, message)
}
