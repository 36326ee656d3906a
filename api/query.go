package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"hermannm.dev/safetab/command"
	"hermannm.dev/safetab/disclosure"
	"hermannm.dev/safetab/engine"
	"hermannm.dev/safetab/filter"
)

type queryRequest struct {
	Command string `json:"command"`
	// Optional, defaults to the server's configured privacy mode.
	PrivacyMode disclosure.Mode `json:"privacyMode"`
	// Optional, defaults to the server's configured suppression threshold.
	Threshold int `json:"threshold"`
	// Optional base epsilon for differential privacy.
	Epsilon float64 `json:"epsilon"`
}

// Expects:
//   - path parameter 'key': key of a stored dataset
//   - body: JSON-encoded queryRequest, with a command like "tab sex age_group if age > 30"
//
// Returns:
//   - JSON-encoded engine.Response
//   - 400 with 'syntaxError' or 'typeError' set if the command is invalid for the dataset
//   - 404 if the dataset has expired or does not exist
func (api DatasetAPI) QueryDataset(res http.ResponseWriter, req *http.Request) {
	key := req.PathValue("key")

	var query queryRequest
	if err := json.NewDecoder(req.Body).Decode(&query); err != nil {
		sendClientError(res, err, "failed to parse query from request body")
		return
	}
	if query.Threshold < 0 {
		sendClientError(res, nil, "'threshold' must be positive")
		return
	}
	if query.Epsilon < 0 {
		sendClientError(res, nil, "'epsilon' must be positive")
		return
	}

	response, err := api.engine.Run(req.Context(), key, engine.Request{
		Command:     query.Command,
		PrivacyMode: query.PrivacyMode,
		Threshold:   query.Threshold,
		BaseEpsilon: query.Epsilon,
	})
	if err != nil {
		sendQueryError(res, err, key)
		return
	}

	sendJSON(res, response)
}

func sendQueryError(res http.ResponseWriter, err error, key string) {
	var syntaxErr *command.SyntaxError
	if errors.As(err, &syntaxErr) {
		sendJSONWithStatus(
			res, http.StatusBadRequest, errorResponse{Error: err.Error(), SyntaxError: syntaxErr},
		)
		return
	}

	var typeErr *filter.TypeError
	if errors.As(err, &typeErr) {
		sendJSONWithStatus(
			res, http.StatusBadRequest, errorResponse{Error: err.Error(), TypeError: typeErr},
		)
		return
	}

	var unavailableErr *engine.DatasetUnavailableError
	if errors.As(err, &unavailableErr) {
		sendError(
			res,
			http.StatusNotFound,
			nil,
			"dataset '"+key+"' is unavailable, it may have expired; upload or import it again",
		)
		return
	}

	sendServerError(res, err, "failed to run query")
}
