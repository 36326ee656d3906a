package api

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"

	"hermannm.dev/safetab/csv"
	"hermannm.dev/safetab/dataset"
	"hermannm.dev/safetab/db"
	"hermannm.dev/safetab/store"
)

type uploadResponse struct {
	DatasetKey  string `json:"datasetKey"`
	RowCount    int    `json:"rowCount"`
	ColumnCount int    `json:"columnCount"`
}

// Expects:
//   - multipart form field 'csvFile': CSV file with a header row
//
// Returns:
//   - JSON-encoded uploadResponse, with the key to query the dataset by
func (api DatasetAPI) UploadDataset(res http.ResponseWriter, req *http.Request) {
	csvFile, ok := api.getCSVFile(res, req)
	if !ok {
		return
	}
	defer csvFile.Close()

	csvReader, err := csv.NewReader(csvFile)
	if err != nil {
		sendUploadError(res, err, "failed to read uploaded CSV file")
		return
	}

	data, err := csvReader.ReadDataset()
	if err != nil {
		sendUploadError(res, err, "failed to load dataset from uploaded CSV")
		return
	}

	// The store takes over our reference, but we read the counts before handing it over.
	response := uploadResponse{RowCount: data.NumRows(), ColumnCount: data.NumColumns()}

	response.DatasetKey, err = api.store.Put(req.Context(), data)
	if err != nil {
		sendServerError(res, err, "failed to store dataset")
		return
	}

	sendJSON(res, response)
}

// Expects:
//   - multipart form field 'csvFile': CSV file to deduce column kinds from
//
// Returns:
//   - JSON-encoded dataset.Schema
func (api DatasetAPI) DeduceDatasetSchema(res http.ResponseWriter, req *http.Request) {
	csvFile, ok := api.getCSVFile(res, req)
	if !ok {
		return
	}
	defer csvFile.Close()

	csvReader, err := csv.NewReader(csvFile)
	if err != nil {
		sendUploadError(res, err, "failed to read uploaded CSV file")
		return
	}

	schema, err := csvReader.DeduceSchema()
	if err != nil {
		sendUploadError(res, err, "failed to deduce schema from uploaded CSV")
		return
	}

	sendJSON(res, schema)
}

type importRequest struct {
	// Table or index name in the configured dataset source.
	Table string `json:"table"`
	// Optional key to store the dataset under. A random key is generated if blank.
	DatasetKey string `json:"datasetKey"`
}

// Expects:
//   - body: JSON-encoded importRequest
//
// Returns:
//   - JSON-encoded uploadResponse
//   - 404 if the table does not exist in the dataset source
func (api DatasetAPI) ImportDataset(res http.ResponseWriter, req *http.Request) {
	if api.source == nil {
		sendClientError(res, nil, "no dataset source is configured (see DATASET_SOURCE)")
		return
	}

	var importReq importRequest
	if err := json.NewDecoder(req.Body).Decode(&importReq); err != nil {
		sendClientError(res, err, "failed to parse import request from request body")
		return
	}
	if importReq.Table == "" {
		sendClientError(res, nil, "missing 'table' in import request")
		return
	}

	data, err := api.source.LoadDataset(req.Context(), importReq.Table)
	if err != nil {
		if errors.Is(err, db.ErrTableNotFound) {
			sendError(res, http.StatusNotFound, err, "")
		} else {
			sendServerError(res, err, "failed to load dataset from source")
		}
		return
	}

	response := uploadResponse{RowCount: data.NumRows(), ColumnCount: data.NumColumns()}

	if importReq.DatasetKey == "" {
		response.DatasetKey, err = api.store.Put(req.Context(), data)
	} else {
		response.DatasetKey = importReq.DatasetKey
		err = api.store.PutWithKey(req.Context(), importReq.DatasetKey, data)
	}
	if err != nil {
		sendServerError(res, err, "failed to store imported dataset")
		return
	}

	sendJSON(res, response)
}

type schemaResponse struct {
	DatasetKey string           `json:"datasetKey"`
	RowCount   int              `json:"rowCount"`
	Columns    []columnResponse `json:"columns"`
}

type columnResponse struct {
	Name         string             `json:"name"`
	Kind         dataset.ColumnKind `json:"kind"`
	UniqueValues int                `json:"uniqueValues"`
}

// Expects:
//   - path parameter 'key': key of a stored dataset
//
// Returns:
//   - JSON-encoded schemaResponse
func (api DatasetAPI) GetDatasetSchema(res http.ResponseWriter, req *http.Request) {
	key := req.PathValue("key")

	data, err := api.store.Dataset(req.Context(), key)
	if err != nil {
		sendDatasetLookupError(res, err, key)
		return
	}
	defer data.Release()

	response := schemaResponse{
		DatasetKey: key,
		RowCount:   data.NumRows(),
		Columns:    make([]columnResponse, 0, data.NumColumns()),
	}
	for _, column := range data.Columns() {
		response.Columns = append(response.Columns, columnResponse{
			Name:         column.Name(),
			Kind:         column.Kind(),
			UniqueValues: column.DistinctCount(),
		})
	}

	sendJSON(res, response)
}

// Expects:
//   - path parameter 'key': key of a stored dataset
func (api DatasetAPI) DeleteDataset(res http.ResponseWriter, req *http.Request) {
	key := req.PathValue("key")

	if err := api.store.Delete(key); err != nil {
		sendDatasetLookupError(res, err, key)
		return
	}

	res.WriteHeader(http.StatusNoContent)
}

// Returns false if an error response was sent.
func (api DatasetAPI) getCSVFile(
	res http.ResponseWriter,
	req *http.Request,
) (file multipart.File, ok bool) {
	req.Body = http.MaxBytesReader(res, req.Body, api.config.MaxUploadBytes)

	file, _, err := req.FormFile("csvFile")
	if err != nil {
		sendUploadError(res, err, "failed to get 'csvFile' upload from request")
		return nil, false
	}
	return file, true
}

func sendDatasetLookupError(res http.ResponseWriter, err error, key string) {
	if errors.Is(err, store.ErrDatasetNotFound) {
		sendError(res, http.StatusNotFound, nil, "dataset '"+key+"' not found")
		return
	}
	sendServerError(res, err, "failed to get dataset '"+key+"'")
}
