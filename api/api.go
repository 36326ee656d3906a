package api

import (
	"fmt"
	"net/http"

	"hermannm.dev/safetab/config"
	"hermannm.dev/safetab/db"
	"hermannm.dev/safetab/engine"
	"hermannm.dev/safetab/store"
)

type DatasetAPI struct {
	store  *store.Store
	engine *engine.Engine
	// Nil if no dataset source is configured.
	source db.Source
	router *http.ServeMux
	config config.API
}

func NewDatasetAPI(
	store *store.Store,
	engine *engine.Engine,
	source db.Source,
	router *http.ServeMux,
	config config.API,
) DatasetAPI {
	api := DatasetAPI{store: store, engine: engine, source: source, router: router, config: config}

	api.router.HandleFunc("POST /datasets", api.UploadDataset)
	api.router.HandleFunc("POST /datasets/deduce-schema", api.DeduceDatasetSchema)
	api.router.HandleFunc("POST /datasets/import", api.ImportDataset)
	api.router.HandleFunc("GET /datasets/{key}/schema", api.GetDatasetSchema)
	api.router.HandleFunc("POST /datasets/{key}/query", api.QueryDataset)
	api.router.HandleFunc("DELETE /datasets/{key}", api.DeleteDataset)

	return api
}

func (api DatasetAPI) ListenAndServe() error {
	return http.ListenAndServe(fmt.Sprintf(":%s", api.config.Port), api.router)
}
