package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/textchain/textchain/internal"
	"github.com/textchain/textchain/pkg/models"
	"github.com/textchain/textchain/pkg/pipeline"
)

var log = internal.GetLogger()

var validate = validator.New()

const OKResponse = "OK"

// defaultRunListLimit is applied when a list request does not specify a limit.
const defaultRunListLimit = 100

// CreateRunHandler godoc
//
//	@Summary		Executes the text chain against an input
//	@Description	Runs all six stages in order and returns the completed run with every stage artifact. The run is persisted when a run store is configured.
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			run	body		models.CreateRunRequest	true	"Run input"
//	@Success		200	{object}	models.PipelineRun
//	@Failure		400	{object}	APIError	"Bad Request"
//	@Failure		500	{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/runs [post]
func CreateRunHandler(appState *models.AppState) http.HandlerFunc {
	chain := pipeline.NewPipeline(appState)
	store := appState.RunStore
	return func(w http.ResponseWriter, r *http.Request) {
		var runRequest models.CreateRunRequest
		if err := decodeJSON(r, &runRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := validate.Struct(runRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		run, err := chain.Run(r.Context(), runRequest.Input)
		if err != nil {
			if errors.Is(err, models.ErrBadRequest) {
				renderError(w, err, http.StatusBadRequest)
				return
			}
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if len(runRequest.Metadata) > 0 {
			run.Metadata = runRequest.Metadata
		}

		if store != nil {
			if err := store.SaveRun(r.Context(), run); err != nil {
				renderError(w, err, http.StatusInternalServerError)
				return
			}
		}

		if err := encodeJSON(w, run); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetRunHandler godoc
//
//	@Summary		Returns a run by UUID
//	@Description	get run by uuid
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			runUUID	path		string	true	"Run UUID"
//	@Success		200		{object}	models.PipelineRun
//	@Failure		404		{object}	APIError	"Not Found"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/runs/{runUUID} [get]
func GetRunHandler(appState *models.AppState) http.HandlerFunc {
	store := appState.RunStore
	return func(w http.ResponseWriter, r *http.Request) {
		runUUID := parseUUIDFromURL(r, w, "runUUID")
		if runUUID == uuid.Nil {
			return
		}

		run, err := store.GetRun(r.Context(), runUUID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				renderError(w, err, http.StatusNotFound)
				return
			}
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, run); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// GetRunListHandler godoc
//
//	@Summary		Returns all runs
//	@Description	get all runs with optional cursor and limit
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			cursor	query		int64	false	"Cursor, run ID of the last run in the previous page"
//	@Param			limit	query		int		false	"Limit, number of runs to return"
//	@Success		200		{object}	models.RunListResponse
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/runs [get]
func GetRunListHandler(appState *models.AppState) http.HandlerFunc {
	store := appState.RunStore
	return func(w http.ResponseWriter, r *http.Request) {
		cursor, err := extractQueryStringValueToInt[int64](r, "cursor")
		if err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}
		limit, err := extractQueryStringValueToInt[int](r, "limit")
		if err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}
		if limit == 0 {
			limit = defaultRunListLimit
		}

		runs, err := store.ListRuns(r.Context(), cursor, limit)
		if err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, runs); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// UpdateRunMetadataHandler godoc
//
//	@Summary		Updates run metadata
//	@Description	merges the posted metadata into the run's existing metadata
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			runUUID	path		string					true	"Run UUID"
//	@Param			run		body		models.UpdateRunRequest	true	"Metadata to merge"
//	@Success		200		{object}	models.PipelineRun
//	@Failure		400		{object}	APIError	"Bad Request"
//	@Failure		404		{object}	APIError	"Not Found"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/runs/{runUUID} [patch]
func UpdateRunMetadataHandler(appState *models.AppState) http.HandlerFunc {
	store := appState.RunStore
	return func(w http.ResponseWriter, r *http.Request) {
		runUUID := parseUUIDFromURL(r, w, "runUUID")
		if runUUID == uuid.Nil {
			return
		}

		var updateRequest models.UpdateRunRequest
		if err := decodeJSON(r, &updateRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		if err := validate.Struct(updateRequest); err != nil {
			renderError(w, err, http.StatusBadRequest)
			return
		}

		run, err := store.UpdateRunMetadata(r.Context(), runUUID, updateRequest.Metadata)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				renderError(w, err, http.StatusNotFound)
				return
			}
			if errors.Is(err, models.ErrBadRequest) {
				renderError(w, err, http.StatusBadRequest)
				return
			}
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		if err := encodeJSON(w, run); err != nil {
			renderError(w, err, http.StatusInternalServerError)
			return
		}
	}
}

// DeleteRunHandler godoc
//
//	@Summary		Deletes a run
//	@Description	delete run by uuid
//	@Tags			run
//	@Accept			json
//	@Produce		json
//	@Param			runUUID	path		string		true	"Run UUID"
//	@Success		200		{string}	string		"OK"
//	@Failure		404		{object}	APIError	"Not Found"
//	@Failure		500		{object}	APIError	"Internal Server Error"
//	@Router			/api/v1/runs/{runUUID} [delete]
func DeleteRunHandler(appState *models.AppState) http.HandlerFunc {
	store := appState.RunStore
	return func(w http.ResponseWriter, r *http.Request) {
		runUUID := parseUUIDFromURL(r, w, "runUUID")
		if runUUID == uuid.Nil {
			return
		}

		if err := store.DeleteRun(r.Context(), runUUID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				renderError(w, err, http.StatusNotFound)
				return
			}
			renderError(w, err, http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(OKResponse))
	}
}
