package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/jobs"
	"github.com/openglam/masthead/internal/svcctx"
)

// ListJobsEndpoint handles GET /jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List analysis jobs
//	@Tags		jobs
//	@Produce	json
//	@Success	200	{array}	jobs.Record
//	@Router		/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}
	writeJSON(w, http.StatusOK, jm.List())
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp []jobs.Record
			if err := client.Get(cmd.Context(), "/jobs", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetJobEndpoint handles GET /jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get a job by ID
//	@Tags		jobs
//	@Produce	json
//	@Param		id	path		string	true	"Job ID"
//	@Success	200	{object}	jobs.Record
//	@Failure	404	{object}	ErrorResponse
//	@Router		/jobs/{id} [get]
func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	rec, err := jm.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Get an analysis job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp jobs.Record
			if err := client.Get(cmd.Context(), "/jobs/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CancelJobEndpoint handles DELETE /jobs/{id}.
type CancelJobEndpoint struct{}

func (e *CancelJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/jobs/{id}", e.handler
}

func (e *CancelJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel a running job
//	@Description	Requests cancellation; pages classified so far are kept
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	jobs.Record
//	@Failure		404	{object}	ErrorResponse
//	@Router			/jobs/{id} [delete]
func (e *CancelJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	id := r.PathValue("id")
	if err := jm.Cancel(id); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rec, _ := jm.Get(id)
	writeJSON(w, http.StatusOK, rec)
}

func (e *CancelJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running analysis job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/jobs/"+args[0]); err != nil {
				return err
			}
			return nil
		},
	}
}
