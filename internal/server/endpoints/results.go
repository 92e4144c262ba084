package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/scan"
	"github.com/openglam/masthead/internal/session"
	"github.com/openglam/masthead/internal/svcctx"
)

// ResultsResponse is the per-page verdicts plus the current cover set.
type ResultsResponse struct {
	SessionID  string        `json:"session_id"`
	Results    []scan.Result `json:"results"`
	CoverPages []int         `json:"cover_pages"`
}

// GetResultsEndpoint handles GET /manifests/{id}/results.
type GetResultsEndpoint struct{}

func (e *GetResultsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/manifests/{id}/results", e.handler
}

func (e *GetResultsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get classification results and the cover set
//	@Tags		analysis
//	@Produce	json
//	@Param		id	path		string	true	"Session ID"
//	@Success	200	{object}	ResultsResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/manifests/{id}/results [get]
func (e *GetResultsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	id := r.PathValue("id")
	sess, err := sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ResultsResponse{
		SessionID:  sess.ID,
		Results:    sess.Results,
		CoverPages: sess.CoverPages,
	})
}

func (e *GetResultsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "results <session-id>",
		Short: "Get classification results for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ResultsResponse
			if err := client.Get(cmd.Context(), "/manifests/"+args[0]+"/results", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// SetPageRequest is the manual-correction body.
type SetPageRequest struct {
	IsCover bool `json:"is_cover"`
}

// SetPageEndpoint handles PATCH /manifests/{id}/pages/{page}. It is the
// server-side equivalent of toggling one checkbox in the correction view.
type SetPageEndpoint struct{}

func (e *SetPageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/manifests/{id}/pages/{page}", e.handler
}

func (e *SetPageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Manually mark a page as cover or non-cover
//	@Description	Overrides the automatic verdict for one page
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			page	path		int				true	"Page number (1-indexed)"
//	@Param			request	body		SetPageRequest	true	"Cover flag"
//	@Success		200		{object}	ResultsResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/manifests/{id}/pages/{page} [patch]
func (e *SetPageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session store not initialized")
		return
	}

	id := r.PathValue("id")
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "page must be a number")
		return
	}

	var req SetPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := sessions.SetCover(id, page, req.IsCover); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ResultsResponse{
		SessionID:  sess.ID,
		Results:    sess.Results,
		CoverPages: sess.CoverPages,
	})
}

func (e *SetPageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var isCover bool
	cmd := &cobra.Command{
		Use:   "mark <session-id> <page>",
		Short: "Manually mark a page as cover or non-cover",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("page must be a number: %s", args[1])
			}
			client := api.NewClient(getServerURL())
			var resp ResultsResponse
			path := "/manifests/" + args[0] + "/pages/" + args[1]
			if err := client.Patch(cmd.Context(), path, SetPageRequest{IsCover: isCover}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&isCover, "cover", true, "Mark as cover (use --cover=false to unmark)")
	return cmd
}
