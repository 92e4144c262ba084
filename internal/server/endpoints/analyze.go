package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/openglam/masthead/internal/api"
	"github.com/openglam/masthead/internal/classify"
	"github.com/openglam/masthead/internal/jobs"
	"github.com/openglam/masthead/internal/scan"
	"github.com/openglam/masthead/internal/session"
	"github.com/openglam/masthead/internal/svcctx"
)

// AnalyzeRequest selects the page range and strategy for an analysis run.
// Zero start/end pages mean the whole manifest; an empty strategy falls back
// to the configured policy.
type AnalyzeRequest struct {
	StartPage int    `json:"start_page,omitempty"`
	EndPage   int    `json:"end_page,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
}

// AnalyzeEndpoint handles POST /manifests/{id}/analyze.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/manifests/{id}/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start cover analysis
//	@Description	Classify a page range in the background; returns the job record
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			request	body		AnalyzeRequest	false	"Page range and strategy"
//	@Success		202		{object}	jobs.Record
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/manifests/{id}/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	svc := svcctx.ServicesFrom(r.Context())
	if svc == nil || svc.Sessions == nil || svc.JobManager == nil {
		writeError(w, http.StatusServiceUnavailable, "server not fully initialized")
		return
	}

	rec, err := StartAnalysis(svc, id, req)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			writeError(w, http.StatusNotFound, "session not found")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusAccepted, rec)
}

// StartAnalysis validates the request, assembles the classification pipeline,
// and launches the scan as a background job. Results land in the session store
// when the scan finishes; a cancelled scan keeps the pages classified so far.
func StartAnalysis(svc *svcctx.Services, sessionID string, req AnalyzeRequest) (jobs.Record, error) {
	pages, err := svc.Sessions.Pages(sessionID)
	if err != nil {
		return jobs.Record{}, err
	}

	start, end := req.StartPage, req.EndPage
	if start == 0 {
		start = 1
	}
	if end == 0 {
		end = len(pages)
	}
	if start < 1 || end > len(pages) || start > end {
		return jobs.Record{}, fmt.Errorf("page range %d-%d outside 1-%d", start, end, len(pages))
	}

	cfg := svc.Config.Get()
	policy := cfg.Policy
	strategy := classify.Strategy(policy.Strategy)
	if req.Strategy != "" {
		strategy = classify.Strategy(req.Strategy)
	}

	pipeline, err := BuildPipeline(svc, strategy)
	if err != nil {
		return jobs.Record{}, err
	}

	scanner := scan.New(svc.IIIF, pipeline, scan.Options{
		FetchConcurrency: cfg.Fetch.Concurrency,
		Dedupe:           cfg.Fetch.Dedupe,
	}, svc.Logger)

	window := pages[start-1 : end]
	spec := jobs.Spec{
		SessionID: sessionID,
		Strategy:  string(strategy),
		StartPage: start,
		EndPage:   end,
	}

	baseCtx := svc.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	rec := svc.JobManager.Start(baseCtx, spec, func(ctx context.Context, progress func(done, total int)) error {
		results, runErr := scanner.Run(ctx, window, progress)
		if len(results) > 0 {
			if err := svc.Sessions.SetResults(sessionID, results); err != nil {
				svc.Logger.Warn("failed to store scan results", "session_id", sessionID, "error", err)
			}
		}
		return runErr
	})
	return rec, nil
}

// BuildPipeline assembles a pipeline for the given strategy from the
// configured default providers.
func BuildPipeline(svc *svcctx.Services, strategy classify.Strategy) (*classify.Pipeline, error) {
	policy := svc.Config.Get().Policy

	var visual classify.Visual
	var structural classify.Structural

	if strategy == classify.StrategyVisual || strategy == classify.StrategyHybrid {
		v, err := svc.Registry.Visual(policy.VisualProvider)
		if err != nil {
			return nil, err
		}
		visual = v
	}
	if strategy == classify.StrategyStructural || strategy == classify.StrategyHybrid {
		s, err := svc.Registry.Structural(policy.StructuralProvider)
		if err != nil {
			return nil, err
		}
		structural = s
	}

	return classify.NewPipeline(strategy, visual, structural, policy.StructuralPrecedence, svc.Logger)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req AnalyzeRequest
	cmd := &cobra.Command{
		Use:   "analyze <session-id>",
		Short: "Start cover analysis for a loaded manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp jobs.Record
			if err := client.Post(cmd.Context(), "/manifests/"+args[0]+"/analyze", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&req.StartPage, "start-page", 0, "First page to analyze (default: 1)")
	cmd.Flags().IntVar(&req.EndPage, "end-page", 0, "Last page to analyze (default: all)")
	cmd.Flags().StringVar(&req.Strategy, "strategy", "", "Override strategy: visual-only, structural-only, hybrid")
	return cmd
}
