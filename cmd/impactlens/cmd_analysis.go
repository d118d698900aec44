package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuannvm/impactlens/internal/analysis"
	"github.com/tuannvm/impactlens/internal/api"
	"github.com/tuannvm/impactlens/internal/form"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	defaults := models.DefaultOptions()
	var (
		maxRelated   int
		minRelevance float64
		comments     bool
		attachments  bool
		depth        string
	)

	cmd := &cobra.Command{
		Use:   "analyze [ticket-id]",
		Short: "Analyze the impact of a ticket",
		Long: `Submits a ticket to the analysis service and prints the report.

Example:
  impactlens analyze PROJ-123
  impactlens analyze PROJ-123 --depth comprehensive --max-related 10 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := form.New()
			if err := f.SetTicketID(args[0]); err != nil {
				return err
			}

			// Only explicitly set flags override the form defaults.
			overrides := []struct{ flag, field, raw string }{
				{"max-related", models.FieldMaxRelatedTickets, strconv.Itoa(maxRelated)},
				{"min-relevance", models.FieldMinRelevanceScore, strconv.FormatFloat(minRelevance, 'f', -1, 64)},
				{"comments", models.FieldIncludeComments, strconv.FormatBool(comments)},
				{"attachments", models.FieldIncludeAttachments, strconv.FormatBool(attachments)},
				{"depth", models.FieldAnalysisDepth, depth},
			}
			for _, o := range overrides {
				if !cmd.Flags().Changed(o.flag) {
					continue
				}
				if err := f.SetOption(o.field, o.raw); err != nil {
					return err
				}
			}

			store := analysis.NewStore(a.client())
			var state analysis.State
			fieldErrs, err := f.Submit(func(ticketID string, opts models.AnalysisOptions) error {
				log.Infof("Analyzing %s (depth %s)", ticketID, opts.AnalysisDepth)
				var submitErr error
				state, submitErr = store.Submit(cmd.Context(), models.AnalysisRequest{TicketID: ticketID, Options: opts})
				return submitErr
			})
			if len(fieldErrs) > 0 {
				return &models.ValidationError{Fields: fieldErrs}
			}
			if err != nil {
				return reportAPIError(cmd, err)
			}

			return a.encode(cmd, state.Result, func(w io.Writer) error {
				return render.Report(w, state.Result)
			})
		},
	}

	cmd.Flags().IntVar(&maxRelated, "max-related", defaults.MaxRelatedTickets,
		fmt.Sprintf("Maximum related tickets (%d-%d)", models.MinRelatedTickets, models.MaxRelatedTickets))
	cmd.Flags().Float64Var(&minRelevance, "min-relevance", defaults.MinRelevanceScore, "Minimum relevance score (0-1)")
	cmd.Flags().BoolVar(&comments, "comments", defaults.IncludeComments, "Include ticket comments")
	cmd.Flags().BoolVar(&attachments, "attachments", defaults.IncludeAttachments, "Include ticket attachments")
	cmd.Flags().StringVar(&depth, "depth", string(defaults.AnalysisDepth), "Analysis depth: basic, detailed or comprehensive")
	return cmd
}

// reportAPIError prints the error banner for a failed request. A 401 is left
// for execute to report as an expired session.
func reportAPIError(cmd *cobra.Command, err error) error {
	if isUnauthorized(err) {
		return err
	}
	if bannerErr := render.ErrorBanner(cmd.ErrOrStderr(), api.ErrorMessage(err)); bannerErr != nil {
		return err
	}
	return fmt.Errorf("%w: %v", errReported, err)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, api.ErrUnauthorized)
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [analysis-id]",
		Short: "Show a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.client().Status(cmd.Context(), args[0])
			if err != nil {
				return reportAPIError(cmd, err)
			}
			return a.encode(cmd, resp, func(w io.Writer) error {
				return render.Report(w, resp)
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := a.client().History(cmd.Context(), page, render.HistoryPageSize)
			if err != nil {
				if isUnauthorized(err) {
					return err
				}
				return fmt.Errorf("%s: %s", render.HistoryLoadFailed, api.ErrorMessage(err))
			}
			if items == nil {
				items = []models.AnalysisResponse{}
			}
			return a.encode(cmd, items, func(w io.Writer) error {
				return render.History(w, items, time.Now())
			})
		},
	}
	cmd.Flags().IntVarP(&page, "page", "p", 0, "Zero-based page number")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [analysis-id]",
		Short: "Delete a stored analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Delete(cmd.Context(), args[0]); err != nil {
				return reportAPIError(cmd, err)
			}
			result := map[string]string{"id": args[0], "status": "deleted"}
			return a.encode(cmd, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "Deleted analysis %s\n", args[0])
				return err
			})
		},
	}
}
