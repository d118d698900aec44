package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tuannvm/impactlens/internal/jira"
	"github.com/tuannvm/impactlens/internal/llm"
	log "github.com/tuannvm/impactlens/internal/logging"
)

// digestResult is the structured form of `impactlens digest`.
type digestResult struct {
	ID       string `json:"id" yaml:"id"`
	TicketID string `json:"ticketId" yaml:"ticketId"`
	Digest   string `json:"digest" yaml:"digest"`
}

func newTicketCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ticket [ticket-id]",
		Short: "Preview a ticket straight from Jira",
		Long: `Fetches a ticket from Jira so you can check it before analysis.
Needs jira.base_url, jira.username and jira.api_token.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := jira.NewClient(a.cfg)
			if err != nil {
				return err
			}
			ticket, err := client.GetTicket(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.encode(cmd, ticket, func(w io.Writer) error {
				return jira.WritePreview(w, ticket)
			})
		},
	}
}

func newDigestCmd(a *app) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "digest [analysis-id]",
		Short: "Summarize a stored analysis with the configured LLM",
		Long: `Fetches a stored analysis and asks the LLM for a short markdown brief.
Needs llm.enabled and the llm.* provider settings.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, err := llm.NewClient(a.cfg)
			if err != nil {
				return err
			}

			resp, err := a.client().Status(cmd.Context(), args[0])
			if err != nil {
				return reportAPIError(cmd, err)
			}

			md, err := llm.NewDigester(model).Digest(cmd.Context(), resp)
			if err != nil {
				return err
			}
			log.Debugf("Digest for %s is %d bytes", args[0], len(md))

			result := digestResult{ID: args[0], TicketID: resp.TicketID, Digest: md}
			return a.encode(cmd, result, func(w io.Writer) error {
				_, err := io.WriteString(w, llm.RenderMarkdown(md, style))
				return err
			})
		},
	}
	cmd.Flags().StringVar(&style, "style", "dark", "glamour style: dark, light, notty or ascii")
	return cmd
}
