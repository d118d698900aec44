package main

import (
	"github.com/spf13/cobra"

	"github.com/tuannvm/impactlens/internal/jira"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/tui"
)

func newDashboardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Start the interactive dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDashboard(cmd)
		},
	}
}

// runDashboard starts the TUI. A 401 from any request switches it to the
// login screen through the navigator.
func (a *app) runDashboard(cmd *cobra.Command) error {
	nav := tui.NewNavigator()
	a.navigator = nav

	deps := tui.Deps{
		Backend: a.client(),
		Tokens:  a.tokens,
	}
	if a.cfg.JiraConfigured() {
		tickets, err := jira.NewClient(a.cfg)
		if err != nil {
			log.Warnf("Ticket preview disabled: %v", err)
		} else {
			deps.Tickets = tickets
		}
	}

	log.Infof("Starting dashboard against %s", a.cfg.APIBaseURL)
	return tui.Run(cmd.Context(), deps, nav)
}
