package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tuannvm/impactlens/internal/auth"
	log "github.com/tuannvm/impactlens/internal/logging"
	"github.com/tuannvm/impactlens/internal/render"
)

// authStatus is what `impactlens auth status` reports.
type authStatus struct {
	LoggedIn  bool         `json:"loggedIn" yaml:"loggedIn"`
	TokenFile string       `json:"tokenFile" yaml:"tokenFile"`
	Claims    *auth.Claims `json:"claims,omitempty" yaml:"claims,omitempty"`
	Expired   bool         `json:"expired" yaml:"expired"`
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login [token]",
		Short: "Store the bearer token sent with every request",
		Long: `Stores a bearer token for the analysis service. Without an argument the
token is read from the first line of stdin, so it stays out of shell history:

  impactlens login < token.txt`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var token string
			if len(args) == 1 {
				token = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return fmt.Errorf("failed to read token: %w", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.New("token is required")
			}

			if err := a.tokens.SetToken(token); err != nil {
				return err
			}
			log.Infof("Stored token in %s", a.tokens.Path())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Token saved to %s\n", render.SuccessStyle.Render("✓"), a.tokens.Path())
			if claims, err := auth.Inspect(token); err == nil && claims.Expired(time.Now()) {
				fmt.Fprintln(out, render.ErrorStyle.Render("Warning: this token has already expired"))
			}
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.tokens.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newAuthCmd(a *app) *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Inspect the stored credentials",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether a token is stored and what it claims",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := a.tokens.Token()
			if err != nil {
				return err
			}

			now := time.Now()
			status := authStatus{LoggedIn: token != "", TokenFile: a.tokens.Path()}
			if token != "" {
				claims, err := auth.Inspect(token)
				if err != nil {
					return err
				}
				status.Claims = &claims
				status.Expired = claims.Expired(now)
			}

			return a.encode(cmd, status, func(w io.Writer) error {
				return writeAuthStatus(w, status, now)
			})
		},
	}

	authCmd.AddCommand(statusCmd)
	return authCmd
}

func writeAuthStatus(w io.Writer, s authStatus, now time.Time) error {
	row := func(k, v string) {
		fmt.Fprintf(w, "%s %s\n", render.KeyStyle.Render(fmt.Sprintf("%-12s", k+":")), v)
	}

	if !s.LoggedIn {
		row("Status", render.ErrorStyle.Render("not logged in"))
		row("Token file", s.TokenFile)
		return nil
	}

	state := render.SuccessStyle.Render("logged in")
	if s.Expired {
		state = render.ErrorStyle.Render("token expired")
	}
	row("Status", state)
	row("Token file", s.TokenFile)

	c := s.Claims
	if c == nil || !c.IsJWT {
		row("Token", "opaque (not a JWT)")
		return nil
	}
	if c.Subject != "" {
		row("Subject", c.Subject)
	}
	if c.Issuer != "" {
		row("Issuer", c.Issuer)
	}
	if c.ExpiresAt != nil {
		row("Expires", fmt.Sprintf("%s (%s)", c.ExpiresAt.Format(time.RFC3339), humanize.RelTime(*c.ExpiresAt, now, "ago", "from now")))
	}
	return nil
}
