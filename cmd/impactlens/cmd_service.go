package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tuannvm/impactlens/internal/models"
	"github.com/tuannvm/impactlens/internal/render"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the analysis service is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := a.client()
			msg, err := c.Health(cmd.Context())
			if err != nil {
				return reportAPIError(cmd, err)
			}
			status := models.HealthStatus{BaseURL: c.BaseURL(), Message: msg}
			return a.encode(cmd, status, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s %s (%s)\n", render.SuccessStyle.Render("✓"), msg, status.BaseURL)
				return err
			})
		},
	}
}

// cacheCmd groups the backend's cache administration endpoints.
func newCacheCmd(a *app) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the analysis service cache",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client().CacheStatus(cmd.Context())
			if err != nil {
				return reportAPIError(cmd, err)
			}
			return a.encode(cmd, stats, func(w io.Writer) error {
				return writeKeyValues(w, stats)
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached analyses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := a.client().ClearCache(cmd.Context())
			if err != nil {
				return reportAPIError(cmd, err)
			}
			return a.encode(cmd, map[string]string{"message": msg}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, msg)
				return err
			})
		},
	}

	cacheCmd.AddCommand(statusCmd, clearCmd)
	return cacheCmd
}

func writeKeyValues(w io.Writer, values map[string]interface{}) error {
	if len(values) == 0 {
		_, err := fmt.Fprintln(w, render.MutedStyle.Render("Cache is empty"))
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s %v\n", render.KeyStyle.Render(fmt.Sprintf("%-20s", k+":")), values[k]); err != nil {
			return err
		}
	}
	return nil
}
