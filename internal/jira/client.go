package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jira "github.com/ctreminiom/go-atlassian/v2/jira/v2"
	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"

	"github.com/tuannvm/impactlens/internal/config"
	log "github.com/tuannvm/impactlens/internal/logging"
	impact "github.com/tuannvm/impactlens/internal/models"
)

// ErrNotConfigured is returned when jira.base_url, jira.username or
// jira.api_token is missing.
var ErrNotConfigured = errors.New("jira is not configured: set jira.base_url, jira.username and jira.api_token")

// ErrTicketNotFound is returned when Jira has no issue with the requested key.
var ErrTicketNotFound = errors.New("ticket not found")

// previewFields limits the issue payload to what a preview shows.
var previewFields = []string{
	"summary", "description", "status", "priority", "issuetype",
	"assignee", "labels", "components", "issuelinks",
}

// TicketFetcher loads a ticket preview.
type TicketFetcher interface {
	GetTicket(ctx context.Context, key string) (*impact.JiraTicket, error)
}

// Client represents a Jira API client
type Client struct {
	baseURL string
	jira    *jira.Client
}

// NewClient creates a new Jira client
func NewClient(cfg *config.Config) (*Client, error) {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: time.Second * 30})
}

// NewClientWithHTTP is NewClient with a caller-supplied http.Client.
func NewClientWithHTTP(cfg *config.Config, httpClient *http.Client) (*Client, error) {
	if !cfg.JiraConfigured() {
		return nil, ErrNotConfigured
	}
	instance, err := jira.New(httpClient, cfg.JiraBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}
	instance.Auth.SetBasicAuth(cfg.JiraUsername, cfg.JiraAPIToken)

	return &Client{
		baseURL: strings.TrimRight(cfg.JiraBaseURL, "/"),
		jira:    instance,
	}, nil
}

// GetTicket fetches a Jira ticket by its key
func (c *Client) GetTicket(ctx context.Context, key string) (*impact.JiraTicket, error) {
	if fe := impact.ValidateTicketID(key); fe != nil {
		return nil, fe
	}

	issue, response, err := c.jira.Issue.Get(ctx, key, previewFields, nil)
	if err != nil {
		if response != nil && response.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", key, ErrTicketNotFound)
		}
		if response != nil {
			log.Debugf("Jira returned status %d for %s: %s", response.Code, key, truncate(response.Bytes.String(), 300))
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}

	return toTicket(c.baseURL, issue), nil
}

// toTicket flattens the issue scheme into the preview model.
func toTicket(baseURL string, issue *models.IssueSchemeV2) *impact.JiraTicket {
	ticket := &impact.JiraTicket{}
	if issue == nil {
		return ticket
	}
	ticket.Key = issue.Key
	if baseURL != "" && issue.Key != "" {
		ticket.URL = baseURL + "/browse/" + issue.Key
	}

	fields := issue.Fields
	if fields == nil {
		return ticket
	}
	ticket.Summary = fields.Summary
	ticket.Description = fields.Description
	ticket.Labels = fields.Labels
	if fields.Status != nil {
		ticket.Status = fields.Status.Name
	}
	if fields.Priority != nil {
		ticket.Priority = fields.Priority.Name
	}
	if fields.IssueType != nil {
		ticket.Type = fields.IssueType.Name
	}
	if fields.Assignee != nil {
		ticket.Assignee = fields.Assignee.DisplayName
	}
	for _, comp := range fields.Components {
		if comp != nil && comp.Name != "" {
			ticket.Components = append(ticket.Components, comp.Name)
		}
	}
	for _, link := range fields.IssueLinks {
		if link == nil {
			continue
		}
		var jl impact.JiraLink
		if link.Type != nil {
			jl.Type = link.Type.Name
		}
		if link.InwardIssue != nil {
			jl.InwardIssue = link.InwardIssue.Key
		}
		if link.OutwardIssue != nil {
			jl.OutwardIssue = link.OutwardIssue.Key
		}
		ticket.Links = append(ticket.Links, jl)
	}
	return ticket
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
