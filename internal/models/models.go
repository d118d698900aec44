package models

// JiraTicket is a preview of a Jira issue, fetched before an analysis is
// submitted so the user can confirm they picked the right ticket.
type JiraTicket struct {
	Key         string     `json:"key" yaml:"key"`
	Summary     string     `json:"summary" yaml:"summary"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string     `json:"status" yaml:"status"`
	Priority    string     `json:"priority,omitempty" yaml:"priority,omitempty"`
	Type        string     `json:"type,omitempty" yaml:"type,omitempty"`
	Assignee    string     `json:"assignee,omitempty" yaml:"assignee,omitempty"`
	Labels      []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Components  []string   `json:"components,omitempty" yaml:"components,omitempty"`
	Links       []JiraLink `json:"links,omitempty" yaml:"links,omitempty"`
	URL         string     `json:"url,omitempty" yaml:"url,omitempty"`
}

// JiraLink represents a Jira issue link
type JiraLink struct {
	Type         string `json:"type" yaml:"type"`
	InwardIssue  string `json:"inwardIssue,omitempty" yaml:"inwardIssue,omitempty"`
	OutwardIssue string `json:"outwardIssue,omitempty" yaml:"outwardIssue,omitempty"`
}

// HealthStatus is what `impactlens health` reports.
type HealthStatus struct {
	BaseURL string `json:"baseUrl" yaml:"baseUrl"`
	Message string `json:"message" yaml:"message"`
}
