package models

import (
	"strings"
	"time"
)

// Depth selects how much work the backend puts into an analysis.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthDetailed      Depth = "detailed"
	DepthComprehensive Depth = "comprehensive"
)

// Depths lists the accepted depths in increasing order of effort.
var Depths = []Depth{DepthBasic, DepthDetailed, DepthComprehensive}

// Status values reported by the backend for an analysis.
const (
	StatusCompleted  = "completed"
	StatusProcessing = "processing"
	StatusFailed     = "failed"
)

// AnalysisOptions tunes a single analysis request.
type AnalysisOptions struct {
	IncludeComments    bool    `json:"includeComments" yaml:"includeComments"`
	IncludeAttachments bool    `json:"includeAttachments" yaml:"includeAttachments"`
	AnalysisDepth      Depth   `json:"analysisDepth" yaml:"analysisDepth" validate:"oneof=basic detailed comprehensive"`
	MaxRelatedTickets  int     `json:"maxRelatedTickets" yaml:"maxRelatedTickets" validate:"min=1,max=50"`
	MinRelevanceScore  float64 `json:"minRelevanceScore" yaml:"minRelevanceScore" validate:"gte=0,lte=1"`
}

// DefaultOptions returns the options a fresh form starts with.
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		IncludeComments:    true,
		IncludeAttachments: false,
		AnalysisDepth:      DepthDetailed,
		MaxRelatedTickets:  20,
		MinRelevanceScore:  0.3,
	}
}

// AnalysisRequest is the body of POST /api/analysis/analyze.
type AnalysisRequest struct {
	TicketID string          `json:"ticketId" yaml:"ticketId"`
	Options  AnalysisOptions `json:"options" yaml:"options"`
}

// AnalysisResponse is the backend's analysis record. Every nested object may
// be missing; renderers must check before dereferencing.
type AnalysisResponse struct {
	ID        string    `json:"id" yaml:"id"`
	TicketID  string    `json:"ticketId" yaml:"ticketId"`
	Status    string    `json:"status" yaml:"status"`
	Report    *Report   `json:"report,omitempty" yaml:"report,omitempty"`
	Metadata  *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt string    `json:"createdAt,omitempty" yaml:"createdAt,omitempty"`
}

type Report struct {
	Summary         string           `json:"summary" yaml:"summary"`
	RelatedTickets  []RelatedTicket  `json:"relatedTickets,omitempty" yaml:"relatedTickets,omitempty"`
	RiskAssessment  *RiskAssessment  `json:"riskAssessment,omitempty" yaml:"riskAssessment,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty" yaml:"recommendations,omitempty"`
	Metrics         *Metrics         `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

type RelatedTicket struct {
	TicketKey      string  `json:"ticketKey" yaml:"ticketKey"`
	Summary        string  `json:"summary" yaml:"summary"`
	Description    string  `json:"description" yaml:"description"`
	Severity       string  `json:"severity" yaml:"severity"`
	RelevanceScore float64 `json:"relevanceScore" yaml:"relevanceScore"`
	URL            string  `json:"url" yaml:"url"`
}

type RiskAssessment struct {
	Risks []Risk `json:"risks" yaml:"risks"`
}

type Risk struct {
	Level       string `json:"level" yaml:"level"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Mitigation  string `json:"mitigation,omitempty" yaml:"mitigation,omitempty"`
}

type Recommendation struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type Metrics struct {
	ImpactScore    float64 `json:"impactScore" yaml:"impactScore"`
	AffectedTeams  int     `json:"affectedTeams" yaml:"affectedTeams"`
	TimelineImpact string  `json:"timelineImpact" yaml:"timelineImpact"`
}

type Metadata struct {
	ProcessingTime  int64  `json:"processingTime" yaml:"processingTime"`
	TicketsAnalyzed int    `json:"ticketsAnalyzed" yaml:"ticketsAnalyzed"`
	CreatedAt       string `json:"createdAt" yaml:"createdAt"`
}

// timestampLayouts covers RFC 3339 and the zone-less form the backend's
// LocalDateTime serialises to.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Created returns when the analysis was created, preferring the metadata
// timestamp. ok is false when neither field holds a parseable time.
func (r *AnalysisResponse) Created() (t time.Time, ok bool) {
	if r == nil {
		return time.Time{}, false
	}
	raw := r.CreatedAt
	if r.Metadata != nil && r.Metadata.CreatedAt != "" {
		raw = r.Metadata.CreatedAt
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	// Zone-less layouts are the backend's local time, read in the client's.
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
