package jira

import (
	"fmt"
	"io"
	"strings"

	impact "github.com/tuannvm/impactlens/internal/models"
)

// WritePreview prints a short, plain-text card for a ticket.
func WritePreview(w io.Writer, t *impact.JiraTicket) error {
	_, err := io.WriteString(w, PreviewString(t))
	return err
}

func PreviewString(t *impact.JiraTicket) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", t.Key, t.Summary)

	var meta []string
	for _, kv := range [][2]string{
		{"Type", t.Type},
		{"Status", t.Status},
		{"Priority", t.Priority},
		{"Assignee", t.Assignee},
	} {
		if kv[1] != "" {
			meta = append(meta, kv[0]+": "+kv[1])
		}
	}
	if len(meta) > 0 {
		b.WriteString("  " + strings.Join(meta, " | ") + "\n")
	}
	if len(t.Labels) > 0 {
		b.WriteString("  Labels: " + strings.Join(t.Labels, ", ") + "\n")
	}
	if len(t.Components) > 0 {
		b.WriteString("  Components: " + strings.Join(t.Components, ", ") + "\n")
	}
	for _, l := range t.Links {
		switch {
		case l.OutwardIssue != "":
			fmt.Fprintf(&b, "  %s -> %s\n", l.Type, l.OutwardIssue)
		case l.InwardIssue != "":
			fmt.Fprintf(&b, "  %s <- %s\n", l.Type, l.InwardIssue)
		}
	}
	if t.URL != "" {
		b.WriteString("  " + t.URL + "\n")
	}
	return b.String()
}
