// Package form holds the analysis input form: the ticket id, the analysis
// options and their validation state, independent of how it is drawn.
package form

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tuannvm/impactlens/internal/models"
)

// ErrFormDisabled is returned for edits and submissions made while a request
// is in flight.
var ErrFormDisabled = errors.New("form is disabled while an analysis is running")

// optionFields is the order option errors are reported in.
var optionFields = []string{
	models.FieldIncludeComments,
	models.FieldIncludeAttachments,
	models.FieldAnalysisDepth,
	models.FieldMaxRelatedTickets,
	models.FieldMinRelevanceScore,
}

// SubmitFunc receives a validated ticket id and its options.
type SubmitFunc func(ticketID string, opts models.AnalysisOptions) error

// Form is the analysis input form. It is not safe for concurrent use; the
// dashboard only touches it from its update loop.
type Form struct {
	ticketID  string
	options   models.AnalysisOptions
	errs      []models.FieldError
	parseErrs map[string]models.FieldError // input that did not parse, until the field is set again
	advanced  bool
	disabled  bool
}

// New returns an empty form with the default options.
func New() *Form {
	return &Form{
		options:   models.DefaultOptions(),
		parseErrs: map[string]models.FieldError{},
	}
}

func (f *Form) TicketID() string                { return f.ticketID }
func (f *Form) Options() models.AnalysisOptions { return f.options }
func (f *Form) Advanced() bool                  { return f.advanced }
func (f *Form) Disabled() bool                  { return f.disabled }

// Errors returns the field errors from the last validation.
func (f *Form) Errors() []models.FieldError {
	out := make([]models.FieldError, len(f.errs))
	copy(out, f.errs)
	return out
}

// ErrorFor returns the inline error for field, or "".
func (f *Form) ErrorFor(field string) string {
	for _, e := range f.errs {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Request builds the request the form would submit.
func (f *Form) Request() models.AnalysisRequest {
	return models.AnalysisRequest{TicketID: f.ticketID, Options: f.options}
}

func (f *Form) SetTicketID(id string) error {
	if f.disabled {
		return ErrFormDisabled
	}
	f.ticketID = id
	f.clearError(models.FieldTicketID)
	return nil
}

// SetOption parses raw into the named option. A value that does not parse
// is recorded as that field's error and returned.
func (f *Form) SetOption(field, raw string) error {
	if f.disabled {
		return ErrFormDisabled
	}
	raw = strings.TrimSpace(raw)
	f.clearError(field)
	delete(f.parseErrs, field)

	var parseErr error
	switch field {
	case models.FieldIncludeComments:
		f.options.IncludeComments, parseErr = strconv.ParseBool(raw)
	case models.FieldIncludeAttachments:
		f.options.IncludeAttachments, parseErr = strconv.ParseBool(raw)
	case models.FieldAnalysisDepth:
		f.options.AnalysisDepth = models.Depth(strings.ToLower(raw))
	case models.FieldMaxRelatedTickets:
		var n int
		if n, parseErr = strconv.Atoi(raw); parseErr == nil {
			f.options.MaxRelatedTickets = n
		}
	case models.FieldMinRelevanceScore:
		var score float64
		if score, parseErr = strconv.ParseFloat(raw, 64); parseErr == nil {
			f.options.MinRelevanceScore = score
		}
	default:
		return fmt.Errorf("unknown option %q", field)
	}

	if parseErr != nil {
		fe := models.FieldError{Field: field, Message: fmt.Sprintf("Invalid value %q", raw)}
		f.parseErrs[field] = fe
		f.errs = append(f.errs, fe)
		return fe
	}
	return nil
}

// Toggle flips a boolean option.
func (f *Form) Toggle(field string) error {
	if f.disabled {
		return ErrFormDisabled
	}
	switch field {
	case models.FieldIncludeComments:
		f.options.IncludeComments = !f.options.IncludeComments
	case models.FieldIncludeAttachments:
		f.options.IncludeAttachments = !f.options.IncludeAttachments
	default:
		return fmt.Errorf("option %q is not a toggle", field)
	}
	return nil
}

// CycleDepth moves the analysis depth forward (step > 0) or back through
// basic, detailed and comprehensive, wrapping at either end.
func (f *Form) CycleDepth(step int) error {
	if f.disabled {
		return ErrFormDisabled
	}
	idx := 0
	for i, d := range models.Depths {
		if d == f.options.AnalysisDepth {
			idx = i
		}
	}
	n := len(models.Depths)
	f.options.AnalysisDepth = models.Depths[((idx+step)%n+n)%n]
	f.clearError(models.FieldAnalysisDepth)
	return nil
}

// ToggleAdvanced shows or hides the advanced options panel.
func (f *Form) ToggleAdvanced() {
	f.advanced = !f.advanced
}

// Reset restores the empty form with default options.
func (f *Form) Reset() error {
	if f.disabled {
		return ErrFormDisabled
	}
	advanced := f.advanced
	*f = *New()
	f.advanced = advanced
	return nil
}

// SetDisabled locks or unlocks the form.
func (f *Form) SetDisabled(disabled bool) {
	f.disabled = disabled
}

// Validate checks every field and remembers the result for inline display.
func (f *Form) Validate() []models.FieldError {
	var errs []models.FieldError
	if fe := models.ValidateTicketID(f.ticketID); fe != nil {
		errs = append(errs, *fe)
	}
	// A field whose last input did not parse reports that instead of a
	// range error on the value it kept.
	rangeErrs := map[string]models.FieldError{}
	for _, fe := range f.options.Validate() {
		rangeErrs[fe.Field] = fe
	}
	for _, field := range optionFields {
		if fe, ok := f.parseErrs[field]; ok {
			errs = append(errs, fe)
		} else if fe, ok := rangeErrs[field]; ok {
			errs = append(errs, fe)
		}
	}
	f.errs = errs
	return f.Errors()
}

// Submit validates the form and, only when it is valid, calls fn exactly
// once with the ticket id and options. Field errors are returned and kept for
// display; fn's own error is passed through.
func (f *Form) Submit(fn SubmitFunc) ([]models.FieldError, error) {
	if f.disabled {
		return nil, ErrFormDisabled
	}
	if errs := f.Validate(); len(errs) > 0 {
		return errs, nil
	}
	return nil, fn(f.ticketID, f.options)
}

func (f *Form) clearError(field string) {
	kept := f.errs[:0]
	for _, e := range f.errs {
		if e.Field != field {
			kept = append(kept, e)
		}
	}
	f.errs = kept
}
