package models

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field names used in FieldError.
const (
	FieldTicketID           = "ticketId"
	FieldIncludeComments    = "includeComments"
	FieldIncludeAttachments = "includeAttachments"
	FieldAnalysisDepth      = "analysisDepth"
	FieldMaxRelatedTickets  = "maxRelatedTickets"
	FieldMinRelevanceScore  = "minRelevanceScore"
)

const (
	MinRelatedTickets = 1
	MaxRelatedTickets = 50

	TicketIDFormatMessage = "Ticket ID must be in format PROJECT-123"
)

var ticketIDPattern = regexp.MustCompile(`^[A-Z]+-\d+$`)

// FieldError is a validation failure tied to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every field error found in one pass.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ValidateTicketID checks the PROJECT-123 shape. An empty id fails with the
// same message. Surrounding whitespace is not trimmed.
func ValidateTicketID(id string) *FieldError {
	if !ticketIDPattern.MatchString(id) {
		return &FieldError{Field: FieldTicketID, Message: TicketIDFormatMessage}
	}
	return nil
}

// validate checks AnalysisOptions against its struct tags. Field names in
// its errors are the json names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}()

// optionMessages are the user-facing messages for each option field.
var optionMessages = map[string]string{
	FieldAnalysisDepth:     fmt.Sprintf("Analysis depth must be one of %s", joinDepths()),
	FieldMaxRelatedTickets: fmt.Sprintf("Max related tickets must be between %d and %d", MinRelatedTickets, MaxRelatedTickets),
	FieldMinRelevanceScore: "Min relevance score must be between 0 and 1",
}

// Validate checks every option against its allowed range. NaN and infinite
// scores are out of range.
func (o AnalysisOptions) Validate() []FieldError {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "options", Message: err.Error()}}
	}

	errs := make([]FieldError, 0, len(verrs))
	seen := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		msg, ok := optionMessages[field]
		if !ok {
			msg = fmt.Sprintf("Invalid value for %s", field)
		}
		errs = append(errs, FieldError{Field: field, Message: msg})
	}
	return errs
}

// Validate checks the whole request and returns a *ValidationError when
// anything is wrong.
func (r AnalysisRequest) Validate() error {
	var errs []FieldError
	if fe := ValidateTicketID(r.TicketID); fe != nil {
		errs = append(errs, *fe)
	}
	errs = append(errs, r.Options.Validate()...)
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}

func joinDepths() string {
	names := make([]string, len(Depths))
	for i, d := range Depths {
		names[i] = string(d)
	}
	return strings.Join(names, ", ")
}
