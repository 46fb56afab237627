package schema

import "fmt"

// Reason classifies why a classification was rejected.
type Reason string

const (
	ReasonEmpty         Reason = "empty"
	ReasonUnknownTag    Reason = "unknown_tag"
	ReasonArity         Reason = "arity"
	ReasonTemplateEcho  Reason = "template_echo"
	ReasonInvalidKind   Reason = "invalid_kind"
	ReasonInvalidAmount Reason = "invalid_amount"
	ReasonEmptyContent  Reason = "empty_content"
)

// ParseError reports a classification that could not be turned into a record.
// Raw is kept so the submitter can see what the classifier answered.
type ParseError struct {
	Raw    string
	Reason Reason
	Detail string
}

func (e *ParseError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("schema: %s (raw=%q)", e.Reason, e.Raw)
	}
	return fmt.Sprintf("schema: %s: %s (raw=%q)", e.Reason, e.Detail, e.Raw)
}
