// Package assistant implements the AI suggestion pipeline: prompt
// construction, the chat-completion client, response validation, and the
// ticket analyzer that ties them together.
package assistant

import "context"

// GlobalDeptID marks a canned response that applies to all departments.
const GlobalDeptID int64 = 0

// TicketContext is an immutable snapshot of a ticket at suggestion time.
type TicketContext struct {
	ID         int64
	Number     string
	Subject    string
	DeptID     int64
	Department string
	Priority   string
	// Content is the customer's first message, as plain text.
	Content string
	// History holds prior replies joined together, empty when the ticket has
	// no replies yet.
	History string
}

// Template is a pre-authored canned response offered to the model as a
// candidate. DeptID is GlobalDeptID for responses that apply everywhere.
type Template struct {
	ID      int64  `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	Content string `json:"content" db:"content"`
	DeptID  int64  `json:"dept_id" db:"dept_id"`
}

// Suggestion is the outcome of a suggestion request. Exactly one of
// (Success with Template and Confidence) or (Success false with Error)
// holds. Threshold rejections additionally carry the observed confidence
// and the required minimum so a caller can still present the rejected
// suggestion.
type Suggestion struct {
	Success bool `json:"success"`

	Template               *Template `json:"template,omitempty"`
	Confidence             int       `json:"confidence,omitempty"`
	DetectedLanguage       string    `json:"detected_language,omitempty"`
	Reasoning              string    `json:"reasoning,omitempty"`
	SuggestedModifications string    `json:"suggested_modifications,omitempty"`
	Alternatives           []int64   `json:"alternatives,omitempty"`

	Error       string `json:"error,omitempty"`
	MinRequired int    `json:"min_required,omitempty"`
}

// failure builds a plain failure result.
func failure(msg string) Suggestion {
	return Suggestion{Success: false, Error: msg}
}

// Store is the read surface the analyzer needs from the host's data layer.
type Store interface {
	// TicketContext assembles the snapshot for a ticket. Returns nil, nil
	// when the ticket does not exist.
	TicketContext(ctx context.Context, ticketID int64) (*TicketContext, error)

	// ActiveTemplates lists enabled canned responses scoped to a department:
	// responses belonging to deptID plus global ones, in retrieval order.
	ActiveTemplates(ctx context.Context, deptID int64) ([]Template, error)

	// Template looks up a single canned response by id regardless of its
	// enabled flag. Returns nil, nil when it does not exist.
	Template(ctx context.Context, templateID int64) (*Template, error)
}
