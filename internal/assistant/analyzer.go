package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/osticket/ai-assistant/internal/config"
)

// Suggester abstracts the model round trip so the analyzer can be exercised
// without network access.
type Suggester interface {
	FindBestTemplate(ctx context.Context, ticket *TicketContext, templates []Template) Suggestion
}

// Analyzer orchestrates a suggestion request: context retrieval, template
// retrieval, capping, model invocation, and confidence-threshold policy.
// Every stage either advances or produces a terminal structured result;
// nothing is retried and no error escapes to the caller.
type Analyzer struct {
	store         Store
	client        Suggester
	minConfidence int
	maxTemplates  int
	logger        *slog.Logger
}

// NewAnalyzer builds an analyzer from validated configuration. When the
// endpoint/key/model triple is incomplete no client is constructed and
// every suggestion request fails fast without a network call.
func NewAnalyzer(store Store, cfg *config.Config, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	a := &Analyzer{
		store:         store,
		minConfidence: cfg.MinConfidence,
		maxTemplates:  cfg.MaxTemplates,
		logger:        logger,
	}

	if cfg.ClientConfigured() {
		a.client = NewClient(cfg.ClientConfig(), logger, nil)
	} else {
		logger.Warn("model API client not configured, suggestions disabled")
	}

	return a
}

// AnalyzeTicket produces a canned-response suggestion for a ticket. The
// result always carries success=true with a template and confidence, or
// success=false with a human-readable error.
func (a *Analyzer) AnalyzeTicket(ctx context.Context, ticketID int64) Suggestion {
	ticket, err := a.store.TicketContext(ctx, ticketID)
	if err != nil {
		a.logger.Error("ticket lookup failed", "ticket_id", ticketID, "error", err)
		return failure(fmt.Sprintf("Ticket lookup failed: %v", err))
	}
	if ticket == nil {
		return failure("Ticket not found")
	}

	templates, err := a.store.ActiveTemplates(ctx, ticket.DeptID)
	if err != nil {
		a.logger.Error("canned response lookup failed", "ticket_id", ticketID, "error", err)
		return failure(fmt.Sprintf("Canned response lookup failed: %v", err))
	}
	if len(templates) == 0 {
		return failure("No canned responses available")
	}

	// Prefix cut in retrieval order, no ranking before truncation.
	if a.maxTemplates > 0 && len(templates) > a.maxTemplates {
		templates = templates[:a.maxTemplates]
	}

	if a.client == nil {
		return failure("API client not configured. Please check settings (API Key, Model, API URL).")
	}

	a.logger.Info("requesting suggestion",
		"ticket_id", ticketID,
		"dept_id", ticket.DeptID,
		"candidates", len(templates))

	result := a.client.FindBestTemplate(ctx, ticket, templates)
	if !result.Success {
		return result
	}

	// The minimum is inclusive: confidence equal to the threshold passes.
	if result.Confidence < a.minConfidence {
		a.logger.Info("suggestion below confidence threshold",
			"ticket_id", ticketID,
			"confidence", result.Confidence,
			"min_required", a.minConfidence)
		return Suggestion{
			Success:     false,
			Error:       "No template found with sufficient confidence",
			Confidence:  result.Confidence,
			MinRequired: a.minConfidence,
		}
	}

	a.logger.Info("suggestion ready",
		"ticket_id", ticketID,
		"template_id", result.Template.ID,
		"confidence", result.Confidence)

	return result
}

// Template fetches a single canned response by id for the fetch-template
// operation. Returns nil, nil when the id is unknown.
func (a *Analyzer) Template(ctx context.Context, templateID int64) (*Template, error) {
	return a.store.Template(ctx, templateID)
}
