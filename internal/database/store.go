package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/osticket/ai-assistant/internal/assistant"
	"github.com/osticket/ai-assistant/internal/text"
)

// historySeparator joins prior replies into the ticket's history block.
const historySeparator = "\n\n--- Reply ---\n\n"

// Store provides read access to tickets and canned responses. It implements
// assistant.Store.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store backed by sqlx. It requires a connected
// sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		db:     db,
		logger: logger,
	}
}

type ticketRow struct {
	ID       int64          `db:"id"`
	Number   string         `db:"number"`
	Subject  string         `db:"subject"`
	DeptID   int64          `db:"dept_id"`
	DeptName sql.NullString `db:"dept_name"`
	Priority string         `db:"priority"`
}

// TicketContext assembles the suggestion-time snapshot of a ticket: basic
// fields plus thread content. The first thread entry becomes Content and any
// later entries are joined into History. Returns nil, nil when the ticket
// does not exist.
func (s *Store) TicketContext(ctx context.Context, ticketID int64) (*assistant.TicketContext, error) {
	const ticketQuery = `
		SELECT t.id, t.number, t.subject, t.dept_id, t.priority, d.name AS dept_name
		FROM ticket t
		LEFT JOIN department d ON d.id = t.dept_id
		WHERE t.id = ?`

	var row ticketRow
	if err := s.db.GetContext(ctx, &row, ticketQuery, ticketID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load ticket %d: %w", ticketID, err)
	}

	const threadQuery = `SELECT body FROM thread_entry WHERE ticket_id = ? ORDER BY id`

	var bodies []string
	if err := s.db.SelectContext(ctx, &bodies, threadQuery, ticketID); err != nil {
		return nil, fmt.Errorf("failed to load thread for ticket %d: %w", ticketID, err)
	}

	tc := &assistant.TicketContext{
		ID:         row.ID,
		Number:     row.Number,
		Subject:    row.Subject,
		DeptID:     row.DeptID,
		Department: row.DeptName.String,
		Priority:   row.Priority,
	}

	messages := make([]string, 0, len(bodies))
	for _, body := range bodies {
		if cleaned := text.Clean(body); cleaned != "" {
			messages = append(messages, cleaned)
		}
	}

	if len(messages) > 0 {
		tc.Content = messages[0]
		if len(messages) > 1 {
			tc.History = strings.Join(messages[1:], historySeparator)
		}
	}

	s.logger.Debug("assembled ticket context",
		"ticket_id", ticketID,
		"dept_id", tc.DeptID,
		"thread_entries", len(messages))

	return tc, nil
}

// ActiveTemplates lists enabled canned responses visible to a department:
// those scoped to deptID plus global ones (dept_id = 0), in primary-key
// order. Contents are cleaned to plain text.
func (s *Store) ActiveTemplates(ctx context.Context, deptID int64) ([]assistant.Template, error) {
	const query = `
		SELECT id, title, response, dept_id
		FROM canned_response
		WHERE enabled = 1 AND (dept_id = ? OR dept_id = ?)
		ORDER BY id`

	type cannedRow struct {
		ID       int64  `db:"id"`
		Title    string `db:"title"`
		Response string `db:"response"`
		DeptID   int64  `db:"dept_id"`
	}

	var rows []cannedRow
	if err := s.db.SelectContext(ctx, &rows, query, assistant.GlobalDeptID, deptID); err != nil {
		return nil, fmt.Errorf("failed to list canned responses for dept %d: %w", deptID, err)
	}

	templates := make([]assistant.Template, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, assistant.Template{
			ID:      row.ID,
			Title:   row.Title,
			Content: text.Clean(row.Response),
			DeptID:  row.DeptID,
		})
	}

	return templates, nil
}

// Template looks up a single canned response by id, regardless of its
// enabled flag. Returns nil, nil when it does not exist.
func (s *Store) Template(ctx context.Context, templateID int64) (*assistant.Template, error) {
	const query = `SELECT id, title, response, dept_id FROM canned_response WHERE id = ?`

	var row struct {
		ID       int64  `db:"id"`
		Title    string `db:"title"`
		Response string `db:"response"`
		DeptID   int64  `db:"dept_id"`
	}
	if err := s.db.GetContext(ctx, &row, query, templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load canned response %d: %w", templateID, err)
	}

	return &assistant.Template{
		ID:      row.ID,
		Title:   row.Title,
		Content: text.Clean(row.Response),
		DeptID:  row.DeptID,
	}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
