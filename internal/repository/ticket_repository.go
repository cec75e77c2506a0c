package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// TicketFilter captures staff search parameters.
type TicketFilter struct {
	Statuses      []domain.TicketStatus
	AssigneeEmail *string
	Limit         int
	Offset        int
}

// TicketRepository encapsulates ticket persistence and the ticket link tables.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes status and deadline and refreshes UpdatedAt.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	FindByRequest(ctx context.Context, requestID string) (*domain.Ticket, error)

	LinkRequests(ctx context.Context, ticketID string, requestIDs []string) error
	ListRequestIDs(ctx context.Context, ticketID string) ([]string, error)

	AddFollowers(ctx context.Context, ticketID string, emails []string) error
	// ListFollowers pairs each follower with the token of that follower's
	// earliest origin request on the ticket.
	ListFollowers(ctx context.Context, ticketID string) ([]domain.Follower, error)

	AddCategories(ctx context.Context, ticketID string, categories []string) error
	ListCategories(ctx context.Context, ticketID string) ([]string, error)

	// ReplaceAssignee removes every assignee link and, when email is non-nil, inserts one.
	ReplaceAssignee(ctx context.Context, ticketID string, email *string) error
	ListAssignees(ctx context.Context, ticketID string) ([]string, error)
}

type ticketRepository struct {
	pgRepo
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pgRepo{pool: pool}}
}

const ticketColumns = `id, title, content, suggested_solutions, status, deadline, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO tickets (id, title, content, suggested_solutions, status, deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	return r.db(ctx).QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Content,
		ticket.SuggestedSolutions,
		ticket.Status,
		ticket.Deadline,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, deadline=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	err := r.db(ctx).QueryRow(ctx, query,
		ticket.Status,
		ticket.Deadline,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return mapNoRows(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.db(ctx).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1`, id))
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return scanTicket(r.db(ctx).QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id=$1 FOR UPDATE`, id))
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT t.id, t.title, t.content, t.suggested_solutions, t.status, t.deadline, t.created_at, t.updated_at FROM tickets t`
	args := []any{}
	clauses := []string{}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("t.status = ANY($%d)", len(args)))
	}
	if filter.AssigneeEmail != nil {
		args = append(args, *filter.AssigneeEmail)
		clauses = append(clauses, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM ticket_assignees ta WHERE ta.ticket_id = t.id AND ta.assignee_email=$%d)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	query += " ORDER BY t.created_at DESC, t.id"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) FindByRequest(ctx context.Context, requestID string) (*domain.Ticket, error) {
	const query = `
        SELECT t.id, t.title, t.content, t.suggested_solutions, t.status, t.deadline, t.created_at, t.updated_at
        FROM tickets t
        JOIN ticket_requests tr ON tr.ticket_id = t.id
        WHERE tr.user_request_id=$1
        ORDER BY t.created_at DESC
        LIMIT 1`
	return scanTicket(r.db(ctx).QueryRow(ctx, query, requestID))
}

func (r *ticketRepository) LinkRequests(ctx context.Context, ticketID string, requestIDs []string) error {
	for _, requestID := range requestIDs {
		if _, err := r.db(ctx).Exec(ctx, `
            INSERT INTO ticket_requests (ticket_id, user_request_id)
            VALUES ($1,$2) ON CONFLICT DO NOTHING`, ticketID, requestID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListRequestIDs(ctx context.Context, ticketID string) ([]string, error) {
	const query = `
        SELECT tr.user_request_id::text
        FROM ticket_requests tr
        JOIN user_requests ur ON ur.id = tr.user_request_id
        WHERE tr.ticket_id=$1
        ORDER BY ur.created_at ASC, ur.id`
	rows, err := r.db(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func (r *ticketRepository) AddFollowers(ctx context.Context, ticketID string, emails []string) error {
	for _, email := range emails {
		if _, err := r.db(ctx).Exec(ctx, `
            INSERT INTO ticket_followers (ticket_id, email)
            VALUES ($1,$2) ON CONFLICT DO NOTHING`, ticketID, email); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListFollowers(ctx context.Context, ticketID string) ([]domain.Follower, error) {
	const query = `
        SELECT f.email, COALESCE((
            SELECT ur.tracking_token
            FROM ticket_requests tr
            JOIN user_requests ur ON ur.id = tr.user_request_id
            WHERE tr.ticket_id = f.ticket_id AND ur.requester_email = f.email
            ORDER BY ur.created_at ASC, ur.id
            LIMIT 1), '')
        FROM ticket_followers f
        WHERE f.ticket_id=$1
        ORDER BY f.email`
	rows, err := r.db(ctx).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Follower{}
	for rows.Next() {
		var follower domain.Follower
		if err := rows.Scan(&follower.Email, &follower.TrackingToken); err != nil {
			return nil, err
		}
		result = append(result, follower)
	}
	return result, rows.Err()
}

func (r *ticketRepository) AddCategories(ctx context.Context, ticketID string, categories []string) error {
	for _, category := range categories {
		if _, err := r.db(ctx).Exec(ctx, `
            INSERT INTO ticket_categories (ticket_id, category)
            VALUES ($1,$2) ON CONFLICT DO NOTHING`, ticketID, category); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListCategories(ctx context.Context, ticketID string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT category FROM ticket_categories WHERE ticket_id=$1 ORDER BY category`, ticketID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func (r *ticketRepository) ReplaceAssignee(ctx context.Context, ticketID string, email *string) error {
	if _, err := r.db(ctx).Exec(ctx, `DELETE FROM ticket_assignees WHERE ticket_id=$1`, ticketID); err != nil {
		return err
	}
	if email == nil {
		return nil
	}
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO ticket_assignees (ticket_id, assignee_email) VALUES ($1,$2)`, ticketID, *email)
	return err
}

func (r *ticketRepository) ListAssignees(ctx context.Context, ticketID string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT assignee_email FROM ticket_assignees WHERE ticket_id=$1 ORDER BY assignee_email`, ticketID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket   domain.Ticket
		deadline *time.Time
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Content,
		&ticket.SuggestedSolutions,
		&ticket.Status,
		&deadline,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	ticket.Deadline = deadline
	return &ticket, nil
}
