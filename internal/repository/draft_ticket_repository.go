package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// DraftTicketRepository persists drafts and their link tables. Row methods
// return only the draft columns; links are read through the List* methods.
type DraftTicketRepository interface {
	Create(ctx context.Context, draft *domain.DraftTicket) error
	Update(ctx context.Context, draft *domain.DraftTicket) error
	GetByID(ctx context.Context, id string) (*domain.DraftTicket, error)
	// GetForUpdate locks the draft row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.DraftTicket, error)
	List(ctx context.Context) ([]domain.DraftTicket, error)
	Delete(ctx context.Context, id string) error
	FindByRequest(ctx context.Context, requestID string) (*domain.DraftTicket, error)

	LinkRequest(ctx context.Context, draftID, requestID string) error
	UnlinkRequest(ctx context.Context, draftID, requestID string) error
	// RepointRequests moves every request link of from onto to.
	RepointRequests(ctx context.Context, fromDraftID, toDraftID string) (int64, error)
	DeleteRequestLinks(ctx context.Context, draftID string) error
	ListRequests(ctx context.Context, draftID string) ([]domain.UserRequest, error)

	AddCategories(ctx context.Context, draftID string, categories []string) error
	DeleteCategories(ctx context.Context, draftID string) error
	ListCategories(ctx context.Context, draftID string) ([]string, error)

	AddAssignee(ctx context.Context, draftID, email string) error
	DeleteAssignees(ctx context.Context, draftID string) error
	ListAssignees(ctx context.Context, draftID string) ([]string, error)
}

type draftTicketRepository struct {
	pgRepo
}

// NewDraftTicketRepository builds the Postgres implementation.
func NewDraftTicketRepository(pool *pgxpool.Pool) DraftTicketRepository {
	return &draftTicketRepository{pgRepo{pool: pool}}
}

const draftColumns = `id, title, summary, suggested_solutions, suggested_assignee, deadline, created_at`

func (r *draftTicketRepository) Create(ctx context.Context, draft *domain.DraftTicket) error {
	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO draft_tickets (id, title, summary, suggested_solutions, suggested_assignee, deadline)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.db(ctx).QueryRow(ctx, query,
		draft.ID,
		draft.Title,
		draft.Summary,
		draft.SuggestedSolutions,
		draft.SuggestedAssignee,
		draft.Deadline,
	).Scan(&draft.CreatedAt)
}

func (r *draftTicketRepository) Update(ctx context.Context, draft *domain.DraftTicket) error {
	const query = `
        UPDATE draft_tickets
        SET title=$1, summary=$2, suggested_solutions=$3, suggested_assignee=$4, deadline=$5
        WHERE id=$6`
	cmd, err := r.db(ctx).Exec(ctx, query,
		draft.Title,
		draft.Summary,
		draft.SuggestedSolutions,
		draft.SuggestedAssignee,
		draft.Deadline,
		draft.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftTicketRepository) GetByID(ctx context.Context, id string) (*domain.DraftTicket, error) {
	return scanDraft(r.db(ctx).QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_tickets WHERE id=$1`, id))
}

func (r *draftTicketRepository) GetForUpdate(ctx context.Context, id string) (*domain.DraftTicket, error) {
	return scanDraft(r.db(ctx).QueryRow(ctx, `SELECT `+draftColumns+` FROM draft_tickets WHERE id=$1 FOR UPDATE`, id))
}

func (r *draftTicketRepository) List(ctx context.Context) ([]domain.DraftTicket, error) {
	rows, err := r.db(ctx).Query(ctx, `SELECT `+draftColumns+` FROM draft_tickets ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.DraftTicket{}
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *draft)
	}
	return result, rows.Err()
}

func (r *draftTicketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM draft_tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftTicketRepository) FindByRequest(ctx context.Context, requestID string) (*domain.DraftTicket, error) {
	const query = `
        SELECT d.id, d.title, d.summary, d.suggested_solutions, d.suggested_assignee, d.deadline, d.created_at
        FROM draft_tickets d
        JOIN draft_ticket_requests dr ON dr.draft_ticket_id = d.id
        WHERE dr.user_request_id=$1
        ORDER BY d.created_at DESC
        LIMIT 1`
	return scanDraft(r.db(ctx).QueryRow(ctx, query, requestID))
}

func (r *draftTicketRepository) LinkRequest(ctx context.Context, draftID, requestID string) error {
	_, err := r.db(ctx).Exec(ctx, `
        INSERT INTO draft_ticket_requests (draft_ticket_id, user_request_id)
        VALUES ($1,$2) ON CONFLICT DO NOTHING`, draftID, requestID)
	return err
}

func (r *draftTicketRepository) UnlinkRequest(ctx context.Context, draftID, requestID string) error {
	cmd, err := r.db(ctx).Exec(ctx,
		`DELETE FROM draft_ticket_requests WHERE draft_ticket_id=$1 AND user_request_id=$2`,
		draftID, requestID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *draftTicketRepository) RepointRequests(ctx context.Context, fromDraftID, toDraftID string) (int64, error) {
	// Insert-then-delete keeps the primary key happy when both drafts share a request.
	const insert = `
        INSERT INTO draft_ticket_requests (draft_ticket_id, user_request_id)
        SELECT $2, user_request_id FROM draft_ticket_requests WHERE draft_ticket_id=$1
        ON CONFLICT DO NOTHING`
	if _, err := r.db(ctx).Exec(ctx, insert, fromDraftID, toDraftID); err != nil {
		return 0, err
	}
	cmd, err := r.db(ctx).Exec(ctx, `DELETE FROM draft_ticket_requests WHERE draft_ticket_id=$1`, fromDraftID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *draftTicketRepository) DeleteRequestLinks(ctx context.Context, draftID string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM draft_ticket_requests WHERE draft_ticket_id=$1`, draftID)
	return err
}

func (r *draftTicketRepository) ListRequests(ctx context.Context, draftID string) ([]domain.UserRequest, error) {
	const query = `
        SELECT ur.id, ur.requester_email, ur.body, ur.tracking_token, ur.created_at
        FROM user_requests ur
        JOIN draft_ticket_requests dr ON dr.user_request_id = ur.id
        WHERE dr.draft_ticket_id=$1
        ORDER BY ur.created_at ASC, ur.id`
	rows, err := r.db(ctx).Query(ctx, query, draftID)
	if err != nil {
		return nil, err
	}
	return collectUserRequests(rows)
}

func (r *draftTicketRepository) AddCategories(ctx context.Context, draftID string, categories []string) error {
	for _, category := range categories {
		if _, err := r.db(ctx).Exec(ctx, `
            INSERT INTO draft_ticket_categories (draft_ticket_id, category)
            VALUES ($1,$2) ON CONFLICT DO NOTHING`, draftID, category); err != nil {
			return err
		}
	}
	return nil
}

func (r *draftTicketRepository) DeleteCategories(ctx context.Context, draftID string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM draft_ticket_categories WHERE draft_ticket_id=$1`, draftID)
	return err
}

func (r *draftTicketRepository) ListCategories(ctx context.Context, draftID string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT category FROM draft_ticket_categories WHERE draft_ticket_id=$1 ORDER BY category`, draftID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func (r *draftTicketRepository) AddAssignee(ctx context.Context, draftID, email string) error {
	_, err := r.db(ctx).Exec(ctx, `
        INSERT INTO draft_ticket_assignees (draft_ticket_id, assignee_email)
        VALUES ($1,$2) ON CONFLICT DO NOTHING`, draftID, email)
	return err
}

func (r *draftTicketRepository) DeleteAssignees(ctx context.Context, draftID string) error {
	_, err := r.db(ctx).Exec(ctx, `DELETE FROM draft_ticket_assignees WHERE draft_ticket_id=$1`, draftID)
	return err
}

func (r *draftTicketRepository) ListAssignees(ctx context.Context, draftID string) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT assignee_email FROM draft_ticket_assignees WHERE draft_ticket_id=$1 ORDER BY assignee_email`, draftID)
	if err != nil {
		return nil, err
	}
	return collectStrings(rows)
}

func scanDraft(row pgx.Row) (*domain.DraftTicket, error) {
	var draft domain.DraftTicket
	if err := row.Scan(
		&draft.ID,
		&draft.Title,
		&draft.Summary,
		&draft.SuggestedSolutions,
		&draft.SuggestedAssignee,
		&draft.Deadline,
		&draft.CreatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &draft, nil
}
