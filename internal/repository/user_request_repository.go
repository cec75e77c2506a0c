package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// UserRequestRepository persists raw submissions. Requests are never updated.
type UserRequestRepository interface {
	Create(ctx context.Context, req *domain.UserRequest) error
	GetByID(ctx context.Context, id string) (*domain.UserRequest, error)
	GetByTokenAndEmail(ctx context.Context, token, email string) (*domain.UserRequest, error)
	ListByEmail(ctx context.Context, email string) ([]domain.UserRequest, error)
}

type userRequestRepository struct {
	pgRepo
}

// NewUserRequestRepository builds the Postgres implementation.
func NewUserRequestRepository(pool *pgxpool.Pool) UserRequestRepository {
	return &userRequestRepository{pgRepo{pool: pool}}
}

const userRequestColumns = `id, requester_email, body, tracking_token, created_at`

func (r *userRequestRepository) Create(ctx context.Context, req *domain.UserRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO user_requests (id, requester_email, body, tracking_token)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at`
	return r.db(ctx).QueryRow(ctx, query,
		req.ID,
		req.RequesterEmail,
		req.Body,
		req.TrackingToken,
	).Scan(&req.CreatedAt)
}

func (r *userRequestRepository) GetByID(ctx context.Context, id string) (*domain.UserRequest, error) {
	row := r.db(ctx).QueryRow(ctx, `SELECT `+userRequestColumns+` FROM user_requests WHERE id=$1`, id)
	return scanUserRequest(row)
}

func (r *userRequestRepository) GetByTokenAndEmail(ctx context.Context, token, email string) (*domain.UserRequest, error) {
	row := r.db(ctx).QueryRow(ctx,
		`SELECT `+userRequestColumns+` FROM user_requests WHERE tracking_token=$1 AND requester_email=$2`,
		token, email)
	return scanUserRequest(row)
}

func (r *userRequestRepository) ListByEmail(ctx context.Context, email string) ([]domain.UserRequest, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+userRequestColumns+` FROM user_requests WHERE requester_email=$1 ORDER BY created_at DESC, id`,
		email)
	if err != nil {
		return nil, err
	}
	return collectUserRequests(rows)
}

func scanUserRequest(row pgx.Row) (*domain.UserRequest, error) {
	var req domain.UserRequest
	if err := row.Scan(
		&req.ID,
		&req.RequesterEmail,
		&req.Body,
		&req.TrackingToken,
		&req.CreatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &req, nil
}

func collectUserRequests(rows pgx.Rows) ([]domain.UserRequest, error) {
	defer rows.Close()
	result := []domain.UserRequest{}
	for rows.Next() {
		var req domain.UserRequest
		if err := rows.Scan(
			&req.ID,
			&req.RequesterEmail,
			&req.Body,
			&req.TrackingToken,
			&req.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
