package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ceivoice/ticket-service/internal/persistence"
)

// ErrNotFound is returned by every repository when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Transactor runs fn as one atomic unit of work. Repository calls made with
// the ctx passed to fn join that unit.
type Transactor interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Set bundles the repositories a service layer needs.
type Set struct {
	Tx       Transactor
	Users    UserRepository
	Staff    StaffRepository
	Requests UserRequestRepository
	Drafts   DraftTicketRepository
	Tickets  TicketRepository
	Comments CommentRepository
	History  TicketHistoryRepository
}

// NewPostgresSet wires every Postgres repository over pool.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Tx:       persistence.NewTxManager(pool),
		Users:    NewUserRepository(pool),
		Staff:    NewStaffRepository(pool),
		Requests: NewUserRequestRepository(pool),
		Drafts:   NewDraftTicketRepository(pool),
		Tickets:  NewTicketRepository(pool),
		Comments: NewCommentRepository(pool),
		History:  NewTicketHistoryRepository(pool),
	}
}

type pgRepo struct {
	pool *pgxpool.Pool
}

func (r pgRepo) db(ctx context.Context) persistence.Querier {
	return persistence.QuerierFromContext(ctx, r.pool)
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	defer rows.Close()
	result := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, rows.Err()
}
