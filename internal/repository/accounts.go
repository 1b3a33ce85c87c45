package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/giftsniper/internal/domain"
)

// Repository stores account records as opaque JSONB rows plus a revision
// counter, and the allow list of principals the worker iterates over.
type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetAccount(ctx context.Context, userID int64) (*domain.Account, error) {
	var (
		record   []byte
		revision int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT record, revision FROM accounts WHERE user_id = $1`, userID,
	).Scan(&record, &revision)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account %d: %w", userID, err)
	}

	acc := &domain.Account{}
	if err := json.Unmarshal(record, acc); err != nil {
		return nil, fmt.Errorf("decode account %d: %w", userID, err)
	}
	acc.UserID = userID
	acc.Revision = revision
	return acc, nil
}

// InsertAccount creates the row if it does not exist yet; an existing row is
// left untouched.
func (r *Repository) InsertAccount(ctx context.Context, acc *domain.Account) error {
	record, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode account %d: %w", acc.UserID, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO accounts (user_id, record) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO NOTHING`, acc.UserID, record)
	if err != nil {
		return fmt.Errorf("insert account %d: %w", acc.UserID, err)
	}
	return nil
}

// SaveAccount writes the record back, guarded by the revision the caller
// loaded. A concurrent writer bumps the revision first and the stale save
// fails with ErrConcurrentUpdate instead of silently losing an update.
func (r *Repository) SaveAccount(ctx context.Context, acc *domain.Account) error {
	record, err := json.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode account %d: %w", acc.UserID, err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE accounts
		 SET record = $2, revision = revision + 1, updated_at = now()
		 WHERE user_id = $1 AND revision = $3`,
		acc.UserID, record, acc.Revision)
	if err != nil {
		return fmt.Errorf("save account %d: %w", acc.UserID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConcurrentUpdate
	}
	acc.Revision++
	return nil
}

func (r *Repository) ListAuthorized(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM allowed_users ORDER BY granted_at`)
	if err != nil {
		return nil, fmt.Errorf("list allowed users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan allowed user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) IsAllowed(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM allowed_users WHERE user_id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check allowed user %d: %w", userID, err)
	}
	return exists, nil
}

func (r *Repository) GrantAccess(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO allowed_users (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID)
	if err != nil {
		return fmt.Errorf("grant access %d: %w", userID, err)
	}
	return nil
}

func (r *Repository) RevokeAccess(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM allowed_users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("revoke access %d: %w", userID, err)
	}
	return nil
}
