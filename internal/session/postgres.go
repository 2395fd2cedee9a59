package session

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// PostgresRepo はPostgreSQLを使用したセッションリポジトリ。
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo はPostgresRepoを生成する。
func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

// Create はセッションを作成する。
func (r *PostgresRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, email, display_name, photo_url, token, expires_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		session.ID, session.Email, session.DisplayName, session.PhotoURL,
		session.Token, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *PostgresRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	var photoURL sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, photo_url, token, expires_at, created_at
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		id,
	).Scan(
		&session.ID, &session.Email, &session.DisplayName,
		&photoURL, &session.Token, &session.ExpiresAt, &session.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if photoURL.Valid {
		session.PhotoURL = &photoURL.String
	}

	return session, nil
}

// UpdateToken はセッションのベアラートークンを更新する。
func (r *PostgresRepo) UpdateToken(ctx context.Context, id, token string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET token = $2 WHERE id = $1`,
		id, token,
	)
	if err != nil {
		return fmt.Errorf("failed to update session token: %w", err)
	}
	return nil
}

// UpdateProfile はセッションに保持するアイデンティティのスナップショットを更新する。
func (r *PostgresRepo) UpdateProfile(ctx context.Context, id, displayName string, photoURL *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET display_name = $2, photo_url = $3 WHERE id = $1`,
		id, displayName, photoURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update session profile: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *PostgresRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteOtherByEmail は指定アイデンティティのセッションのうち
// exceptID以外をすべて削除し、削除件数を返す。
func (r *PostgresRepo) DeleteOtherByEmail(ctx context.Context, email, exceptID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE email = $1 AND id <> $2`,
		email, exceptID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sessions by email: %w", err)
	}
	return result.RowsAffected()
}

// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
func (r *PostgresRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}

// compile-time interface check
var _ Repository = (*PostgresRepo)(nil)
