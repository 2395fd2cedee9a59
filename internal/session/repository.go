// Package session はサインイン済みブラウザセッションの永続化を提供する。
package session

import (
	"context"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// Repository はセッションデータの永続化インターフェース。
type Repository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error

	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)

	// UpdateToken はセッションのベアラートークンを更新する。
	// トークン交換の成否に関わらずセッション自体は有効なままとなる。
	UpdateToken(ctx context.Context, id, token string) error

	// UpdateProfile はセッションに保持するアイデンティティの
	// スナップショット（表示名・写真URL）を更新する。
	UpdateProfile(ctx context.Context, id, displayName string, photoURL *string) error

	// DeleteByID は指定IDのセッションを削除する。
	// 存在しないIDに対してもエラーにならない（冪等）。
	DeleteByID(ctx context.Context, id string) error

	// DeleteOtherByEmail は指定アイデンティティのセッションのうち
	// exceptID以外をすべて削除し、削除件数を返す。
	// プロフィール更新時に古いスナップショットを持つ他ブラウザの
	// セッションを無効化するために使う。
	DeleteOtherByEmail(ctx context.Context, email, exceptID string) (int64, error)

	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
