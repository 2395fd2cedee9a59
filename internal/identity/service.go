package identity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
	"github.com/mdtanvirislamrakib/historivault/internal/session"
)

// TokenIssuer はアイデンティティのメールをリモートAPIの
// ベアラートークンに交換するインターフェース。
type TokenIssuer interface {
	IssueToken(ctx context.Context, email string) (string, error)
}

// Service はサインイン/サインアウトとセッションのライフサイクルを統括する。
//
// 認証状態の変化はNotifier経由で配信され、Serviceは自身の購読で
// トークン交換の副作用を処理する。トークン交換の失敗はログに記録して
// 握りつぶし、サインイン自体は成立させる。
type Service struct {
	provider  ProviderClient
	federated FederatedProvider
	sessions  session.Repository
	issuer    TokenIssuer
	notifier  *Notifier
	logger    *slog.Logger
	maxAge    time.Duration

	sub *Subscription
	wg  sync.WaitGroup
}

// NewService はServiceを生成する。
func NewService(
	provider ProviderClient,
	federated FederatedProvider,
	sessions session.Repository,
	issuer TokenIssuer,
	notifier *Notifier,
	logger *slog.Logger,
	maxAge time.Duration,
) *Service {
	return &Service{
		provider:  provider,
		federated: federated,
		sessions:  sessions,
		issuer:    issuer,
		notifier:  notifier,
		logger:    logger,
		maxAge:    maxAge,
	}
}

// Start は認証状態変化の購読を開始する。Closeで解除するまで
// バックグラウンドでトークン交換を処理する。
func (s *Service) Start(ctx context.Context) {
	s.sub = s.notifier.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-s.sub.C():
				if !ok {
					return
				}
				s.handleStateChange(ctx, change)
			}
		}
	}()
}

// Close は購読を解除しバックグラウンド処理の完了を待つ。
func (s *Service) Close() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.wg.Wait()
}

// handleStateChange は認証状態の変化を1件処理する。
// サインインの場合はメールをベアラートークンに交換し、セッション行に保存する。
// 交換に失敗してもサインインは取り消さない。
func (s *Service) handleStateChange(ctx context.Context, change StateChange) {
	if change.Identity == nil {
		// サインアウト。トークンはセッション行ごと削除済み。
		return
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	token, err := s.issuer.IssueToken(exchangeCtx, change.Identity.Email)
	if err != nil {
		s.logger.Warn("token exchange failed",
			slog.String("email", change.Identity.Email),
			slog.String("error", err.Error()))
		return
	}

	// セッションが既にサインアウトで削除されていれば更新は空振りする
	if err := s.sessions.UpdateToken(exchangeCtx, change.SessionID, token); err != nil {
		s.logger.Warn("failed to store bearer token",
			slog.String("session_id", change.SessionID),
			slog.String("error", err.Error()))
	}
}

// SignUp は新規アカウントを作成し、プロフィールを設定してセッションを開始する。
func (s *Service) SignUp(ctx context.Context, email, password, displayName string, photoURL *string) (*model.Session, error) {
	ident, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}

	// アカウント作成直後に表示名と写真を設定する
	updated, err := s.provider.UpdateProfile(ctx, ident.Email, displayName, photoURL)
	if err != nil {
		s.logger.Warn("failed to set profile after sign up",
			slog.String("email", ident.Email),
			slog.String("error", err.Error()))
		ident.DisplayName = displayName
		ident.PhotoURL = photoURL
	} else {
		ident = updated
	}

	return s.createSession(ctx, ident)
}

// SignIn はメールとパスワードでサインインし、セッションを開始する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	ident, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, ident)
}

// FederatedLoginURL はフェデレーテッドサインインの認可URLを返す。
func (s *Service) FederatedLoginURL(state string) string {
	return s.federated.GetLoginURL(state)
}

// FederatedSignIn は認可コードでサインインし、セッションを開始する。
func (s *Service) FederatedSignIn(ctx context.Context, code string) (*model.Session, error) {
	ident, err := s.federated.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.createSession(ctx, ident)
}

// SignOut はセッションを削除する。トークンはセッション行とともに
// 必ず破棄される。存在しないセッションIDでもエラーにならない。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.DeleteByID(ctx, sessionID); err != nil {
		return err
	}
	s.notifier.Publish(StateChange{SessionID: sessionID, Identity: nil})
	return nil
}

// UpdateProfile はプロバイダー上のプロフィールを更新し、
// セッションのスナップショットも同期する。
// 他ブラウザのセッションは古いスナップショットを持つため無効化する。
// 再サインインで最新のプロフィールが反映される。
func (s *Service) UpdateProfile(ctx context.Context, sess *model.Session, displayName string, photoURL *string) error {
	ident, err := s.provider.UpdateProfile(ctx, sess.Email, displayName, photoURL)
	if err != nil {
		return err
	}
	if err := s.sessions.UpdateProfile(ctx, sess.ID, ident.DisplayName, ident.PhotoURL); err != nil {
		return err
	}

	purged, err := s.sessions.DeleteOtherByEmail(ctx, sess.Email, sess.ID)
	if err != nil {
		return err
	}
	if purged > 0 {
		s.logger.Info("invalidated stale sessions after profile update",
			slog.String("email", sess.Email),
			slog.Int64("count", purged))
	}
	return nil
}

// createSession はアイデンティティの新しいセッション行を作成し、
// 認証状態の変化を配信する。
func (s *Service) createSession(ctx context.Context, ident *model.Identity) (*model.Session, error) {
	now := time.Now()
	sess := &model.Session{
		ID:          uuid.NewString(),
		Email:       ident.Email,
		DisplayName: ident.DisplayName,
		PhotoURL:    ident.PhotoURL,
		ExpiresAt:   now.Add(s.maxAge),
		CreatedAt:   now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}

	s.notifier.Publish(StateChange{SessionID: sess.ID, Identity: ident})
	return sess, nil
}
