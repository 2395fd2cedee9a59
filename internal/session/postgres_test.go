package session

import "testing"

// PostgresRepoはRepositoryインターフェースを満たすことを検証
func TestPostgresRepo_ImplementsInterface(t *testing.T) {
	var _ Repository = (*PostgresRepo)(nil)
}

// NewPostgresRepoが正しく初期化されることを検証
func TestNewPostgresRepo_Initializes(t *testing.T) {
	repo := NewPostgresRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
