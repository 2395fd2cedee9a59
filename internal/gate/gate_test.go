package gate

import (
	"errors"
	"testing"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

func artifactOwnedBy(email string, likedBy ...string) *model.Artifact {
	return &model.Artifact{
		ID:      "artifact-1",
		Name:    "Rosetta Stone",
		Email:   email,
		LikedBy: likedBy,
	}
}

// OwnedByは所有者のメールアドレスが一致する遺物のみを返すことを検証
func TestOwnedBy_FiltersByOwnerEmail(t *testing.T) {
	all := []*model.Artifact{
		{ID: "a1", Email: "u1@x.com"},
		{ID: "a2", Email: "u2@x.com"},
		{ID: "a3", Email: "u1@x.com"},
		{ID: "a4", Email: "u3@x.com"},
	}

	owned := OwnedBy(all, "u1@x.com")

	if len(owned) != 2 {
		t.Fatalf("owned length = %d, want 2", len(owned))
	}
	// 入力の順序を保つ（安定フィルタ）
	if owned[0].ID != "a1" || owned[1].ID != "a3" {
		t.Errorf("owned order = [%s, %s], want [a1, a3]", owned[0].ID, owned[1].ID)
	}
}

// OwnedByは元のスライスを変更しないことを検証
func TestOwnedBy_DoesNotMutateSource(t *testing.T) {
	all := []*model.Artifact{
		{ID: "a1", Email: "u1@x.com"},
		{ID: "a2", Email: "u2@x.com"},
	}

	_ = OwnedBy(all, "u2@x.com")

	if len(all) != 2 || all[0].ID != "a1" || all[1].ID != "a2" {
		t.Error("source slice was mutated")
	}
}

// 一致する遺物がない場合は空の結果を返すことを検証
func TestOwnedBy_NoMatches(t *testing.T) {
	all := []*model.Artifact{
		{ID: "a1", Email: "u1@x.com"},
	}

	owned := OwnedBy(all, "nobody@x.com")
	if len(owned) != 0 {
		t.Errorf("owned length = %d, want 0", len(owned))
	}
}

// IsLikedByはlikedByのメンバーシップを正しく判定することを検証
func TestIsLikedBy(t *testing.T) {
	tests := []struct {
		name     string
		artifact *model.Artifact
		email    string
		want     bool
	}{
		{"いいね済み", artifactOwnedBy("owner@x.com", "u1@x.com", "u2@x.com"), "u1@x.com", true},
		{"未いいね", artifactOwnedBy("owner@x.com", "u1@x.com"), "u3@x.com", false},
		{"likedByが空", artifactOwnedBy("owner@x.com"), "u1@x.com", false},
		{"空のemail", artifactOwnedBy("owner@x.com", "u1@x.com"), "", false},
		{"nil遺物", nil, "u1@x.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsLikedBy(tt.artifact, tt.email); got != tt.want {
				t.Errorf("IsLikedBy() = %v, want %v", got, tt.want)
			}
		})
	}
}

// CanModifyは所有者のみにtrueを返すことを検証
func TestCanModify(t *testing.T) {
	a := artifactOwnedBy("owner@x.com")

	if !CanModify(a, "owner@x.com") {
		t.Error("owner should be allowed to modify")
	}
	if CanModify(a, "viewer@x.com") {
		t.Error("non-owner must not be allowed to modify")
	}
	if CanModify(a, "") {
		t.Error("anonymous viewer must not be allowed to modify")
	}
	if CanModify(nil, "owner@x.com") {
		t.Error("nil artifact must not be modifiable")
	}
}

// CheckLikeは所有者自身のいいねを拒否することを検証
func TestCheckLike_OwnerForbidden(t *testing.T) {
	a := artifactOwnedBy("u2@x.com")

	err := CheckLike(a, "u2@x.com")
	if err == nil {
		t.Fatal("expected error for self-like")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeOwnLikeForbidden {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeOwnLikeForbidden)
	}

	// likedByは変更されない
	if len(a.LikedBy) != 0 {
		t.Error("likedBy must be unchanged after a rejected self-like")
	}
}

// CheckLikeは非所有者のいいねを許可することを検証
func TestCheckLike_NonOwnerAllowed(t *testing.T) {
	a := artifactOwnedBy("u2@x.com")

	if err := CheckLike(a, "u1@x.com"); err != nil {
		t.Errorf("CheckLike() = %v, want nil", err)
	}
}

// CheckLikeは未認証の閲覧者を拒否することを検証
func TestCheckLike_AnonymousRejected(t *testing.T) {
	a := artifactOwnedBy("u2@x.com")

	err := CheckLike(a, "")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUnauthorized {
		t.Errorf("expected UNAUTHORIZED error, got %v", err)
	}
}
