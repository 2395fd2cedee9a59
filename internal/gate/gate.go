// Package gate は所有権といいね状態に関する判定ロジックを提供する。
//
// 遺物レコードに対して「誰が何をできるか」を決める規則は複数のビューで
// 必要になるため、純粋関数としてこのパッケージに集約する。
// ネットワークも永続化も扱わない。
package gate

import (
	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// OwnedBy はemailが所有する遺物のみを返す。
// 元のスライスは変更せず、順序は入力の順序を保つ。
func OwnedBy(artifacts []*model.Artifact, email string) []*model.Artifact {
	var owned []*model.Artifact
	for _, a := range artifacts {
		if a.Email == email {
			owned = append(owned, a)
		}
	}
	return owned
}

// IsLikedBy はemailが遺物に既にいいねしているかを返す。
// likedByの再取得やemailの変更のたびに再計算すること。
// 古いスナップショットの流用は不具合になる。
func IsLikedBy(a *model.Artifact, email string) bool {
	if a == nil || email == "" {
		return false
	}
	for _, e := range a.LikedBy {
		if e == email {
			return true
		}
	}
	return false
}

// CanModify はemailが遺物を編集・削除できるかを返す。
// 判定は所有者フィールドとの等価比較のみ。非所有者には操作自体を提示しない。
func CanModify(a *model.Artifact, email string) bool {
	if a == nil || email == "" {
		return false
	}
	return a.Email == email
}

// CheckLike はいいね操作の事前検証を行う。
// 所有者自身によるいいねはリモート呼び出しを発行する前にここで拒否する。
func CheckLike(a *model.Artifact, email string) error {
	if a == nil {
		return model.NewArtifactNotFoundError("")
	}
	if email == "" {
		return model.NewUnauthorizedError()
	}
	if a.Email == email {
		return model.NewOwnLikeForbiddenError()
	}
	return nil
}
