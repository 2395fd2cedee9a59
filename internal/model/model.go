// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は外部IDプロバイダーで認証されたエンドユーザーを表す。
// 本アプリはキャッシュされたスナップショットを保持するのみで、
// 真実のソースはプロバイダー側にある。
type Identity struct {
	Email       string
	DisplayName string
	PhotoURL    *string
}

// Artifact は歴史的遺物のカタログレコードを表す。
// Emailは作成時に設定される所有者であり、以後不変。
// LikedByには所有者自身のメールアドレスを含めてはならない。
type Artifact struct {
	ID                string
	Name              string
	Type              ArtifactType
	Description       string
	HistoricalContext string
	ImageURL          string
	CreatedAt         string // 自由記述の年代（例: "100 BC"）
	DiscoveredAt      string // 自由記述の発見時期
	DiscoveredBy      string
	PresentLocation   string
	Email             string   // 所有者のメールアドレス
	LikedBy           []string // いいねした識別子（メール）の集合。重複なし、順序不問
}

// LikeCount はいいね数を返す。
func (a *Artifact) LikeCount() int {
	return len(a.LikedBy)
}

// ArtifactType は遺物の種別を表す。
type ArtifactType string

// 遺物種別の固定セット。
const (
	TypeTools          ArtifactType = "Tools"
	TypeWeapons        ArtifactType = "Weapons"
	TypeDocuments      ArtifactType = "Documents"
	TypeWritings       ArtifactType = "Writings"
	TypePottery        ArtifactType = "Pottery"
	TypeStones         ArtifactType = "Stones"
	TypeJewelry        ArtifactType = "Jewelry"
	TypeCoins          ArtifactType = "Coins"
	TypeSculptures     ArtifactType = "Sculptures"
	TypeTextiles       ArtifactType = "Textiles"
	TypeReligiousItems ArtifactType = "Religious Items"
	TypeHouseholdItems ArtifactType = "Household Items"
	TypeArt            ArtifactType = "Art"
	TypeOther          ArtifactType = "Other"
)

// ArtifactTypes は遺物種別の固定セットを列挙順に返す。
func ArtifactTypes() []ArtifactType {
	return []ArtifactType{
		TypeTools, TypeWeapons, TypeDocuments, TypeWritings,
		TypePottery, TypeStones, TypeJewelry, TypeCoins,
		TypeSculptures, TypeTextiles, TypeReligiousItems,
		TypeHouseholdItems, TypeArt, TypeOther,
	}
}

// IsValidArtifactType は種別が固定セットに含まれるかを判定する。
func IsValidArtifactType(t string) bool {
	for _, v := range ArtifactTypes() {
		if string(v) == t {
			return true
		}
	}
	return false
}

// Session はサインイン中のブラウザセッションを表す。
// 1セッション = 1サインイン済みアイデンティティ。
// Tokenはリモートアーティファクト APIが発行したベアラートークンで、
// サインイン直後のトークン交換で設定される。交換失敗時は空のままとなる。
type Session struct {
	ID          string
	Email       string
	DisplayName string
	PhotoURL    *string
	Token       string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
