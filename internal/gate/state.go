package gate

// LikeStatus は遺物詳細ビューにおけるいいね状態を表す。
type LikeStatus string

const (
	// LikeStatusUnknown はアイデンティティが未解決の初期状態。
	LikeStatusUnknown LikeStatus = "unknown"
	// LikeStatusNotLiked は未いいね状態。
	LikeStatusNotLiked LikeStatus = "not_liked"
	// LikeStatusLiked はいいね済み状態。
	LikeStatusLiked LikeStatus = "liked"
	// LikeStatusToggling はトグル要求が送信中の遷移状態。
	LikeStatusToggling LikeStatus = "toggling"
)

// LikeState は1つの遺物詳細ビューのいいね状態機械。
// 状態遷移: Unknown → NotLiked/Liked → Toggling → サーバー応答に従った状態。
// 要求失敗時は送信前の状態に戻る。終端状態はない（ビューの破棄で終わる）。
type LikeState struct {
	status LikeStatus
	count  int

	// prev はToggling中に失敗した場合の復帰先。
	prev LikeStatus
}

// NewLikeState は初期状態（Unknown）の状態機械を生成する。
func NewLikeState() *LikeState {
	return &LikeState{status: LikeStatusUnknown}
}

// Status は現在の状態を返す。
func (s *LikeState) Status() LikeStatus {
	return s.status
}

// Count は現在保持しているいいね数を返す。
func (s *LikeState) Count() int {
	return s.count
}

// Resolve はアイデンティティと遺物の両方が揃った時点の状態を確定する。
// likedByまたは閲覧者のどちらが変わっても呼び直すこと。
func (s *LikeState) Resolve(liked bool, count int) {
	if liked {
		s.status = LikeStatusLiked
	} else {
		s.status = LikeStatusNotLiked
	}
	s.count = count
}

// BeginToggle はトグル要求の送信を記録しToggling状態へ遷移する。
// 未解決（Unknown）または既に送信中の場合はfalseを返し、何も変更しない。
// ローカル状態の先行反転は行わない。サーバー応答が唯一の裁定者となる。
func (s *LikeState) BeginToggle() bool {
	if s.status != LikeStatusLiked && s.status != LikeStatusNotLiked {
		return false
	}
	s.prev = s.status
	s.status = LikeStatusToggling
	return true
}

// ApplyToggle はサーバーが返したlikedの真偽値をそのまま採用する。
// カウントはサーバー応答に応じて+1または-1だけ調整する。
// トグルの対称性は仮定しない。2回呼べば元に戻るとは限らない。
func (s *LikeState) ApplyToggle(liked bool) {
	if liked {
		s.status = LikeStatusLiked
		s.count++
	} else {
		s.status = LikeStatusNotLiked
		s.count--
		if s.count < 0 {
			s.count = 0
		}
	}
}

// FailToggle は要求失敗時に送信前の状態へ戻す。カウントは変更しない。
func (s *LikeState) FailToggle() {
	if s.status == LikeStatusToggling {
		s.status = s.prev
	}
}
