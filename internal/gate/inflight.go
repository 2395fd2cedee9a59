package gate

import "sync"

// ToggleRegistry は送信中のいいねトグル要求をセッション×遺物単位で追跡する。
// サーバー応答が返るまで同じ組に対する後続の要求は拒否される。
// 複数のHTTPハンドラーゴルーチンから同時に呼ばれる。
type ToggleRegistry struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewToggleRegistry はToggleRegistryを生成する。
func NewToggleRegistry() *ToggleRegistry {
	return &ToggleRegistry{inflight: make(map[string]struct{})}
}

func toggleKey(sessionID, artifactID string) string {
	return sessionID + "\x00" + artifactID
}

// Begin はトグル要求の送信開始を記録する。
// 同じセッション・同じ遺物の要求が既に送信中の場合はfalseを返す。
func (r *ToggleRegistry) Begin(sessionID, artifactID string) bool {
	key := toggleKey(sessionID, artifactID)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inflight[key]; ok {
		return false
	}
	r.inflight[key] = struct{}{}
	return true
}

// End はトグル要求の完了を記録する。成功・失敗のどちらでも必ず呼ぶこと。
func (r *ToggleRegistry) End(sessionID, artifactID string) {
	key := toggleKey(sessionID, artifactID)
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, key)
}
