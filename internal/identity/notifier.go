package identity

import (
	"sync"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// StateChange は認証状態の変化を表すイベント。
// Identityがnilの場合はサインアウトを意味する。
type StateChange struct {
	SessionID string
	Identity  *model.Identity
}

// Subscription は認証状態変化の購読。Unsubscribeで解除するまで
// チャネル経由でイベントを受け取る。
type Subscription struct {
	ch    chan StateChange
	once  sync.Once
	unsub func()
}

// C はイベントを受信するチャネルを返す。
func (s *Subscription) C() <-chan StateChange {
	return s.ch
}

// Unsubscribe は購読を解除しチャネルをクローズする。複数回呼んでも安全。
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.unsub)
}

// Notifier は認証状態の変化を購読者へ配信する。
type Notifier struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewNotifier はNotifierを生成する。
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscribe は新しい購読を開始する。
func (n *Notifier) Subscribe() *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub := &Subscription{
		ch: make(chan StateChange, 16),
	}
	sub.unsub = func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, sub)
		close(sub.ch)
	}
	n.subs[sub] = struct{}{}
	return sub
}

// Publish は全購読者へイベントを配信する。
// 購読者のバッファが満杯の場合そのイベントは破棄される。
func (n *Notifier) Publish(change StateChange) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for sub := range n.subs {
		select {
		case sub.ch <- change:
		default:
		}
	}
}
