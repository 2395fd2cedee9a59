package identity

import (
	"testing"
	"time"

	"github.com/mdtanvirislamrakib/historivault/internal/model"
)

// 購読者がイベントを受信できることを検証
func TestNotifier_PublishDeliversToSubscriber(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()
	defer sub.Unsubscribe()

	n.Publish(StateChange{
		SessionID: "sess-1",
		Identity:  &model.Identity{Email: "user@example.com"},
	})

	select {
	case change := <-sub.C():
		if change.SessionID != "sess-1" {
			t.Errorf("unexpected session id: %s", change.SessionID)
		}
		if change.Identity == nil || change.Identity.Email != "user@example.com" {
			t.Errorf("unexpected identity: %+v", change.Identity)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for state change")
	}
}

// 複数の購読者全員がイベントを受信することを検証
func TestNotifier_PublishDeliversToAllSubscribers(t *testing.T) {
	n := NewNotifier()
	sub1 := n.Subscribe()
	defer sub1.Unsubscribe()
	sub2 := n.Subscribe()
	defer sub2.Unsubscribe()

	n.Publish(StateChange{SessionID: "sess-1"})

	for i, sub := range []*Subscription{sub1, sub2} {
		select {
		case <-sub.C():
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive event", i)
		}
	}
}

// 解除後はイベントが届かずチャネルがクローズされることを検証
func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()

	sub.Unsubscribe()

	if _, ok := <-sub.C(); ok {
		t.Error("channel should be closed after unsubscribe")
	}

	// クローズ済みチャネルへの配信でパニックしないこと
	n.Publish(StateChange{SessionID: "sess-1"})
}

// Unsubscribeを複数回呼んでも安全なことを検証
func TestNotifier_UnsubscribeIsIdempotent(t *testing.T) {
	n := NewNotifier()
	sub := n.Subscribe()

	sub.Unsubscribe()
	sub.Unsubscribe()
}
