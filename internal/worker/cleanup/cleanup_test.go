package cleanup

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

// mockSessionPurger はSessionPurgerのモック
type mockSessionPurger struct {
	deleteExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *mockSessionPurger) DeleteExpired(ctx context.Context) (int64, error) {
	return m.deleteExpiredFunc(ctx)
}

// mockPurgeRecorder はPurgeRecorderのモック
type mockPurgeRecorder struct {
	recorded []int64
}

func (m *mockPurgeRecorder) RecordSessionsPurged(count int64) {
	m.recorded = append(m.recorded, count)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// 期限切れセッションが削除され、件数がメトリクスに記録されることを検証
func TestCleanupJob_Run(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 5, nil
		},
	}
	recorder := &mockPurgeRecorder{}

	job := NewCleanupJob(purger, recorder, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorder.recorded) != 1 || recorder.recorded[0] != 5 {
		t.Errorf("purge count should be recorded, got %v", recorder.recorded)
	}
}

// 削除対象なしでもエラーにならないことを検証（冪等性）
func TestCleanupJob_Run_NothingToDelete(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 0, nil
		},
	}

	job := NewCleanupJob(purger, nil, discardLogger())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("cleanup with no expired sessions should succeed: %v", err)
	}
}

// 削除失敗時にエラーが返ることを検証
func TestCleanupJob_Run_Error(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 0, errors.New("database unavailable")
		},
	}

	job := NewCleanupJob(purger, nil, discardLogger())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// コンテキストのキャンセルでループが終了することを検証
func TestCleanupJob_RunLoop_StopsOnCancel(t *testing.T) {
	purger := &mockSessionPurger{
		deleteExpiredFunc: func(ctx context.Context) (int64, error) {
			return 0, nil
		},
	}

	job := NewCleanupJob(purger, nil, discardLogger())
	job.Interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.RunLoop(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after context cancellation")
	}
}
