package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEngineEmitsInTriggerOrder(t *testing.T) {
	engine := NewEngine(8)
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := engine.ScheduleAt(ctx, "later", Content{Title: "later"}, now.Add(80*time.Millisecond)); err != nil {
		t.Fatalf("schedule later: %v", err)
	}
	if err := engine.ScheduleAt(ctx, "sooner", Content{Title: "sooner"}, now.Add(20*time.Millisecond)); err != nil {
		t.Fatalf("schedule sooner: %v", err)
	}

	first := waitNotification(t, engine.C(), time.Second)
	second := waitNotification(t, engine.C(), time.Second)
	if first.ID != "sooner" || second.ID != "later" {
		t.Fatalf("unexpected order: first=%s second=%s", first.ID, second.ID)
	}

	delivered := engine.Delivered()
	if len(delivered) != 2 {
		t.Fatalf("expected 2 delivered, got %d", len(delivered))
	}
	if err := engine.Dismiss(ctx, "sooner"); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if delivered := engine.Delivered(); len(delivered) != 1 || delivered[0].ID != "later" {
		t.Fatalf("unexpected delivered after dismiss: %+v", delivered)
	}
}

func TestScheduleReplacesSameIdentifier(t *testing.T) {
	engine := NewEngine(1)
	ctx := context.Background()
	base := time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC)

	if err := engine.ScheduleAt(ctx, "overdue.2030-03-04", Content{Title: "old"}, base); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := engine.ScheduleAt(ctx, "overdue.2030-03-04", Content{Title: "new"}, base.Add(time.Hour)); err != nil {
		t.Fatalf("reschedule: %v", err)
	}

	pending := engine.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected single pending notification, got %d", len(pending))
	}
	if pending[0].Content.Title != "new" || !pending[0].TriggerAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected replacement: %+v", pending[0])
	}
}

func TestListScheduledAndCancel(t *testing.T) {
	engine := NewEngine(1)
	ctx := context.Background()
	base := time.Date(2030, time.March, 4, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		if err := engine.ScheduleAt(ctx, id, Content{}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("schedule %s: %v", id, err)
		}
	}

	ids, err := engine.ListScheduled(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("unexpected order: %v", ids)
	}

	if err := engine.Cancel(ctx, "a"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := engine.Cancel(ctx, "missing"); err != nil {
		t.Fatalf("cancel unknown id should be a no-op: %v", err)
	}
	ids, _ = engine.ListScheduled(ctx)
	if len(ids) != 2 || ids[0] != "c" || ids[1] != "b" {
		t.Fatalf("unexpected ids after cancel: %v", ids)
	}
}

func TestEngineNonBlockingDropsWhenConsumerIsSlow(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	defer engine.Stop()

	ctx := context.Background()
	at := time.Now().UTC().Add(20 * time.Millisecond)
	for i := 0; i < 25; i++ {
		id := "evt-" + string(rune('a'+i))
		if err := engine.ScheduleAt(ctx, id, Content{}, at); err != nil {
			t.Fatalf("schedule event: %v", err)
		}
	}

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped notifications > 0, got %d", engine.Dropped())
	}
}

func TestScheduleValidatesInput(t *testing.T) {
	engine := NewEngine(1)
	ctx := context.Background()
	if err := engine.ScheduleAt(ctx, "bad", Content{}, time.Time{}); !errors.Is(err, ErrInvalidTriggerTime) {
		t.Fatalf("expected ErrInvalidTriggerTime, got %v", err)
	}
	if err := engine.ScheduleAt(ctx, " ", Content{}, time.Now()); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestScheduleAfterStopFails(t *testing.T) {
	engine := NewEngine(1)
	engine.Start()
	engine.Stop()
	engine.Stop()

	err := engine.ScheduleAt(context.Background(), "late", Content{}, time.Now().Add(time.Minute))
	if !errors.Is(err, ErrEngineStopped) {
		t.Fatalf("expected ErrEngineStopped, got %v", err)
	}
}

func TestScheduleHonorsCanceledContext(t *testing.T) {
	engine := NewEngine(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.ScheduleAt(ctx, "x", Content{}, time.Now()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func waitNotification(t *testing.T, ch <-chan Notification, timeout time.Duration) Notification {
	t.Helper()
	select {
	case n := <-ch:
		return n
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for notification")
		return Notification{}
	}
}
