package pool

import "testing"

// The first four tests mirror the distilled source's queue.rs unit
// tests (new_conn, store, get, increment_and_decrement) one-for-one,
// adapted to Go's testing package; the rest cover the Go queue's
// decrement guard, reserve, idleSince handling and LIFO order.

func TestQueuePushNew(t *testing.T) {
	q := newQueue[int]()
	if q.idleLen() != 0 || q.total() != 0 {
		t.Fatalf("new queue should start empty, got idle=%d total=%d", q.idleLen(), q.total())
	}
	q.pushNew(newLive(1))
	if q.idleLen() != 1 {
		t.Errorf("idle = %d, want 1", q.idleLen())
	}
	if q.total() != 1 {
		t.Errorf("total = %d, want 1", q.total())
	}
}

func TestQueueStore(t *testing.T) {
	q := newQueue[int]()
	q.store(newLive(1))
	if q.idleLen() != 1 {
		t.Errorf("idle = %d, want 1", q.idleLen())
	}
	if q.total() != 0 {
		t.Errorf("store must not touch total, got %d", q.total())
	}
}

func TestQueueTake(t *testing.T) {
	q := newQueue[int]()
	if _, ok := q.take(); ok {
		t.Fatal("take on empty queue should report false")
	}
	q.pushNew(newLive(7))
	rec, ok := q.take()
	if !ok {
		t.Fatal("take should succeed after pushNew")
	}
	if rec.session != 7 {
		t.Errorf("session = %d, want 7", rec.session)
	}
	if q.idleLen() != 0 {
		t.Errorf("idle = %d, want 0 after take", q.idleLen())
	}
	if q.total() != 1 {
		t.Errorf("total = %d, want 1 (take doesn't touch total)", q.total())
	}
}

func TestQueueIncrementDecrement(t *testing.T) {
	q := newQueue[struct{}]()
	q.increment()
	if q.total() != 1 || q.idleLen() != 0 {
		t.Fatalf("after increment: total=%d idle=%d, want 1,0", q.total(), q.idleLen())
	}
	q.decrement()
	if q.total() != 0 || q.idleLen() != 0 {
		t.Fatalf("after decrement: total=%d idle=%d, want 0,0", q.total(), q.idleLen())
	}
}

func TestQueueDecrementBelowZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("decrement from zero should panic")
		}
	}()
	q := newQueue[struct{}]()
	q.decrement()
}

func TestQueueReserveRespectsMax(t *testing.T) {
	q := newQueue[struct{}]()
	if !q.reserve(2) {
		t.Fatal("first reserve under max should succeed")
	}
	if !q.reserve(2) {
		t.Fatal("second reserve under max should succeed")
	}
	if q.reserve(2) {
		t.Fatal("reserve at max should fail")
	}
	if q.total() != 2 {
		t.Errorf("total = %d, want 2", q.total())
	}
}

func TestQueueTakeExposesIdleSince(t *testing.T) {
	q := newQueue[int]()
	q.pushNew(newLive(1))
	rec, ok := q.take()
	if !ok {
		t.Fatal("take should succeed")
	}
	if rec.idleSince.IsZero() {
		t.Fatal("take should return the idle record's idleSince, not a zero value")
	}
}

func TestQueueRequeuePreservesIdleSince(t *testing.T) {
	q := newQueue[int]()
	q.pushNew(newLive(1))
	rec, _ := q.take()

	stamp := rec.idleSince
	q.requeue(rec)

	rec2, ok := q.take()
	if !ok {
		t.Fatal("take after requeue should succeed")
	}
	if !rec2.idleSince.Equal(stamp) {
		t.Errorf("requeue must not reset idleSince: got %v, want %v", rec2.idleSince, stamp)
	}
	if q.total() != 1 {
		t.Errorf("total = %d, want 1 (requeue doesn't touch total)", q.total())
	}
}

func TestQueueTakeIsLIFO(t *testing.T) {
	q := newQueue[int]()
	q.pushNew(newLive(1))
	q.pushNew(newLive(2))
	q.pushNew(newLive(3))

	first, _ := q.take()
	second, _ := q.take()
	third, _ := q.take()

	if first.session != 3 || second.session != 2 || third.session != 1 {
		t.Errorf("got %d,%d,%d, want 3,2,1 (most-recently-idle first)",
			first.session, second.session, third.session)
	}
}
