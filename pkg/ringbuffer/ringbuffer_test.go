package ringbuffer

import "testing"

func TestEnqueueDequeueFIFO(t *testing.T) {
	b := New[int](4)

	for _, v := range []int{10, 20, 30} {
		if !b.Enqueue(v) {
			t.Fatalf("Enqueue(%d) failed unexpectedly", v)
		}
	}

	for _, want := range []int{10, 20, 30} {
		got, ok := b.Dequeue()
		if !ok {
			t.Fatalf("Dequeue failed unexpectedly")
		}
		if got != want {
			t.Errorf("Dequeue = %d, want %d", got, want)
		}
	}

	if !b.IsEmpty() {
		t.Error("buffer should be empty after draining")
	}
}

func TestIsFullNeverExceedsCapacityMinusOne(t *testing.T) {
	b := New[int](4)

	for i := 0; i < 3; i++ {
		if !b.Enqueue(i) {
			t.Fatalf("Enqueue(%d) should have succeeded", i)
		}
	}
	if !b.IsFull() {
		t.Error("buffer should report full with cap-1 items enqueued")
	}
	if b.Enqueue(99) {
		t.Error("Enqueue should fail once full")
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
}

func TestIndexedAccess(t *testing.T) {
	b := New[string](8)

	b.Set(5, "hello")
	got, occupied := b.At(5)
	if !occupied || got != "hello" {
		t.Errorf("At(5) = (%q, %v), want (hello, true)", got, occupied)
	}

	b.Clear(5)
	got, occupied = b.At(5)
	if occupied {
		t.Errorf("At(5) after Clear should be unoccupied, got (%q, %v)", got, occupied)
	}
}

func TestForwardDistanceWraps(t *testing.T) {
	b := New[int](10)
	if d := b.ForwardDistance(8, 1); d != 3 {
		t.Errorf("ForwardDistance(8, 1) = %d, want 3", d)
	}
	if d := b.ForwardDistance(2, 2); d != 0 {
		t.Errorf("ForwardDistance(2, 2) = %d, want 0", d)
	}
}
