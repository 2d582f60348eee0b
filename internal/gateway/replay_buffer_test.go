package gateway

import (
	"strconv"
	"testing"
)

func pushN(rb *ReplayBuffer, n int) {
	for i := 1; i <= n; i++ {
		rb.Push(int64(i), []byte(strconv.Itoa(i)))
	}
}

func TestReplayBuffer_Range(t *testing.T) {
	rb := NewReplayBuffer(100)
	pushN(rb, 10)

	got := rb.Range(3, 7)
	if len(got) != 5 {
		t.Fatalf("Range(3,7): expected 5, got %d", len(got))
	}
	for i, e := range got {
		if want := strconv.Itoa(i + 3); string(e) != want {
			t.Errorf("entry[%d] = %s, want %s", i, e, want)
		}
	}
}

func TestReplayBuffer_Wraparound(t *testing.T) {
	rb := NewReplayBuffer(5)
	pushN(rb, 8)

	if rb.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", rb.Len())
	}
	got := rb.Range(1, 10)
	if len(got) != 5 || string(got[0]) != "4" || string(got[4]) != "8" {
		t.Fatalf("Range(1,10) = %q", got)
	}
}

func TestReplayBuffer_CopiesInput(t *testing.T) {
	rb := NewReplayBuffer(2)
	b := []byte("a")
	rb.Push(1, b)
	b[0] = 'z'
	if got := rb.Range(1, 1); string(got[0]) != "a" {
		t.Errorf("buffer aliased caller slice: %q", got[0])
	}
}

func TestReplayBuffer_Empty(t *testing.T) {
	if got := NewReplayBuffer(10).Range(1, 100); len(got) != 0 {
		t.Fatalf("empty buffer Range should return 0, got %d", len(got))
	}
}
