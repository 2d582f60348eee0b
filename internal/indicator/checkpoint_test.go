package indicator

import (
	"reflect"
	"testing"
)

func TestCheckpoint_ResumeMatchesUninterrupted(t *testing.T) {
	candles := randomWalk(200, 42)
	cfg := Config{Period: 10, Multiplier: 3}

	full, _ := Compute(candles, cfg)

	first, _ := New(cfg)
	for _, c := range candles[:80] {
		first.Update(c)
	}
	data, err := first.MarshalCheckpoint()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	resumed, _ := New(cfg)
	if err := resumed.RestoreJSON(data); err != nil {
		t.Fatalf("restore: %v", err)
	}
	for i, c := range candles[80:] {
		s, err := resumed.Update(c)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(s, full[80+i]) {
			t.Fatalf("candle %d diverged after restore", 80+i)
		}
	}
}

func TestCheckpoint_RejectsMismatchedConfig(t *testing.T) {
	a, _ := New(Config{Period: 10, Multiplier: 3})
	b, _ := New(Config{Period: 7, Multiplier: 3})
	if err := b.Restore(a.Checkpoint()); err == nil {
		t.Error("expected period mismatch error")
	}

	cp := a.Checkpoint()
	cp.Version = 99
	if err := a.Restore(cp); err == nil {
		t.Error("expected version error")
	}
	if err := a.RestoreJSON([]byte("{bad")); err == nil {
		t.Error("expected unmarshal error")
	}
}
