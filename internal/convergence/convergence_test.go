package convergence

import (
	"testing"
	"time"
)

func TestWinsByTimestamp(t *testing.T) {
	base := time.Now()
	current := Stamp{UpdatedAt: base, WriterID: "userA"}
	incoming := Stamp{UpdatedAt: base.Add(time.Millisecond), WriterID: "userB"}

	if !Wins(current, incoming) {
		t.Fatalf("expected later timestamp to win")
	}
	if Wins(incoming, current) {
		t.Fatalf("expected earlier timestamp to lose")
	}
}

func TestWinsTieBreaksByWriterID(t *testing.T) {
	ts := time.Now()
	a := Stamp{UpdatedAt: ts, WriterID: "userA"}
	b := Stamp{UpdatedAt: ts, WriterID: "userB"}

	if Wins(a, b) != true {
		t.Fatalf("expected userB to win tie (lexicographically greater)")
	}
	if Wins(b, a) != false {
		t.Fatalf("expected userA to lose tie")
	}
}

func TestResolveReturnsIncomingWhenItWins(t *testing.T) {
	ts := time.Now()
	current := Stamp{UpdatedAt: ts, WriterID: "userA"}
	incoming := Stamp{UpdatedAt: ts.Add(time.Second), WriterID: "userA"}

	got, applied := Resolve(100, 200, current, incoming)
	if !applied || got != 200 {
		t.Fatalf("expected incoming value 200 to be applied, got %d applied=%v", got, applied)
	}
}

func TestResolveKeepsCurrentWhenItWins(t *testing.T) {
	ts := time.Now()
	current := Stamp{UpdatedAt: ts.Add(time.Second), WriterID: "userA"}
	incoming := Stamp{UpdatedAt: ts, WriterID: "userA"}

	got, applied := Resolve(100, 200, current, incoming)
	if applied || got != 100 {
		t.Fatalf("expected current value 100 to be kept, got %d applied=%v", got, applied)
	}
}
