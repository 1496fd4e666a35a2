package operation

import (
	"reflect"
	"testing"

	"ringkeep/internal/logger"
	"ringkeep/internal/ring"
)

// TestSerializationRoundTrip covers P6: deserialize(serialize(op)) == op
// for every variant.
func TestSerializationRoundTrip(t *testing.T) {
	tests := []Operation{
		Heartbeat{ID: "10.0.0.1:9000|100"},
		Join{ID: "10.0.0.2:9000|200", TCPAddr: "10.0.0.2:9001"},
		Leave{ID: "10.0.0.3:9000|300"},
		NewMember{ID: "10.0.0.4:9000|400", TCPAddr: "10.0.0.4:9001"},
		MemberInit{
			Membership: []ring.NodeId{"10.0.0.1:9000|100", "10.0.0.2:9000|200"},
			UDPToTCP:   map[string]string{"10.0.0.1:9000": "10.0.0.1:9001"},
			FileOwners: map[string]string{"file-a": "10.0.0.1:9000|100"},
		},
	}

	for _, op := range tests {
		t.Run(op.Describe(), func(t *testing.T) {
			buf, err := op.ToBytes()
			if err != nil {
				t.Fatalf("ToBytes: %v", err)
			}
			got, err := Decode(buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, op) {
				t.Fatalf("round trip mismatch: got %#v, want %#v", got, op)
			}
		})
	}
}

func TestDecodeUnknownTag(t *testing.T) {
	frame := append([]byte("XXXX\x00"), []byte("{}")...)
	if _, err := Decode(frame); err == nil {
		t.Fatal("expected an error decoding an unknown tag")
	}
}

// TestHeartbeatRejectsSourceMismatch covers P7.
func TestHeartbeatRejectsSourceMismatch(t *testing.T) {
	s := ring.New(logger.NopLogger{}, 2)
	s.SetIdentity("self|1", "self", "selftcp")
	s.InsertNode("self|1")
	s.InsertNode("10.0.0.9:9000|50")
	s.RecalculateNeighbors(1)

	before := s.PredecessorTimestamps()

	hb := Heartbeat{ID: "10.0.0.9:9000|50"}
	ctx := ExecContext{State: s, Now: 999, Lgr: logger.NopLogger{}}
	_, err := hb.Execute(ctx, "1.2.3.4:9999")
	if err == nil {
		t.Fatal("expected source-mismatch error")
	}

	after := s.PredecessorTimestamps()
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("state mutated despite rejected heartbeat: %v -> %v", before, after)
	}
}

func TestHeartbeatAcceptsMatchingPredecessor(t *testing.T) {
	s := ring.New(logger.NopLogger{}, 2)
	s.SetIdentity("self|1", "self", "selftcp")
	s.InsertNode("self|1")
	s.InsertNode("10.0.0.9:9000|50")
	s.RecalculateNeighbors(1)

	hb := Heartbeat{ID: "10.0.0.9:9000|50"}
	ctx := ExecContext{State: s, Now: 42, Lgr: logger.NopLogger{}}
	if _, err := hb.Execute(ctx, "10.0.0.9:9000"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ts, ok := s.PredecessorTimestamp("10.0.0.9:9000|50")
	if !ok || ts != 42 {
		t.Fatalf("expected predecessor timestamp updated to 42, got %v (ok=%v)", ts, ok)
	}
}

// TestLeaveExecuteIdempotent covers P5 at the operation level.
func TestLeaveExecuteIdempotent(t *testing.T) {
	s := ring.New(logger.NopLogger{}, 2)
	s.SetIdentity("self|1", "self", "selftcp")
	s.InsertNode("self|1")
	s.InsertNode("10.0.0.9:9000|50")
	s.RecalculateNeighbors(1)

	leave := Leave{ID: "10.0.0.9:9000|50"}
	ctx := ExecContext{State: s, Now: 2, NumSuccessors: 2, Lgr: logger.NopLogger{}}

	first, err := leave.Execute(ctx, "10.0.0.9:9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = first

	second, err := leave.Execute(ctx, "10.0.0.9:9000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no follow-ups on second Leave.Execute, got %v", second)
	}
}
