package stream

import (
	"testing"
	"time"

	"github.com/c360/quakerelay/internal/packet"
)

func testPacket(seq int) packet.Packet {
	return packet.Packet{
		StreamID:        packet.StreamID{Network: "nn", Station: "sta", Channel: "chz"},
		StartTime:       time.Date(2026, 1, 1, 0, 0, seq, 0, time.UTC),
		SamplingRate:    100,
		NumberOfSamples: 1,
		DataType:        packet.DataTypeInt32,
		Data:            []byte{byte(seq), 0, 0, 0},
	}
}

func TestSetNextPacketRejectsMismatchedIdentifier(t *testing.T) {
	s := New(testPacket(0), Options{}, nil)
	other := testPacket(1)
	other.StreamID.Channel = "chn"
	if err := s.SetNextPacket(other); err == nil {
		t.Error("expected StreamIdentifierMismatch error")
	}
}

func TestSubscribeIsIdempotentPerID(t *testing.T) {
	s := New(testPacket(0), Options{}, nil)
	if !s.Subscribe("a", false) {
		t.Fatal("first subscribe should succeed")
	}
	if s.Subscribe("a", false) {
		t.Error("second subscribe for same id should return false")
	}
}

func TestFanOutPreservesPublishOrder(t *testing.T) {
	s := New(testPacket(0), Options{MaxQueueSize: 8}, nil)
	s.Subscribe("a", false)
	s.Subscribe("b", false)

	for i := 1; i <= 5; i++ {
		if err := s.SetNextPacket(testPacket(i)); err != nil {
			t.Fatalf("SetNextPacket: %v", err)
		}
	}

	for _, id := range []SubscriberID{"a", "b"} {
		for i := 1; i <= 5; i++ {
			p, ok := s.GetNextPacket(id)
			if !ok {
				t.Fatalf("subscriber %s: expected packet %d", id, i)
			}
			if p.Data[0] != byte(i) {
				t.Fatalf("subscriber %s: got packet seq %d, want %d", id, p.Data[0], i)
			}
		}
		if _, ok := s.GetNextPacket(id); ok {
			t.Fatalf("subscriber %s: expected empty FIFO", id)
		}
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	s := New(testPacket(0), Options{MaxQueueSize: 2}, nil)
	s.Subscribe("a", false)
	for i := 1; i <= 4; i++ {
		s.SetNextPacket(testPacket(i))
	}
	first, ok := s.GetNextPacket("a")
	if !ok {
		t.Fatal("expected a packet")
	}
	if first.Data[0] != 3 {
		t.Errorf("expected oldest surviving packet to be seq 3, got %d", first.Data[0])
	}
}

func TestUnsubscribeIsConsistent(t *testing.T) {
	s := New(testPacket(0), Options{}, nil)
	s.Subscribe("a", false)
	s.Subscribe("b", false)

	if !s.Unsubscribe("a") {
		t.Error("expected unsubscribe of present id to return true")
	}
	if s.Unsubscribe("a") {
		t.Error("expected unsubscribe of absent id to return false")
	}
	if s.NumberOfSubscribers() != 1 {
		t.Errorf("expected 1 remaining subscriber, got %d", s.NumberOfSubscribers())
	}
}

func TestSubscribeSeedsLatestWhenRequested(t *testing.T) {
	s := New(testPacket(0), Options{}, nil)
	s.Subscribe("late-joiner", true)
	p, ok := s.GetNextPacket("late-joiner")
	if !ok {
		t.Fatal("expected seeded packet for late joiner")
	}
	if p.Data[0] != 0 {
		t.Errorf("expected seed to be the most-recent packet, got seq %d", p.Data[0])
	}
}
