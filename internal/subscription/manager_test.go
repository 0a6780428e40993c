package subscription

import (
	"testing"
	"time"

	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/stream"
)

func testPacket(network string) packet.Packet {
	return packet.Packet{
		StreamID:        packet.StreamID{Network: network, Station: "sta", Channel: "chz"},
		StartTime:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		SamplingRate:    100,
		NumberOfSamples: 1,
		DataType:        packet.DataTypeInt32,
		Data:            []byte{1, 2, 3, 4},
	}
}

func TestPendingNamedPromotedOnStreamCreation(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Subscribe("sub-a", []string{"NN.STA.CHZ.--"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := m.EnqueuePacket(testPacket("nn")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}

	got := m.GetPackets("sub-a")
	if len(got) != 1 {
		t.Fatalf("expected the newly promoted subscriber to receive 1 packet, got %d", len(got))
	}
}

func TestSubscribeToAllPromotedOnFutureStreams(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SubscribeToAll("sub-all")

	if err := m.EnqueuePacket(testPacket("nn")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}
	if err := m.EnqueuePacket(testPacket("oo")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}

	got := m.GetPackets("sub-all")
	if len(got) != 2 {
		t.Fatalf("expected pending-all subscriber to see both streams, got %d", len(got))
	}
}

func TestSubscribeRejectsEmptyNames(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Subscribe("sub-a", nil); err == nil {
		t.Error("expected error subscribing with no names")
	}
}

func TestUnsubscribeFromAllIsIdempotentAndClearsState(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SubscribeToAll("sub-a")
	m.EnqueuePacket(testPacket("nn"))

	m.UnsubscribeFromAll("sub-a")
	if got := m.GetPackets("sub-a"); len(got) != 0 {
		t.Errorf("expected no packets after unsubscribe, got %d", len(got))
	}
	if m.SubscriberCount() != 0 {
		t.Errorf("expected subscriber count 0 after unsubscribe, got %d", m.SubscriberCount())
	}

	// Idempotent: a second call must not panic or change behavior.
	m.UnsubscribeFromAll("sub-a")
}

func TestSubscriberCountUnionsAcrossStreams(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.Subscribe("sub-a", []string{"NN.STA.CHZ.--"})
	m.Subscribe("sub-b", []string{"NN.STA.CHZ.--", "OO.STA.CHZ.--"})

	if err := m.EnqueuePacket(testPacket("nn")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}
	if err := m.EnqueuePacket(testPacket("oo")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}

	if got := m.SubscriberCount(); got != 2 {
		t.Errorf("SubscriberCount() = %d, want 2", got)
	}
}

func TestNotifyHookFiresAfterPublish(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var seen []string
	m.OnPublish(func(p packet.Packet) { seen = append(seen, p.Name()) })

	if err := m.EnqueuePacket(testPacket("nn")); err != nil {
		t.Fatalf("EnqueuePacket: %v", err)
	}
	if len(seen) != 1 || seen[0] != "NN.STA.CHZ.--" {
		t.Errorf("expected notify hook to observe the published packet, got %v", seen)
	}
}
