package subscription

import (
	"testing"

	"github.com/c360/quakerelay/internal/packet"
	"github.com/c360/quakerelay/internal/stream"
	"github.com/c360/quakerelay/metric"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestManagerRecordsFanOutAndSubscriberGauge(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	m, err := New(stream.Options{}, nil, registry)
	require.NoError(t, err)

	require.NoError(t, m.Subscribe("sub-a", []string{"NN.STA.CHZ.--"}))
	require.NoError(t, m.EnqueuePacket(testPacket("nn")))
	require.NoError(t, m.EnqueuePacket(testPacket("nn")))

	require.Equal(t, float64(2), testutil.ToFloat64(m.metrics.fannedOut))

	if got := m.SubscriberCount(); got != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", got)
	}
	require.Equal(t, float64(1), testutil.ToFloat64(m.metrics.subscribers))
}

func TestNewWithoutRegistryLeavesMetricsNil(t *testing.T) {
	m, err := New(stream.Options{}, nil, nil)
	require.NoError(t, err)
	require.Nil(t, m.metrics)
	// EnqueuePacket and SubscriberCount must not panic without a registry.
	require.NoError(t, m.EnqueuePacket(packet.Packet{
		StreamID:        packet.StreamID{Network: "nn", Station: "sta", Channel: "chz"},
		SamplingRate:    100,
		NumberOfSamples: 1,
		DataType:        packet.DataTypeInt32,
		Data:            []byte{1, 2, 3, 4},
	}))
	m.SubscriberCount()
}
