package rpcwire

// WirePacket is the over-the-wire shape for both the import RPC's server
// stream and the packets handed back by the downstream GetPackets call.
// Field names mirror the protobuf-shaped description in SPEC_FULL.md
// section 6: nested identifier, absolute timestamp as seconds+nanoseconds,
// floating point sampling rate, sample count, data type tag, raw bytes.
type WirePacket struct {
	Network         string `json:"network"`
	Station         string `json:"station"`
	Channel         string `json:"channel"`
	LocationCode    string `json:"location_code"`
	StartTimeSec    int64  `json:"start_time_sec"`
	StartTimeNsec   int32  `json:"start_time_nsec"`
	SamplingRate    float64 `json:"sampling_rate"`
	NumberOfSamples int    `json:"number_of_samples"`
	DataType        string `json:"data_type"`
	Data            []byte `json:"data"`
}

// SubscriptionRequest is sent once to open the upstream import stream.
type SubscriptionRequest struct {
	SubscriberID string `json:"subscriber_id,omitempty"`
}

// SubscribeRequest is the downstream Subscribe call's payload.
type SubscribeRequest struct {
	SubscriberID string   `json:"subscriber_id,omitempty"`
	StreamNames  []string `json:"stream_names"`
}

// SubscribeResponse echoes the (possibly newly minted) subscriber id.
type SubscribeResponse struct {
	SubscriberID string `json:"subscriber_id"`
}

// SubscribeToAllRequest is the downstream SubscribeToAll call's payload.
type SubscribeToAllRequest struct {
	SubscriberID string `json:"subscriber_id,omitempty"`
}

// GetPacketsRequest pulls the next batch for an existing subscriber.
type GetPacketsRequest struct {
	SubscriberID string `json:"subscriber_id"`
}

// GetPacketsResponse carries the drained batch.
type GetPacketsResponse struct {
	Packets []WirePacket `json:"packets"`
}

// UnsubscribeRequest tears down every membership for a subscriber.
type UnsubscribeRequest struct {
	SubscriberID string `json:"subscriber_id"`
}

// UnsubscribeResponse is an empty acknowledgement.
type UnsubscribeResponse struct{}
