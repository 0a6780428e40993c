package packet

import "time"

// Import is the wire-shaped packet as delivered by the upstream import RPC.
// It mirrors the generated protobuf stub's fields closely enough for this
// rewrite's purposes without depending on a generated package (out of scope,
// see SPEC_FULL.md section 6): absolute timestamp as seconds+nanoseconds,
// floating point sampling rate, sample count, data type tag, raw bytes.
type Import struct {
	Network         string
	Station         string
	Channel         string
	LocationCode    string
	StartTimeSec    int64
	StartTimeNsec   int32
	SamplingRate    float64
	NumberOfSamples int
	DataType        DataType
	Data            []byte
}

// Convert maps an import-format packet onto the service format, byte-for-byte
// copying the sample blob and normalizing a blank location code to "--".
func Convert(in Import) Packet {
	return Packet{
		StreamID: StreamID{
			Network:      in.Network,
			Station:      in.Station,
			Channel:      in.Channel,
			LocationCode: in.LocationCode,
		}.Normalize(),
		StartTime:       time.Unix(in.StartTimeSec, int64(in.StartTimeNsec)).UTC(),
		SamplingRate:    in.SamplingRate,
		NumberOfSamples: in.NumberOfSamples,
		DataType:        in.DataType,
		Data:            in.Data,
	}
}
