package rpcwire

import "github.com/c360/quakerelay/internal/packet"

func dataTypeToWire(dt packet.DataType) string { return dt.String() }

func dataTypeFromWire(s string) packet.DataType {
	switch s {
	case "int32":
		return packet.DataTypeInt32
	case "int64":
		return packet.DataTypeInt64
	case "float32":
		return packet.DataTypeFloat32
	case "float64":
		return packet.DataTypeFloat64
	case "text":
		return packet.DataTypeText
	default:
		return packet.DataTypeUnknown
	}
}

// ToImport converts a WirePacket received from the upstream import stream
// into the package's Import type, ready for packet.Convert.
func (w WirePacket) ToImport() packet.Import {
	return packet.Import{
		Network:         w.Network,
		Station:         w.Station,
		Channel:         w.Channel,
		LocationCode:    w.LocationCode,
		StartTimeSec:    w.StartTimeSec,
		StartTimeNsec:   w.StartTimeNsec,
		SamplingRate:    w.SamplingRate,
		NumberOfSamples: w.NumberOfSamples,
		DataType:        dataTypeFromWire(w.DataType),
		Data:            w.Data,
	}
}

// FromPacket converts a service-format packet to its wire shape, for the
// downstream GetPackets response and the optional NATS mirror/WebSocket
// bridge.
func FromPacket(p packet.Packet) WirePacket {
	return WirePacket{
		Network:         p.StreamID.Network,
		Station:         p.StreamID.Station,
		Channel:         p.StreamID.Channel,
		LocationCode:    p.StreamID.LocationCode,
		StartTimeSec:    p.StartTime.Unix(),
		StartTimeNsec:   int32(p.StartTime.Nanosecond()),
		SamplingRate:    p.SamplingRate,
		NumberOfSamples: p.NumberOfSamples,
		DataType:        dataTypeToWire(p.DataType),
		Data:            p.Data,
	}
}
