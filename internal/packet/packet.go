// Package packet defines the carrier types for sanitized seismic telemetry
// and the name/time helpers shared by the detectors, the streams, and the
// subscription manager.
package packet

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360/quakerelay/errors"
)

// DataType enumerates the sample encodings a Packet may carry.
type DataType int

const (
	DataTypeUnknown DataType = iota
	DataTypeInt32
	DataTypeInt64
	DataTypeFloat32
	DataTypeFloat64
	DataTypeText
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeInt32:
		return "int32"
	case DataTypeInt64:
		return "int64"
	case DataTypeFloat32:
		return "float32"
	case DataTypeFloat64:
		return "float64"
	case DataTypeText:
		return "text"
	default:
		return "unknown"
	}
}

// sampleSize returns sizeof(dataType) in bytes, or 0 for types with no fixed width.
func (dt DataType) sampleSize() int {
	switch dt {
	case DataTypeInt32, DataTypeFloat32:
		return 4
	case DataTypeInt64, DataTypeFloat64:
		return 8
	default:
		return 0
	}
}

// unsetLocationCode is substituted whenever an upstream packet omits its location code.
const unsetLocationCode = "--"

// StreamID identifies a single channel: network, station, channel, and an
// optional location code (defaulted to "--" when absent).
type StreamID struct {
	Network      string
	Station      string
	Channel      string
	LocationCode string
}

// Normalize uppercases every field and substitutes the sentinel location code
// when it is blank. Conversion from the import format must call this so a
// blank upstream location code never leaks through as empty.
func (s StreamID) Normalize() StreamID {
	loc := s.LocationCode
	if loc == "" {
		loc = unsetLocationCode
	}
	return StreamID{
		Network:      strings.ToUpper(s.Network),
		Station:      strings.ToUpper(s.Station),
		Channel:      strings.ToUpper(s.Channel),
		LocationCode: strings.ToUpper(loc),
	}
}

// Name renders "NETWORK.STATION.CHANNEL.LOCATION".
func (s StreamID) Name() string {
	n := s.Normalize()
	return fmt.Sprintf("%s.%s.%s.%s", n.Network, n.Station, n.Channel, n.LocationCode)
}

// Packet is the service-format carrier. Both the import-side wire shape and
// this service-side shape are modeled as distinct Go structs; Convert copies
// between them without reinterpreting the sample blob.
type Packet struct {
	StreamID        StreamID
	StartTime       time.Time
	SamplingRate    float64
	NumberOfSamples int
	DataType        DataType
	Data            []byte
}

// Name is a convenience wrapper over StreamID.Name for this packet.
func (p Packet) Name() string {
	return p.StreamID.Name()
}

// EndTime computes startTime + round((N-1) * 1e6 / samplingRate) microseconds.
func (p Packet) EndTime() time.Time {
	if p.NumberOfSamples <= 0 || p.SamplingRate <= 0 {
		return p.StartTime
	}
	deltaUs := int64((float64(p.NumberOfSamples-1) * 1e6 / p.SamplingRate) + 0.5)
	return p.StartTime.Add(time.Duration(deltaUs) * time.Microsecond)
}

// Validate checks the invariants required before a Packet may be published:
// positive sampling rate, positive sample count, a data blob consistent with
// that count and data type, and a fully populated stream identifier.
func (p Packet) Validate() error {
	if p.StreamID.Network == "" || p.StreamID.Station == "" || p.StreamID.Channel == "" {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate", "missing stream identifier")
	}
	if p.SamplingRate <= 0 {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate", "sampling rate must be positive")
	}
	if p.NumberOfSamples <= 0 {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate", "number of samples must be positive")
	}
	if p.DataType == DataTypeUnknown {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate", "data type must be set")
	}
	if len(p.Data) == 0 {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate", "data must be present")
	}
	if sz := p.DataType.sampleSize(); sz > 0 && len(p.Data) != sz*p.NumberOfSamples {
		return errors.WrapInvalid(ErrInvalidPacket, "packet", "Validate",
			fmt.Sprintf("data length %d inconsistent with %d samples of %s", len(p.Data), p.NumberOfSamples, p.DataType))
	}
	return nil
}

// Header is the lightweight, hashable-by-value summary the duplicate
// detector keeps in its per-channel ring.
type Header struct {
	Name                string
	StartTime           time.Time
	EndTime             time.Time
	NominalSamplingRate int // rounded to nearest integer Hz
	NumberOfSamples     int
}

// NewHeader builds a Header from a Packet, failing with InvalidPacket when
// the sample count is non-positive.
func NewHeader(p Packet) (Header, error) {
	if p.NumberOfSamples <= 0 {
		return Header{}, errors.WrapInvalid(ErrInvalidPacket, "packet", "NewHeader", "no samples in packet")
	}
	return Header{
		Name:                p.Name(),
		StartTime:           p.StartTime,
		EndTime:             p.EndTime(),
		NominalSamplingRate: int(p.SamplingRate + 0.5),
		NumberOfSamples:     p.NumberOfSamples,
	}, nil
}
