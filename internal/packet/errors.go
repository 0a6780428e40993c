package packet

import "errors"

// ErrInvalidPacket is raised when a packet is missing a required field,
// has a non-positive sample count, or carries a data blob whose length is
// inconsistent with its declared sample count and data type.
var ErrInvalidPacket = errors.New("invalid packet")

// ErrStreamIdentifierMismatch is raised when a packet is routed to a stream
// whose identifier does not match the packet's own.
var ErrStreamIdentifierMismatch = errors.New("stream identifier mismatch")
