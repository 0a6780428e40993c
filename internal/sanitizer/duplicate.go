package sanitizer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	qerrors "github.com/c360/quakerelay/errors"
	"github.com/c360/quakerelay/internal/packet"
)

// Sentinel classification errors for the duplicate detector. These surface
// as quiet rejections with a WARN log, never as panics across the pipeline
// boundary (SPEC_FULL.md section 7).
var (
	ErrInconsistentSamplingRate = errors.New("inconsistent sampling rate for channel")
	ErrUnsupportedSamplingRate  = errors.New("unsupported sampling rate")
)

// DuplicateDetectorOptions configures a DuplicateDetector. Exactly one of
// BufferSize or BufferDuration must be set (BufferDuration > 0 selects the
// duration form; BufferSize > 0 selects the fixed-capacity form).
type DuplicateDetectorOptions struct {
	BufferSize     int
	BufferDuration time.Duration
}

// ring is a capacity-bounded, start-time-ordered history of headers for one
// channel. It is not built on pkg/buffer.Buffer[T]: that type is a pure FIFO
// (push-back, pop-front) and cannot express front-eviction-on-prepend or
// resort-after-out-of-order-insert, both required by the algorithm below, so
// this keeps the source's boost::circular_buffer shape as a plain slice.
type ring struct {
	headers  []packet.Header
	capacity int
}

func newRing(capacity int) *ring {
	return &ring{headers: make([]packet.Header, 0, capacity), capacity: capacity}
}

func (r *ring) full() bool { return len(r.headers) >= r.capacity }
func (r *ring) front() packet.Header { return r.headers[0] }
func (r *ring) back() packet.Header  { return r.headers[len(r.headers)-1] }

func (r *ring) pushBack(h packet.Header) {
	if r.full() {
		r.headers = r.headers[1:]
	}
	r.headers = append(r.headers, h)
}

func (r *ring) pushFront(h packet.Header) {
	r.headers = append([]packet.Header{h}, r.headers...)
	if len(r.headers) > r.capacity {
		r.headers = r.headers[:r.capacity]
	}
}

func (r *ring) insertAndSort(h packet.Header) {
	r.headers = append(r.headers, h)
	sort.Slice(r.headers, func(i, j int) bool {
		return r.headers[i].StartTime.Before(r.headers[j].StartTime)
	})
	if len(r.headers) > r.capacity {
		r.headers = r.headers[len(r.headers)-r.capacity:]
	}
}

// DuplicateDetector rejects exact duplicates, GPS-slipped overlaps, and
// out-of-retention back-fill, keyed by a per-channel ring of headers.
type DuplicateDetector struct {
	mu             sync.Mutex
	rings          map[string]*ring
	bufferSize     int
	bufferDuration time.Duration
	estimateCap    bool
	logger         *slog.Logger
	metrics        *detectorMetrics
}

// NewDuplicateDetector constructs a detector. Fails InvalidConfig if both or
// neither of BufferSize/BufferDuration are provided, or if either is
// non-positive.
func NewDuplicateDetector(opts DuplicateDetectorOptions, logger *slog.Logger) (*DuplicateDetector, error) {
	haveSize := opts.BufferSize > 0
	haveDuration := opts.BufferDuration > 0
	if haveSize == haveDuration {
		return nil, qerrors.WrapInvalid(qerrors.ErrInvalidConfig, "DuplicateDetector", "New",
			"exactly one of BufferSize or BufferDuration must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DuplicateDetector{
		rings:          make(map[string]*ring),
		bufferSize:     opts.BufferSize,
		bufferDuration: opts.BufferDuration,
		estimateCap:    haveDuration,
		logger:         logger,
	}, nil
}

// capacityFor derives the per-channel ring capacity, either the fixed
// configured size or an estimate from the retention duration and the first
// observed packet's own duration: max(10, floor(1.5*D/packetDuration)) + 1.
func (d *DuplicateDetector) capacityFor(h packet.Header) int {
	if !d.estimateCap {
		return d.bufferSize
	}
	packetDuration := math.Max(1, math.Round(float64(h.NumberOfSamples-1)/math.Max(1, float64(h.NominalSamplingRate))))
	capacity := int(1.5*d.bufferDuration.Seconds()/packetDuration) + 1
	if capacity < 11 {
		capacity = 11
	}
	return capacity
}

// tolerance returns the equality tolerance for the given nominal sampling
// rate, or an error for rates this detector does not classify.
func tolerance(rateHz int) (time.Duration, error) {
	switch {
	case rateHz < 105:
		return 15 * time.Millisecond, nil
	case rateHz < 255:
		return 4500 * time.Microsecond, nil
	case rateHz < 505:
		return 2500 * time.Microsecond, nil
	case rateHz < 1005:
		return 1500 * time.Microsecond, nil
	default:
		return 0, fmt.Errorf("%w: %d Hz", ErrUnsupportedSamplingRate, rateHz)
	}
}

// headersEqual implements the source's DataPacketHeader::operator==.
func headersEqual(a, b packet.Header) (bool, error) {
	if a.Name != b.Name {
		return false, nil
	}
	if a.NominalSamplingRate != b.NominalSamplingRate {
		return false, fmt.Errorf("%w: %s", ErrInconsistentSamplingRate, a.Name)
	}
	if a.NumberOfSamples != b.NumberOfSamples {
		return false, nil
	}
	tol, err := tolerance(a.NominalSamplingRate)
	if err != nil {
		return false, err
	}
	delta := a.StartTime.Sub(b.StartTime)
	if delta < 0 {
		delta = -delta
	}
	return delta < tol, nil
}

// overlaps reports whether [h.Start,h.End] intersects [s.Start,s.End] on
// either endpoint, the closed-interval GPS-slip test.
func overlaps(h, s packet.Header) bool {
	within := func(t, lo, hi time.Time) bool {
		return !t.Before(lo) && !t.After(hi)
	}
	return within(h.StartTime, s.StartTime, s.EndTime) || within(h.EndTime, s.StartTime, s.EndTime)
}

// Allow implements the full algorithm from SPEC_FULL.md section 4.4: exact
// duplicate, append, prepend, overlap/GPS-slip, out-of-order back-fill.
func (d *DuplicateDetector) Allow(p packet.Packet) (allow bool) {
	defer func() { d.metrics.record("duplicate", allow) }()

	h, err := packet.NewHeader(p)
	if err != nil {
		d.logger.Warn("failed to build packet header, not allowing", "error", err)
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	r, ok := d.rings[h.Name]
	if !ok {
		r = newRing(d.capacityFor(h))
		r.pushBack(h)
		d.rings[h.Name] = r
		return true
	}

	for _, s := range r.headers {
		eq, err := headersEqual(h, s)
		if err != nil {
			d.logger.Warn("rejecting packet", "channel", h.Name, "error", err)
			return false
		}
		if eq {
			return false
		}
	}

	if h.StartTime.After(r.back().EndTime) {
		r.pushBack(h)
		return true
	}

	if h.EndTime.Before(r.front().StartTime) {
		if r.full() {
			return false
		}
		r.pushFront(h)
		return true
	}

	for _, s := range r.headers {
		if overlaps(h, s) {
			return false
		}
	}

	r.insertAndSort(h)
	return true
}
