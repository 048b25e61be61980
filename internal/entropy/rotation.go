package entropy

import (
	"context"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
)

// WindowSize is the number of recent samples checked for repeats.
const WindowSize = 5

// SegmentFetcher downloads bytes for one source.
type SegmentFetcher interface {
	Fetch(ctx context.Context, source Source) ([]byte, error)
}

// Observer receives rotation bookkeeping events. Used for metrics.
type Observer interface {
	FetchCompleted(source int, err error)
	Rotated(from, to int)
}

// Rotation selects the catalog entry for each request and moves to the next
// one once the current stream starts repeating itself.
type Rotation struct {
	catalog  SourceLoader
	fetcher  SegmentFetcher
	sampler  Sampler
	logger   *logging.Logger
	observer Observer

	mu         sync.Mutex
	index      int
	recent     [WindowSize]uint32
	filled     int
	next       int
	generation uint64
}

// RotationOption customizes a Rotation.
type RotationOption func(*Rotation)

// WithLogger attaches a logger for rotation events.
func WithLogger(logger *logging.Logger) RotationOption {
	return func(r *Rotation) { r.logger = logger }
}

// WithObserver attaches an observer for fetch and rotation events.
func WithObserver(o Observer) RotationOption {
	return func(r *Rotation) { r.observer = o }
}

// NewRotation builds a rotation over catalog using fetcher for network access.
func NewRotation(catalog SourceLoader, fetcher SegmentFetcher, opts ...RotationOption) *Rotation {
	r := &Rotation{catalog: catalog, fetcher: fetcher}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RotationState is a point-in-time copy of the rotation bookkeeping.
type RotationState struct {
	Index  int      `json:"index"`
	Recent []uint32 `json:"recent"`
	// Stale is set when the window is full and repeats, so the next
	// request moves to another source.
	Stale bool `json:"stale"`
}

// NextBytes fetches a segment from the current source. The lock is held only
// while choosing the source and while recording the sample, never across I/O.
func (r *Rotation) NextBytes(ctx context.Context) ([]byte, error) {
	sources, err := r.catalog.Load()
	if err != nil {
		return nil, err
	}

	index, generation := r.selectSource(len(sources))
	source := sources[index]

	data, err := r.fetcher.Fetch(ctx, source)
	if r.observer != nil {
		r.observer.FetchCompleted(index, err)
	}
	if err != nil {
		if r.logger != nil && ctx.Err() != nil {
			r.logger.Debug("Entropy fetch abandoned by caller",
				zap.Int("source_index", index),
				zap.Error(err))
		} else if r.logger != nil {
			r.logger.Warn("Entropy source fetch failed",
				zap.Int("source_index", index),
				zap.String("source", source.URL),
				zap.Error(err))
		}
		return nil, err
	}

	if sample, err := r.sampler.Unsigned(data); err == nil {
		r.record(generation, sample)
	}

	return data, nil
}

// Snapshot returns the current index and recent samples, oldest first.
func (r *Rotation) Snapshot() RotationState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return RotationState{
		Index:  r.index,
		Recent: r.recentLocked(),
		Stale:  r.filled == WindowSize && hasRepeat(r.recent[:]),
	}
}

func (r *Rotation) selectSource(count int) (int, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.index
	rotated := false
	if r.filled == WindowSize && hasRepeat(r.recent[:]) {
		r.index++
		r.resetWindowLocked()
		rotated = true
	}
	if r.index >= count {
		r.index = 0
	}

	if rotated {
		if r.logger != nil {
			r.logger.Info("Entropy source looks stale, rotating",
				zap.Int("from", from),
				zap.Int("to", r.index))
		}
		if r.observer != nil {
			r.observer.Rotated(from, r.index)
		}
	}

	return r.index, r.generation
}

func (r *Rotation) record(generation uint64, sample uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A rotation happened while this fetch was in flight; the sample belongs
	// to the previous source.
	if generation != r.generation {
		return
	}

	r.recent[r.next] = sample
	r.next = (r.next + 1) % WindowSize
	if r.filled < WindowSize {
		r.filled++
	}
}

func (r *Rotation) resetWindowLocked() {
	r.filled = 0
	r.next = 0
	r.generation++
}

func (r *Rotation) recentLocked() []uint32 {
	out := make([]uint32, 0, r.filled)
	start := (r.next - r.filled + WindowSize) % WindowSize
	for i := 0; i < r.filled; i++ {
		out = append(out, r.recent[(start+i)%WindowSize])
	}
	return out
}

func hasRepeat(values []uint32) bool {
	seen := make(map[uint32]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
