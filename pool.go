package mapposter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-mapposter/internal/engine"
	"github.com/alnah/go-mapposter/internal/geo"
)

// Pool sizing constants for batch workers.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent renders; each may hold a browser page
	// and a decoded full-size poster.
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for the renderer and Chrome processes.
	cpuDivisor = 2
)

// DefaultLockTimeout bounds the wait for a style's engine map.
const DefaultLockTimeout = 60 * time.Second

// initialMapSize is the size a pooled map is loaded at. Every render
// resizes it first.
const initialMapSize = 256

// styleSlot binds one style to its engine map. sem has weight 1 and guards
// every call on m.
type styleSlot struct {
	name string
	m    engine.Map
	sem  *semaphore.Weighted
}

// StylePool owns one engine map per style, loaded on first use and kept
// until Close. Renders on the same style are serialized; different styles
// render concurrently.
type StylePool struct {
	engine      engine.Engine
	dir         string
	lockTimeout time.Duration
	logger      *zap.Logger
	metrics     *Metrics

	mu     sync.Mutex
	slots  map[string]*styleSlot
	closed bool

	loads singleflight.Group
}

// PoolOption configures a StylePool.
type PoolOption func(*StylePool)

// WithLockTimeout sets how long a render waits for a busy style.
func WithLockTimeout(d time.Duration) PoolOption {
	return func(p *StylePool) {
		if d > 0 {
			p.lockTimeout = d
		}
	}
}

// WithPoolLogger sets the pool's logger.
func WithPoolLogger(l *zap.Logger) PoolOption {
	return func(p *StylePool) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithPoolMetrics records lock waits, lookups and slot counts.
func WithPoolMetrics(m *Metrics) PoolOption {
	return func(p *StylePool) {
		p.metrics = m
	}
}

// NewStylePool creates an empty pool. Stylesheets are read from
// {dir}/{style}.xml.
func NewStylePool(eng engine.Engine, dir string, opts ...PoolOption) *StylePool {
	p := &StylePool{
		engine:      eng,
		dir:         dir,
		lockTimeout: DefaultLockTimeout,
		logger:      zap.NewNop(),
		slots:       make(map[string]*styleSlot),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StylesheetPath returns the stylesheet file of a style.
func (p *StylePool) StylesheetPath(style string) string {
	return filepath.Join(p.dir, style+".xml")
}

// Render draws bounds at width x height with the style's pooled map and
// returns PNG bytes. It waits at most the lock timeout for the map; on
// expiry it fails with ErrLockTimeout and the slot stays usable.
func (p *StylePool) Render(ctx context.Context, style string, width, height int, bounds geo.Bounds, scale float64) ([]byte, error) {
	slot, err := p.slot(ctx, style)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	lockCtx, cancel := context.WithTimeout(ctx, p.lockTimeout)
	err = slot.sem.Acquire(lockCtx, 1)
	cancel()
	waited := time.Since(start)
	p.metrics.observeLockWait(style, waited)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.logger.Warn("style lock timeout",
			zap.String("style", style), zap.Duration("waited", waited))
		return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, style, p.lockTimeout)
	}
	defer slot.sem.Release(1)

	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	slot.m.Resize(width, height)
	slot.m.SetExtent(geo.Project(bounds))
	data, err := slot.m.Render(ctx, engine.RenderOptions{Scale: scale, Format: engine.FormatPNG})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, style, err)
	}
	return data, nil
}

// RenderOnce loads a fresh map at width x height, renders it in format and
// closes it. The pool's slots are not touched.
func (p *StylePool) RenderOnce(ctx context.Context, style string, width, height int, bounds geo.Bounds, scale float64, format engine.Format) (data []byte, err error) {
	if err := validStyleName(style); err != nil {
		return nil, err
	}
	m, err := p.engine.Load(ctx, p.StylesheetPath(style), width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStyleLoad, style, err)
	}
	defer func() {
		if cerr := m.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	m.SetExtent(geo.Project(bounds))
	data, err = m.Render(ctx, engine.RenderOptions{Scale: scale, Format: format})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRender, style, err)
	}
	return data, nil
}

// slot returns the style's slot, loading the map on first use. Concurrent
// first uses share one load. A failed load stores nothing, so the next
// call retries.
func (p *StylePool) slot(ctx context.Context, style string) (*styleSlot, error) {
	if err := validStyleName(style); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	s, ok := p.slots[style]
	p.mu.Unlock()
	p.metrics.observeLookup(ok)
	if ok {
		return s, nil
	}

	// The load outlives a cancelled first caller: others may share it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := p.loads.Do(style, func() (any, error) {
		p.mu.Lock()
		if s, ok := p.slots[style]; ok {
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()

		start := time.Now()
		m, err := p.engine.Load(loadCtx, p.StylesheetPath(style), initialMapSize, initialMapSize)
		if err != nil {
			p.logger.Error("style load failed", zap.String("style", style), zap.Error(err))
			return nil, fmt.Errorf("%w: %s: %v", ErrStyleLoad, style, err)
		}

		s := &styleSlot{name: style, m: m, sem: semaphore.NewWeighted(1)}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, errors.Join(ErrPoolClosed, m.Close())
		}
		p.slots[style] = s
		n := len(p.slots)
		p.mu.Unlock()

		p.metrics.setSlots(n)
		p.logger.Info("style loaded",
			zap.String("style", style), zap.Duration("took", time.Since(start)))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*styleSlot), nil
}

// Prewarm loads every named style. It keeps going past failures and
// returns them joined.
func (p *StylePool) Prewarm(ctx context.Context, styles []string) error {
	var errs []error
	for _, style := range styles {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if _, err := p.slot(ctx, style); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Slots returns the loaded style names, sorted.
func (p *StylePool) Slots() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.slots))
	for name := range p.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *StylePool) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Close waits for in-flight renders and closes every engine map.
// Returns an aggregated error if several maps fail to close.
func (p *StylePool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	slots := make([]*styleSlot, 0, len(p.slots))
	for _, s := range p.slots {
		slots = append(slots, s)
	}
	p.slots = map[string]*styleSlot{}
	p.mu.Unlock()
	p.metrics.setSlots(0)

	var errs []error
	for _, s := range slots {
		_ = s.sem.Acquire(context.Background(), 1)
		if err := s.m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", s.name, err))
		}
		s.sem.Release(1)
	}
	return errors.Join(errs...)
}

func validStyleName(style string) error {
	if style == "" || strings.ContainsAny(style, `/\`) || strings.Contains(style, "..") {
		return fmt.Errorf("%w: invalid style name %q", ErrStyleLoad, style)
	}
	return nil
}

// ResolvePoolSize determines the number of concurrent batch workers.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
