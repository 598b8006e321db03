package pointcache

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// NewID derives the identifier of the cache of a scene from its name. Names
// differing only by their unicode normalization share a cache.
func NewID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(norm.NFC.String(name)))
}

// Cache is the frame indexed snapshot cache of one simulation.
type Cache struct {
	ID         uuid.UUID
	StartFrame int
	EndFrame   int
	// Step stores one frame out of Step, the start and end frames are always
	// stored
	Step int

	store Store

	outdated  bool
	baked     bool
	lastExact int
	simFrame  int
}

// New returns an outdated cache over store.
func New(id uuid.UUID, store Store, start, end, step int) *Cache {
	return &Cache{
		ID:         id,
		StartFrame: start,
		EndFrame:   end,
		Step:       max(step, 1),
		store:      store,
		outdated:   true,
	}
}

// Outdated reports whether the stored frames no longer match the scene.
func (c *Cache) Outdated() bool {
	return c.outdated
}

func (c *Cache) MarkOutdated() {
	c.outdated = true
}

// Baked caches are read only, the simulation is not stepped anymore.
func (c *Cache) Baked() bool {
	return c.baked
}

func (c *Cache) SetBaked(baked bool) {
	c.baked = baked
}

// LastExact is the last frame written, 0 when nothing was.
func (c *Cache) LastExact() int {
	return c.lastExact
}

// SimFrame is the last frame validated.
func (c *Cache) SimFrame() int {
	return c.simFrame
}

// Validate marks the frames up to frame as simulated.
func (c *Cache) Validate(frame int) {
	c.simFrame = frame
}

// stored reports whether frame belongs to the frames kept by the cache.
func (c *Cache) stored(frame int) bool {
	if frame < c.StartFrame || frame > c.EndFrame {
		return false
	}
	return frame == c.StartFrame || frame == c.EndFrame || (frame-c.StartFrame)%c.Step == 0
}

// Read returns the snapshot of frame. An outdated cache never hits, unless
// it was baked.
func (c *Cache) Read(ctx context.Context, frame int) (Snapshot, bool, error) {
	if (c.outdated && !c.baked) || !c.stored(frame) {
		return Snapshot{}, false, nil
	}

	snap, ok, err := c.store.Read(ctx, c.ID, frame)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("cache read: %w", err)
	}
	return snap, ok, nil
}

// Write persists snap. Writing the start frame makes the cache current again.
// Frames skipped by Step are dropped silently.
func (c *Cache) Write(ctx context.Context, snap Snapshot) error {
	if !c.stored(snap.Frame) {
		return nil
	}

	if err := c.store.Write(ctx, c.ID, snap); err != nil {
		return fmt.Errorf("cache write: %w", err)
	}

	if snap.Frame == c.StartFrame {
		c.outdated = false
	}
	c.lastExact = snap.Frame

	return nil
}

// Reset drops every stored frame. The cache stays outdated until its start
// frame is written again.
func (c *Cache) Reset(ctx context.Context) error {
	c.outdated = true
	c.baked = false
	c.lastExact = 0
	c.simFrame = 0

	if err := c.store.Clear(ctx, c.ID); err != nil {
		return fmt.Errorf("cache reset: %w", err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.store.Close()
}
