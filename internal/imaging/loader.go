package imaging

import (
	"sync"
)

// FrameCache provides thread-safe caching of decoded frames to avoid redundant
// disk reads when the same frame feeds several outputs.
//
// Cached frames must be treated as read-only; callers that modify a frame
// should work on a Clone.
//
// # Example Usage
//
//	cache := imaging.NewFrameCache(imaging.LoadFrame)
//	frame, err := cache.Load("/path/to/sprite/frame-0.png")
//	if err != nil {
//	    return err
//	}
//	skinned := frame.Clone()
//	cache.Evict("/path/to/sprite/frame-0.png") // Optional: free memory
type FrameCache struct {
	mu     sync.RWMutex
	load   func(path string) (*Frame, error)
	frames map[string]*Frame
}

// NewFrameCache creates an empty cache that decodes misses with load.
func NewFrameCache(load func(path string) (*Frame, error)) *FrameCache {
	return &FrameCache{
		load:   load,
		frames: make(map[string]*Frame),
	}
}

// Load retrieves a frame from the cache or decodes it if not cached.
//
// The frame is cached using the exact path string provided. Different paths to
// the same file result in separate cache entries.
func (c *FrameCache) Load(path string) (*Frame, error) {
	c.mu.RLock()
	if frame, ok := c.frames[path]; ok {
		c.mu.RUnlock()
		return frame, nil
	}
	c.mu.RUnlock()

	frame, err := c.load(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = frame
	c.mu.Unlock()

	return frame, nil
}

// Put stores frame under path, replacing any cached entry.
func (c *FrameCache) Put(path string, frame *Frame) {
	c.mu.Lock()
	c.frames[path] = frame
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Clear removes all frames from the cache.
func (c *FrameCache) Clear() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}

// Evict removes a specific frame from the cache by its path.
//
// If the path is not in the cache, this method does nothing.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}
