package buffer

import (
	deadlock "github.com/sasha-s/go-deadlock"
)

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID uint32

// LRUReplacer tracks frames that are currently unpinned and therefore
// eligible for eviction, in least-recently-unpinned order. Pin removes a
// frame from consideration; Unpin makes it a victim candidate again.
type LRUReplacer struct {
	mu       deadlock.Mutex
	capacity uint32
	order    []FrameID       // least-recently-unpinned at index 0
	present  map[FrameID]int // frame id -> index into order
}

// NewLRUReplacer builds a replacer with room for numPages frames.
func NewLRUReplacer(numPages uint32) *LRUReplacer {
	return &LRUReplacer{
		capacity: numPages,
		order:    make([]FrameID, 0, numPages),
		present:  make(map[FrameID]int, numPages),
	}
}

// Victim removes and returns the least-recently-unpinned frame, or (0,
// false) if no frame is currently evictable.
func (r *LRUReplacer) Victim() (FrameID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) == 0 {
		return 0, false
	}
	victim := r.order[0]
	r.removeLocked(victim)
	return victim, true
}

// Pin marks a frame as in-use: it is no longer a victim candidate.
func (r *LRUReplacer) Pin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// Unpin marks a frame as no longer in use. A frame already present is left
// where it is: repeated unpins do not bump recency.
func (r *LRUReplacer) Unpin(id FrameID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.present[id]; ok {
		return
	}
	if uint32(len(r.order)) >= r.capacity {
		return
	}
	r.present[id] = len(r.order)
	r.order = append(r.order, id)
}

// Size returns the number of frames currently eligible for eviction.
func (r *LRUReplacer) Size() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return uint32(len(r.order))
}

func (r *LRUReplacer) removeLocked(id FrameID) {
	idx, ok := r.present[id]
	if !ok {
		return
	}
	r.order = append(r.order[:idx], r.order[idx+1:]...)
	delete(r.present, id)
	for i := idx; i < len(r.order); i++ {
		r.present[r.order[i]] = i
	}
}
