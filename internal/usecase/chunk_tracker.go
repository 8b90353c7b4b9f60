package usecase

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// chunkTracker assembles an ordered transcript from an unordered stream of
// per-chunk results and detects when assembly is complete. Chunk numbers are
// 1-based and assigned by the capture backend.
type chunkTracker struct {
	mu          sync.Mutex
	results     map[int]string
	maxChunk    int
	streamEnded bool
}

func newChunkTracker() *chunkTracker {
	return &chunkTracker{results: make(map[int]string)}
}

// RecordResult stores the transcribed text for a chunk. A chunk resolves
// exactly once; a second write for the same number is ignored.
func (t *chunkTracker) RecordResult(chunkNum int, text string) {
	t.store(chunkNum, text)
}

// RecordFailure stores a synthesized placeholder so a failed chunk degrades
// the output instead of blocking assembly.
func (t *chunkTracker) RecordFailure(chunkNum int, message string) {
	t.store(chunkNum, fmt.Sprintf("[chunk %d: error - %s]", chunkNum, message))
}

func (t *chunkTracker) store(chunkNum int, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.results[chunkNum]; exists {
		return
	}
	t.results[chunkNum] = text
	if chunkNum > t.maxChunk {
		t.maxChunk = chunkNum
	}
}

// MarkStreamEnded signals that no further chunks will arrive.
func (t *chunkTracker) MarkStreamEnded() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.streamEnded = true
}

// IsComplete reports whether the stream has ended and every sequence number
// from 1 up to the maximum recorded one has a stored result. A gap blocks
// completion for the session; that is a delivery bug to surface, not bypass.
func (t *chunkTracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.streamEnded {
		return false
	}
	for n := 1; n <= t.maxChunk; n++ {
		if _, ok := t.results[n]; !ok {
			return false
		}
	}
	return true
}

// Assemble concatenates stored results in ascending chunk order, joined by a
// blank line. If assembly is forced despite a gap, the gap is substituted
// with a missing-chunk marker.
func (t *chunkTracker) Assemble() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	parts := make([]string, 0, t.maxChunk)
	for n := 1; n <= t.maxChunk; n++ {
		text, ok := t.results[n]
		if !ok {
			text = fmt.Sprintf("[chunk %d: missing]", n)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// Count returns how many chunks have a stored result.
func (t *chunkTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results)
}

// Missing lists chunk numbers with no stored result, ascending.
func (t *chunkTracker) Missing() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	var missing []int
	for n := 1; n <= t.maxChunk; n++ {
		if _, ok := t.results[n]; !ok {
			missing = append(missing, n)
		}
	}
	sort.Ints(missing)
	return missing
}

// Reset clears all state for reuse by the next session.
func (t *chunkTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = make(map[int]string)
	t.maxChunk = 0
	t.streamEnded = false
}
