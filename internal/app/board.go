package app

import (
	"sync"

	"chess-story-service/internal/domain"
)

// MoveEngine is the external chess-rules collaborator. The core only asks it
// for the position after a move, for board display; legality is never judged
// here.
type MoveEngine interface {
	PositionAfter(position, move string) (string, error)
}

// BoardState is the observable display state of the chessboard: the position
// shown, the selected square, and whether pieces respond to input.
type BoardState struct {
	mu          sync.RWMutex
	position    string
	selected    string
	interactive bool
	subscribers map[chan domain.BoardSnapshot]struct{}
}

func NewBoardState() *BoardState {
	return &BoardState{
		position:    domain.StartingPositionFEN,
		subscribers: make(map[chan domain.BoardSnapshot]struct{}),
	}
}

// SetPosition replaces the displayed position.
func (b *BoardState) SetPosition(position string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.position = position
	b.broadcastLocked()
}

// SetInteractive toggles whether pieces respond to input.
func (b *BoardState) SetInteractive(interactive bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.interactive = interactive
	b.broadcastLocked()
}

// SetSelectedSquare records the highlighted square; empty clears it.
func (b *BoardState) SetSelectedSquare(square string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = square
	b.broadcastLocked()
}

// Snapshot returns the current board view.
func (b *BoardState) Snapshot() domain.BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked()
}

// Subscribe registers an observer. The channel immediately receives the
// current snapshot; the caller must invoke cancel to avoid leaks.
func (b *BoardState) Subscribe() (<-chan domain.BoardSnapshot, func()) {
	ch := make(chan domain.BoardSnapshot, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *BoardState) broadcastLocked() {
	snapshot := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func (b *BoardState) snapshotLocked() domain.BoardSnapshot {
	return domain.BoardSnapshot{
		Position:       b.position,
		SelectedSquare: b.selected,
		Interactive:    b.interactive,
	}
}
