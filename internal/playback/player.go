/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playback

import (
	"context"
	"fmt"
	"sync"
)

// State is one of the Player's cooperative states.
type State string

const (
	Stopped   State = "Stopped"
	Playing   State = "Playing"
	Paused    State = "Paused"
	Completed State = "Completed"
)

// validTransitions is the table of allowed playback state transitions.
var validTransitions = map[State][]State{
	Stopped:   {Playing},
	Playing:   {Paused, Stopped, Completed},
	Paused:    {Playing, Stopped},
	Completed: {Stopped},
}

func isValidTransition(from, to State) bool {
	for _, candidate := range validTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AudioFileError reports a missing or unreadable audio file; it never
// crashes the player, only fires an onError event.
type AudioFileError struct {
	Path string
	Err  error
}

func (e *AudioFileError) Error() string {
	return fmt.Sprintf("playback: audio file %q: %v", e.Path, e.Err)
}

func (e *AudioFileError) Unwrap() error { return e.Err }

// EventKind distinguishes the two callback events the Player fires.
type EventKind string

const (
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// Event is delivered on Player.Events() — never a blocking call from the
// caller's perspective, honored via a buffered channel.
type Event struct {
	Kind EventKind
	Item Item
	Err  error
}

// Handle is what a Backend returns for one in-flight playback.
type Handle interface {
	Pause() error
	Resume() error
	Stop() error
	// Done reports playback's outcome exactly once: nil for a natural
	// end, non-nil for a failure mid-playback.
	Done() <-chan error
}

// Backend launches playback of a file. The default implementation execs
// an external player process (process.go); FakeBackend is used by tests.
type Backend interface {
	Launch(ctx context.Context, filePath string) (Handle, error)
}

const eventBufferSize = 16

// Player is the cooperative playback state machine. It is safe to call
// from one goroutine at a time with respect to play/pause/resume/stop;
// Events() delivery is always non-blocking on the firing side.
type Player struct {
	backend Backend

	mu      sync.Mutex
	state   State
	current Item
	handle  Handle
	fired   bool // whether Done() has already produced a callback for the current handle

	events chan Event
}

// NewPlayer constructs a Stopped Player backed by backend.
func NewPlayer(backend Backend) *Player {
	return &Player{backend: backend, state: Stopped, events: make(chan Event, eventBufferSize)}
}

// Events returns the channel completion and error notifications are
// delivered on: a launch failure in Play, or the natural end or failure
// of the current item. Pause, Resume and Stop deliver nothing.
func (p *Player) Events() <-chan Event {
	return p.events
}

// State reports the player's current state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Play starts item. Any non-Stopped state is implicitly stopped first.
func (p *Player) Play(ctx context.Context, item Item) error {
	p.mu.Lock()
	if p.state != Stopped {
		p.stopLocked()
	}
	p.mu.Unlock()

	handle, err := p.backend.Launch(ctx, item.FilePath)
	if err != nil {
		p.emit(Event{Kind: EventError, Item: item, Err: &AudioFileError{Path: item.FilePath, Err: err}})
		p.mu.Lock()
		p.state = Stopped
		p.mu.Unlock()
		return nil
	}

	p.mu.Lock()
	if !isValidTransition(p.state, Playing) {
		p.mu.Unlock()
		return fmt.Errorf("playback: invalid transition %s -> %s", p.state, Playing)
	}
	p.state = Playing
	p.current = item
	p.handle = handle
	p.fired = false
	p.mu.Unlock()

	go p.watch(item, handle)
	return nil
}

// watch waits for handle's natural end or failure and fires the
// corresponding event at most once.
func (p *Player) watch(item Item, handle Handle) {
	err := <-handle.Done()

	p.mu.Lock()
	if p.handle != handle || p.fired {
		// Superseded by a later Play() or Stop(); drop this notification.
		p.mu.Unlock()
		return
	}
	p.fired = true

	if err != nil {
		p.state = Stopped
		p.mu.Unlock()
		p.emit(Event{Kind: EventError, Item: item, Err: &AudioFileError{Path: item.FilePath, Err: err}})
		return
	}

	p.state = Completed
	p.mu.Unlock()
	p.emit(Event{Kind: EventComplete, Item: item})

	p.mu.Lock()
	if p.state == Completed {
		p.state = Stopped
	}
	p.mu.Unlock()
}

// Pause pauses a Playing player; a no-op transition error otherwise.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !isValidTransition(p.state, Paused) {
		return fmt.Errorf("playback: invalid transition %s -> %s", p.state, Paused)
	}
	if err := p.handle.Pause(); err != nil {
		return err
	}
	p.state = Paused
	return nil
}

// Resume resumes a Paused player.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !isValidTransition(p.state, Playing) {
		return fmt.Errorf("playback: invalid transition %s -> %s", p.state, Playing)
	}
	if err := p.handle.Resume(); err != nil {
		return err
	}
	p.state = Playing
	return nil
}

// Stop stops playback from any state for which Stopped is a valid
// transition, releasing the current handle.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	if p.state == Stopped {
		return nil
	}
	if !isValidTransition(p.state, Stopped) {
		return fmt.Errorf("playback: invalid transition %s -> %s", p.state, Stopped)
	}
	if p.handle != nil {
		_ = p.handle.Stop()
	}
	p.fired = true // suppress a stale watch() notification from this handle
	p.state = Stopped
	return nil
}

func (p *Player) emit(e Event) {
	select {
	case p.events <- e:
	default:
		// Events is sized generously; a full buffer means the consumer
		// has stopped reading, which is the consumer's problem to fix,
		// not a reason to block the playback watcher goroutine.
	}
}
