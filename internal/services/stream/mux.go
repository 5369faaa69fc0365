package stream

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSourceDown is returned by Subscribe after a fatal capture failure so
// new viewers fail fast instead of hanging on a dead feed.
var ErrSourceDown = errors.New("stream: video source unavailable")

// Session is the per-viewer state: an identifier and a cursor over the
// bus sequence. The cursor is only touched by that viewer's delivery
// goroutine, so it needs no locking.
type Session struct {
	ID      string
	lastSeq uint64
}

// Mux hands out viewer sessions over a shared Bus. Each connected viewer
// runs its own delivery goroutine that polls Next at the target output
// rate; a lagging viewer only misses frames, it never queues them.
type Mux struct {
	bus *Bus

	mu         sync.Mutex
	sessions   map[string]*Session
	sourceDown bool
}

// NewMux creates a multiplexer over the given bus.
func NewMux(bus *Bus) *Mux {
	return &Mux{
		bus:      bus,
		sessions: make(map[string]*Session),
	}
}

// Subscribe registers a new viewer. It fails with ErrSourceDown once the
// capture session has terminated fatally.
func (m *Mux) Subscribe() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sourceDown {
		return nil, ErrSourceDown
	}
	session := &Session{ID: uuid.NewString()}
	m.sessions[session.ID] = session
	return session, nil
}

// Unsubscribe removes a viewer session. Safe to call more than once.
func (m *Mux) Unsubscribe(session *Session) {
	if session == nil {
		return
	}
	m.mu.Lock()
	delete(m.sessions, session.ID)
	m.mu.Unlock()
}

// Next returns the latest frame if the session has not seen it yet and
// advances the cursor. Sequence numbers handed to one session are
// strictly increasing.
func (m *Mux) Next(session *Session) (Frame, bool) {
	frame, ok := m.bus.Latest()
	if !ok || frame.Seq <= session.lastSeq {
		return Frame{}, false
	}
	session.lastSeq = frame.Seq
	return frame, true
}

// MarkSourceDown makes future Subscribe calls fail fast. Existing
// sessions keep serving the last published frame until they disconnect.
func (m *Mux) MarkSourceDown() {
	m.mu.Lock()
	m.sourceDown = true
	m.mu.Unlock()
}

// SourceDown reports whether the capture session has terminated.
func (m *Mux) SourceDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sourceDown
}

// ViewerCount returns the number of active sessions.
func (m *Mux) ViewerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
