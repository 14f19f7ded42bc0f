// room/manager.go
package room

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/strangeindustries/scrumpoker/logger"
	"github.com/strangeindustries/scrumpoker/names"
)

// Sink delivers room output to participants.
type Sink interface {
	Deliver(out []Outbound) error
}

// Manager owns every live room. Rooms are created on first join and removed
// when their last participant disconnects. Lock order is Room delivery, then
// Manager, then Room state; room operations never call back into the Manager.
type Manager struct {
	rooms           map[string]*Room
	mutex           sync.RWMutex
	maxParticipants int
	newName         func() string
	sink            Sink
}

type Option func(*Manager)

// WithMaxParticipants sets the per-room membership cap. Non-positive values
// are ignored.
func WithMaxParticipants(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxParticipants = n
		}
	}
}

// WithNameGenerator replaces the generator used for participants who join
// without a name.
func WithNameGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newName = fn
		}
	}
}

// WithSink makes every operation deliver its output through sink before the
// room accepts its next operation. Without a sink output is only returned.
func WithSink(sink Sink) Option {
	return func(m *Manager) {
		m.sink = sink
	}
}

// NewRoomManager creates an empty room registry.
func NewRoomManager(opts ...Option) *Manager {
	m := &Manager{
		rooms:           make(map[string]*Room),
		maxParticipants: DefaultMaxParticipants,
		newName:         names.Generate,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the room for id, creating it if needed.
func (m *Manager) GetOrCreate(id string) *Room {
	m.mutex.RLock()
	room, ok := m.rooms[id]
	m.mutex.RUnlock()
	if ok {
		return room
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if room, ok = m.rooms[id]; ok {
		return room
	}
	room = NewRoom(id, m.maxParticipants, m.newName)
	m.rooms[id] = room
	logger.Log.Infow("room created", "room", id)
	return room
}

// GetRoom returns the room for id if it exists.
func (m *Manager) GetRoom(id string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[id]
	return room, exists
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Summary describes a live room.
type Summary struct {
	ID              string `json:"id"`
	Participants    int    `json:"participants"`
	MaxParticipants int    `json:"maxParticipants"`
	RoundNumber     int    `json:"roundNumber"`
	Revealed        bool   `json:"revealed"`
}

// List summarises all live rooms ordered by id.
func (m *Manager) List() []Summary {
	out := lo.Map(m.snapshotRooms(), func(r *Room, _ int) Summary {
		s := r.Snapshot()
		return Summary{
			ID:              s.ID,
			Participants:    len(s.Participants),
			MaxParticipants: r.GetMaxParticipants(),
			RoundNumber:     s.RoundNumber,
			Revealed:        s.Revealed,
		}
	})
	slices.SortFunc(out, func(a, b Summary) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Join adds participant id to roomID, creating the room if needed.
func (m *Manager) Join(roomID string, id ParticipantID, name string) ([]Outbound, error) {
	for {
		room := m.GetOrCreate(roomID)
		room.deliverMu.Lock()
		out, err := room.Join(id, name)
		if errors.Is(err, errRoomClosed) {
			room.deliverMu.Unlock()
			// lost a race with teardown; the next lookup creates a fresh room
			continue
		}
		m.deliver(out)
		room.deliverMu.Unlock()
		return out, err
	}
}

// apply runs op on room and delivers its output before any other operation
// on the same room can run.
func (m *Manager) apply(room *Room, op func(r *Room) []Outbound) []Outbound {
	room.deliverMu.Lock()
	defer room.deliverMu.Unlock()

	out := op(room)
	m.deliver(out)
	return out
}

func (m *Manager) deliver(out []Outbound) {
	if m.sink == nil || len(out) == 0 {
		return
	}
	// the sink logs individual failures
	_ = m.sink.Deliver(out)
}

func (m *Manager) UpdateName(roomID string, id ParticipantID, newName string) []Outbound {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return nil
	}
	return m.apply(room, func(r *Room) []Outbound { return r.UpdateName(id, newName) })
}

func (m *Manager) ToggleScrumMaster(roomID string, id ParticipantID) []Outbound {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return nil
	}
	return m.apply(room, func(r *Room) []Outbound { return r.ToggleScrumMaster(id) })
}

func (m *Manager) CastVote(roomID string, id ParticipantID, value Vote) []Outbound {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return nil
	}
	out := m.apply(room, func(r *Room) []Outbound { return r.CastVote(id, value) })
	for _, o := range out {
		if o.Message.Type() == EventVotesRevealed {
			logger.Log.Infow("votes revealed", "room", roomID)
		}
	}
	return out
}

func (m *Manager) StartNewRound(roomID string) []Outbound {
	room, ok := m.GetRoom(roomID)
	if !ok {
		return nil
	}
	return m.apply(room, (*Room).StartNewRound)
}

// Disconnect removes id from every room it belongs to and tears down rooms
// left empty.
func (m *Manager) Disconnect(id ParticipantID) []Outbound {
	var out []Outbound
	for _, room := range m.snapshotRooms() {
		var left, empty bool
		msgs := m.apply(room, func(r *Room) (leaveOut []Outbound) {
			leaveOut, left, empty = r.Leave(id)
			return leaveOut
		})
		if !left {
			continue
		}
		out = append(out, msgs...)
		if empty {
			m.removeIfEmpty(room)
		}
	}
	return out
}

// removeIfEmpty deletes room from the registry if it is still empty once both
// locks are held. A participant may have joined in between.
func (m *Manager) removeIfEmpty(room *Room) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !room.closeIfEmpty() {
		return
	}
	if m.rooms[room.GetID()] == room {
		delete(m.rooms, room.GetID())
		logger.Log.Infow("room removed", "room", room.GetID())
	}
}

func (m *Manager) snapshotRooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return lo.Values(m.rooms)
}
