// room/room.go
package room

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/strangeindustries/scrumpoker/majority"
)

// DefaultMaxParticipants caps room membership unless configured otherwise.
const DefaultMaxParticipants = 12

var (
	// ErrRoomFull is returned by Join when the room is at capacity. The
	// accompanying outbound tells the joiner; room state is untouched.
	ErrRoomFull = errors.New("room is full")

	// errRoomClosed means the room was torn down after the caller looked it
	// up. Manager.Join retries against a fresh room.
	errRoomClosed = errors.New("room closed")
)

// Room is one voting session. Every exported operation holds the room lock
// across its whole read-modify-emit sequence and returns the messages the
// transport must deliver; the room itself performs no I/O.
type Room struct {
	id              string
	maxParticipants int
	newName         func() string

	// deliverMu is held by Manager across an operation and the delivery of
	// its output, so batches leave the room in emission order. Taken
	// before mu.
	deliverMu sync.Mutex

	mu           sync.Mutex
	participants map[ParticipantID]*Participant
	order        []ParticipantID
	votes        map[ParticipantID]Vote
	revealed     bool
	roundNumber  int
	closed       bool
}

// NewRoom returns an empty room in round 1. newName supplies display names
// for participants who join without one.
func NewRoom(id string, maxParticipants int, newName func() string) *Room {
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxParticipants
	}
	return &Room{
		id:              id,
		maxParticipants: maxParticipants,
		newName:         newName,
		participants:    make(map[ParticipantID]*Participant),
		votes:           make(map[ParticipantID]Vote),
		roundNumber:     1,
	}
}

// GetID returns the room identifier.
func (r *Room) GetID() string {
	return r.id
}

// GetMaxParticipants returns the membership cap.
func (r *Room) GetMaxParticipants() int {
	return r.maxParticipants
}

// Join adds a participant. At capacity it returns ErrRoomFull together with
// a room-full message addressed to the joiner.
func (r *Room) Join(id ParticipantID, requestedName string) ([]Outbound, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, errRoomClosed
	}

	if p, exists := r.participants[id]; exists {
		return []Outbound{
			r.toParticipant(id, JoinedRoom{ParticipantID: id, Name: p.Name, RoomID: r.id}),
			r.toParticipant(id, r.stateLocked()),
		}, nil
	}

	if len(r.participants) >= r.maxParticipants {
		return []Outbound{r.toParticipant(id, RoomFull{RoomID: r.id})}, ErrRoomFull
	}

	name := requestedName
	if name == "" {
		name = r.newName()
	}

	p := &Participant{ID: id, Name: name}
	r.participants[id] = p
	r.order = append(r.order, id)

	return []Outbound{
		r.toParticipant(id, JoinedRoom{ParticipantID: id, Name: name, RoomID: r.id}),
		r.toParticipant(id, r.stateLocked()),
		r.roomWide(ParticipantJoined{Participant: *p, Participants: r.participantsLocked()}),
	}, nil
}

// UpdateName renames a participant. Unknown participants are ignored.
func (r *Room) UpdateName(id ParticipantID, newName string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return nil
	}
	p.Name = newName

	return []Outbound{r.roomWide(ParticipantUpdated{Participants: r.participantsLocked()})}
}

// ToggleScrumMaster flips the participant's scrum-master flag. Becoming a
// scrum-master discards any vote the participant had cast this round.
func (r *Room) ToggleScrumMaster(id ParticipantID) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok {
		return nil
	}
	p.IsScrumMaster = !p.IsScrumMaster
	if p.IsScrumMaster {
		delete(r.votes, id)
	}

	return []Outbound{r.roomWide(ParticipantUpdated{
		Participants:        r.participantsLocked(),
		VotedParticipantIDs: r.votedLocked(),
	})}
}

// CastVote records a vote for the current round. Scrum-masters and unknown
// participants cannot vote. When every eligible voter has voted the round is
// revealed to the whole room.
func (r *Room) CastVote(id ParticipantID, value Vote) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[id]
	if !ok || p.IsScrumMaster {
		return nil
	}
	r.votes[id] = value

	out := []Outbound{r.roomWide(VoteCast{
		ParticipantID:       id,
		VotedParticipantIDs: r.votedLocked(),
		TotalParticipants:   len(r.participants),
	})}

	if sm := r.recipientsLocked(RoleScrumMaster); len(sm) > 0 {
		out = append(out, Outbound{
			RoomID:     r.id,
			Scope:      ToRole(RoleScrumMaster),
			Recipients: sm,
			Message:    ScrumMasterVotesUpdate{Votes: r.namedVotesLocked()},
		})
	}

	eligible := len(r.recipientsLocked(RoleVoter))
	if eligible > 0 && len(r.votes) == eligible {
		r.revealed = true
		out = append(out, r.roomWide(VotesRevealed{
			Votes:    r.namedVotesLocked(),
			Majority: majority.ResolveFunc(lo.Values(r.votes), CompareVotes),
		}))
	}
	return out
}

// StartNewRound discards all votes, hides results and advances the round
// counter. It may be called at any time.
func (r *Room) StartNewRound() []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.votes)
	r.revealed = false
	r.roundNumber++

	return []Outbound{r.roomWide(NewRound{RoundNumber: r.roundNumber})}
}

// Leave removes a participant and their vote. left reports whether the
// participant was a member; empty reports whether the room has no members.
func (r *Room) Leave(id ParticipantID) (out []Outbound, left, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.participants[id]; !ok {
		return nil, false, len(r.participants) == 0
	}
	delete(r.participants, id)
	delete(r.votes, id)
	r.order = lo.Without(r.order, id)

	out = []Outbound{r.roomWide(ParticipantLeft{ParticipantID: id, Participants: r.participantsLocked()})}
	return out, true, len(r.participants) == 0
}

// Snapshot is a point-in-time copy of a room's state.
type Snapshot struct {
	ID           string
	Participants []Participant
	Votes        map[ParticipantID]Vote
	Revealed     bool
	RoundNumber  int
}

func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		ID:           r.id,
		Participants: r.participantsLocked(),
		Votes:        maps.Clone(r.votes),
		Revealed:     r.revealed,
		RoundNumber:  r.roundNumber,
	}
}

// ParticipantCount returns the number of members.
func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.participants)
}

// closeIfEmpty marks an empty room closed so late joiners go elsewhere.
func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.participants) > 0 || r.closed {
		return false
	}
	r.closed = true
	return true
}

// --- helpers, all called with r.mu held ---

func (r *Room) participantsLocked() []Participant {
	return lo.Map(r.order, func(id ParticipantID, _ int) Participant {
		return *r.participants[id]
	})
}

// votedLocked lists voters in join order.
func (r *Room) votedLocked() []ParticipantID {
	return lo.Filter(r.order, func(id ParticipantID, _ int) bool {
		_, voted := r.votes[id]
		return voted
	})
}

func (r *Room) namedVotesLocked() map[ParticipantID]NamedVote {
	named := make(map[ParticipantID]NamedVote, len(r.votes))
	for id, v := range r.votes {
		named[id] = NamedVote{Vote: v, Name: r.participants[id].Name}
	}
	return named
}

func (r *Room) recipientsLocked(role Role) []ParticipantID {
	return lo.Filter(r.order, func(id ParticipantID, _ int) bool {
		return r.participants[id].Role() == role
	})
}

func (r *Room) stateLocked() RoomState {
	votes := map[ParticipantID]NamedVote{}
	if r.revealed {
		votes = r.namedVotesLocked()
	}
	return RoomState{
		Participants:        r.participantsLocked(),
		Votes:               votes,
		Revealed:            r.revealed,
		RoundNumber:         r.roundNumber,
		VotedParticipantIDs: r.votedLocked(),
	}
}

func (r *Room) roomWide(msg Message) Outbound {
	return Outbound{RoomID: r.id, Scope: RoomWide(), Recipients: slices.Clone(r.order), Message: msg}
}

func (r *Room) toParticipant(id ParticipantID, msg Message) Outbound {
	return Outbound{RoomID: r.id, Scope: ToParticipant(id), Recipients: []ParticipantID{id}, Message: msg}
}
