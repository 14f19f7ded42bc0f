package room

// Outbound event names.
const (
	EventRoomFull               = "room-full"
	EventJoinedRoom             = "joined-room"
	EventRoomState              = "room-state"
	EventParticipantJoined      = "participant-joined"
	EventParticipantUpdated     = "participant-updated"
	EventVoteCast               = "vote-cast"
	EventScrumMasterVotesUpdate = "scrum-master-votes-update"
	EventVotesRevealed          = "votes-revealed"
	EventNewRound               = "new-round"
	EventParticipantLeft        = "participant-left"
)

// Message is a payload emitted by a room operation.
type Message interface {
	Type() string
}

type RoomFull struct {
	RoomID string `json:"roomId"`
}

type JoinedRoom struct {
	ParticipantID ParticipantID `json:"participantId"`
	Name          string        `json:"name"`
	RoomID        string        `json:"roomId"`
}

// RoomState is the full snapshot a participant receives on joining. Votes is
// empty until the round is revealed.
type RoomState struct {
	Participants        []Participant               `json:"participants"`
	Votes               map[ParticipantID]NamedVote `json:"votes"`
	Revealed            bool                        `json:"revealed"`
	RoundNumber         int                         `json:"roundNumber"`
	VotedParticipantIDs []ParticipantID             `json:"votedParticipantIds"`
}

type ParticipantJoined struct {
	Participant  Participant   `json:"participant"`
	Participants []Participant `json:"participants"`
}

// ParticipantUpdated carries VotedParticipantIDs only when a role change may
// have discarded a vote.
type ParticipantUpdated struct {
	Participants        []Participant   `json:"participants"`
	VotedParticipantIDs []ParticipantID `json:"votedParticipantIds,omitzero"`
}

type VoteCast struct {
	ParticipantID       ParticipantID   `json:"participantId"`
	VotedParticipantIDs []ParticipantID `json:"votedParticipantIds"`
	TotalParticipants   int             `json:"totalParticipants"`
}

type ScrumMasterVotesUpdate struct {
	Votes map[ParticipantID]NamedVote `json:"votes"`
}

type VotesRevealed struct {
	Votes    map[ParticipantID]NamedVote `json:"votes"`
	Majority []Vote                      `json:"majority"`
}

type NewRound struct {
	RoundNumber int `json:"roundNumber"`
}

type ParticipantLeft struct {
	ParticipantID ParticipantID `json:"participantId"`
	Participants  []Participant `json:"participants"`
}

func (RoomFull) Type() string               { return EventRoomFull }
func (JoinedRoom) Type() string             { return EventJoinedRoom }
func (RoomState) Type() string              { return EventRoomState }
func (ParticipantJoined) Type() string      { return EventParticipantJoined }
func (ParticipantUpdated) Type() string     { return EventParticipantUpdated }
func (VoteCast) Type() string               { return EventVoteCast }
func (ScrumMasterVotesUpdate) Type() string { return EventScrumMasterVotesUpdate }
func (VotesRevealed) Type() string          { return EventVotesRevealed }
func (NewRound) Type() string               { return EventNewRound }
func (ParticipantLeft) Type() string        { return EventParticipantLeft }
