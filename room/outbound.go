package room

// ScopeKind says who an outbound message is addressed to.
type ScopeKind int

const (
	ScopeRoom ScopeKind = iota
	ScopeParticipant
	ScopeRole
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeRoom:
		return "room"
	case ScopeParticipant:
		return "participant"
	case ScopeRole:
		return "role"
	default:
		return "unknown"
	}
}

type Scope struct {
	Kind        ScopeKind
	Participant ParticipantID // ScopeParticipant only
	Role        Role          // ScopeRole only
}

func RoomWide() Scope                      { return Scope{Kind: ScopeRoom} }
func ToParticipant(id ParticipantID) Scope { return Scope{Kind: ScopeParticipant, Participant: id} }
func ToRole(role Role) Scope               { return Scope{Kind: ScopeRole, Role: role} }

// Outbound is one message produced by a room operation. Recipients is the
// scope resolved against the room's membership at the moment the message was
// produced, so delivery never has to look at room state again.
type Outbound struct {
	RoomID     string
	Scope      Scope
	Recipients []ParticipantID
	Message    Message
}
