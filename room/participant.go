package room

// ParticipantID is minted by the transport, one per connection. The room
// treats it as an opaque token.
type ParticipantID string

// Role selects a subset of a room's participants for delivery.
type Role int

const (
	RoleVoter Role = iota
	RoleScrumMaster
)

func (r Role) String() string {
	switch r {
	case RoleVoter:
		return "voter"
	case RoleScrumMaster:
		return "scrum-master"
	default:
		return "unknown"
	}
}

type Participant struct {
	ID            ParticipantID `json:"id"`
	Name          string        `json:"name"`
	IsScrumMaster bool          `json:"isScrumMaster"`
}

func (p Participant) Role() Role {
	if p.IsScrumMaster {
		return RoleScrumMaster
	}
	return RoleVoter
}

// NamedVote pairs a cast vote with the voter's current display name.
type NamedVote struct {
	Vote Vote   `json:"vote"`
	Name string `json:"name"`
}
