// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"fmt"

	"github.com/strangeindustries/scrumpoker/logger"
	"github.com/strangeindustries/scrumpoker/network"
	"github.com/strangeindustries/scrumpoker/room"
	"github.com/strangeindustries/scrumpoker/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
)

// 广播接口
type Broadcaster interface {
	BroadcastToRoom(roomID string, recipients []room.ParticipantID, data []byte) error
	SendToParticipant(id room.ParticipantID, data []byte) error
	Deliver(out []room.Outbound) error
}

// RoomBroadcaster delivers room output through the session manager.
type RoomBroadcaster struct {
	sessionManager *session.Manager
}

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
	}
}

// BroadcastToRoom sends data to every recipient. A failed send does not stop
// delivery to the others; all failures are returned joined.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, recipients []room.ParticipantID, data []byte) error {
	var errs []error
	for _, id := range recipients {
		if err := b.SendToParticipant(id, data); err != nil {
			errs = append(errs, fmt.Errorf("room %s: %w", roomID, err))
		}
	}
	return errors.Join(errs...)
}

func (b *RoomBroadcaster) SendToParticipant(id room.ParticipantID, data []byte) error {
	s, ok := b.sessionManager.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err := s.Send(data); err != nil {
		return fmt.Errorf("send to %s: %w", id, err)
	}
	return nil
}

// Deliver encodes each outbound once and sends it to its resolved recipients.
func (b *RoomBroadcaster) Deliver(out []room.Outbound) error {
	var errs []error
	for _, o := range out {
		data, err := network.EncodeFrame(o.Message.Type(), o.Message)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		switch o.Scope.Kind {
		case room.ScopeParticipant:
			err = b.SendToParticipant(o.Scope.Participant, data)
		default:
			err = b.BroadcastToRoom(o.RoomID, o.Recipients, data)
		}
		if err != nil {
			logger.Log.Warnw("delivery failed", "room", o.RoomID, "event", o.Message.Type(), "scope", o.Scope.Kind.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
