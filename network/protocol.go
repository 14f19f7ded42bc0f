package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/strangeindustries/scrumpoker/room"
)

// Inbound event names.
const (
	MsgTypeJoinRoom          = "join-room"
	MsgTypeUpdateName        = "update-name"
	MsgTypeToggleScrumMaster = "toggle-scrum-master"
	MsgTypeCastVote          = "cast-vote"
	MsgTypeStartNewRound     = "start-new-round"
)

// MsgTypeError reports a rejected inbound frame to its sender.
const MsgTypeError = "error"

var (
	ErrMalformedFrame = errors.New("malformed frame")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Frame is the unit exchanged over the socket in both directions.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinRoomRequest struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
	Name   string `json:"name" validate:"max=64"`
}

type UpdateNameRequest struct {
	RoomID  string `json:"roomId" validate:"required,max=128"`
	NewName string `json:"newName" validate:"max=64"`
}

type ToggleScrumMasterRequest struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
}

type CastVoteRequest struct {
	RoomID string    `json:"roomId" validate:"required,max=128"`
	Vote   room.Vote `json:"vote" validate:"required,max=16"`
}

type StartNewRoundRequest struct {
	RoomID string `json:"roomId" validate:"required,max=128"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeFrame parses a raw socket message.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	if f.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	return &f, nil
}

// DecodePayload unmarshals the frame payload into v and validates it.
func DecodePayload(f *Frame, v any) error {
	if len(f.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidPayload, f.Type)
	}
	if err := json.Unmarshal(f.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, f.Type, err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPayload, f.Type, err)
	}
	return nil
}

// EncodeFrame serialises an outbound message.
func EncodeFrame(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return json.Marshal(Frame{Type: msgType, Payload: raw})
}
