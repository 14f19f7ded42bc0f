package network

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strangeindustries/scrumpoker/room"
)

func TestDecodeFrame(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"type":"cast-vote","payload":{"roomId":"R1","vote":5}}`))
	require.NoError(t, err)
	assert.Equal(t, MsgTypeCastVote, f.Type)

	var req CastVoteRequest
	require.NoError(t, DecodePayload(f, &req))
	assert.Equal(t, CastVoteRequest{RoomID: "R1", Vote: room.Vote("5")}, req)
}

func TestDecodeFrame_Malformed(t *testing.T) {
	for _, in := range []string{`not json`, `{"payload":{}}`, `[]`} {
		_, err := DecodeFrame([]byte(in))
		assert.ErrorIs(t, err, ErrMalformedFrame, in)
	}
}

func TestDecodePayload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		target  any
		wantErr bool
	}{
		{name: "join with name", frame: `{"type":"join-room","payload":{"roomId":"R1","name":"Alice"}}`, target: &JoinRoomRequest{}},
		{name: "join without name", frame: `{"type":"join-room","payload":{"roomId":"R1"}}`, target: &JoinRoomRequest{}},
		{name: "join without room", frame: `{"type":"join-room","payload":{"name":"Alice"}}`, target: &JoinRoomRequest{}, wantErr: true},
		{name: "no payload", frame: `{"type":"start-new-round"}`, target: &StartNewRoundRequest{}, wantErr: true},
		{name: "empty new name", frame: `{"type":"update-name","payload":{"roomId":"R1","newName":""}}`, target: &UpdateNameRequest{}},
		{name: "new name too long", frame: `{"type":"update-name","payload":{"roomId":"R1","newName":"` + strings.Repeat("x", 65) + `"}}`, target: &UpdateNameRequest{}, wantErr: true},
		{name: "vote missing", frame: `{"type":"cast-vote","payload":{"roomId":"R1"}}`, target: &CastVoteRequest{}, wantErr: true},
		{name: "vote null", frame: `{"type":"cast-vote","payload":{"roomId":"R1","vote":null}}`, target: &CastVoteRequest{}, wantErr: true},
		{name: "vote object", frame: `{"type":"cast-vote","payload":{"roomId":"R1","vote":{}}}`, target: &CastVoteRequest{}, wantErr: true},
		{name: "vote label", frame: `{"type":"cast-vote","payload":{"roomId":"R1","vote":"?"}}`, target: &CastVoteRequest{}},
		{name: "toggle", frame: `{"type":"toggle-scrum-master","payload":{"roomId":"R1"}}`, target: &ToggleScrumMasterRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(tt.frame))
			require.NoError(t, err)

			err = DecodePayload(f, tt.target)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEncodeFrame(t *testing.T) {
	data, err := EncodeFrame(room.EventNewRound, room.NewRound{RoundNumber: 3})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"new-round","payload":{"roundNumber":3}}`, string(data))

	data, err = EncodeFrame(room.EventVotesRevealed, room.VotesRevealed{
		Votes:    map[room.ParticipantID]room.NamedVote{"p1": {Vote: "5", Name: "Alice"}},
		Majority: []room.Vote{"5"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"votes-revealed","payload":{"votes":{"p1":{"vote":5,"name":"Alice"}},"majority":[5]}}`, string(data))

	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	assert.Equal(t, room.EventVotesRevealed, f.Type)
}

func TestEncodeFrame_ParticipantUpdatedOptionalVoters(t *testing.T) {
	data, err := EncodeFrame(room.EventParticipantUpdated, room.ParticipantUpdated{Participants: []room.Participant{}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"participant-updated","payload":{"participants":[]}}`, string(data))

	data, err = EncodeFrame(room.EventParticipantUpdated, room.ParticipantUpdated{
		Participants:        []room.Participant{},
		VotedParticipantIDs: []room.ParticipantID{},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"participant-updated","payload":{"participants":[],"votedParticipantIds":[]}}`, string(data))
}
