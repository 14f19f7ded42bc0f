package session

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/strangeindustries/scrumpoker/mocks"
	"github.com/strangeindustries/scrumpoker/room"
)

func TestNewManager(t *testing.T) {
	manager := NewManager()
	require.NotNil(t, manager)
	require.NotNil(t, manager.sessions)
	assert.Equal(t, 0, manager.Count())
}

func TestManager_Add_Get_Remove(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := NewManager()
	sess := NewSession("test_session_1", mocks.NewMockConnection(ctrl))

	manager.Add(sess)
	assert.Equal(t, 1, manager.Count())

	got, exists := manager.Get("test_session_1")
	require.True(t, exists)
	assert.Same(t, sess, got)

	manager.Remove("test_session_1")
	assert.Equal(t, 0, manager.Count())
	_, exists = manager.Get("test_session_1")
	assert.False(t, exists)
}

func TestSession_SendDelegatesToConnection(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := mocks.NewMockConnection(ctrl)
	sess := NewSession("s1", conn)

	conn.EXPECT().Send([]byte("hello")).Return(nil)
	conn.EXPECT().Send([]byte("boom")).Return(errors.New("broken pipe"))

	assert.NoError(t, sess.Send([]byte("hello")))
	assert.Error(t, sess.Send([]byte("boom")))
}

func TestSession_Touch(t *testing.T) {
	ctrl := gomock.NewController(t)
	sess := NewSession("s1", mocks.NewMockConnection(ctrl))
	before := sess.LastActive()

	time.Sleep(2 * time.Millisecond)
	sess.Touch()
	assert.True(t, sess.LastActive().After(before))
}

func TestManager_CloseAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := NewManager()
	for _, id := range []string{"a", "b", "c"} {
		conn := mocks.NewMockConnection(ctrl)
		conn.EXPECT().Close().Return(nil).Times(1)
		manager.Add(NewSession(room.ParticipantID(id), conn))
	}

	manager.CloseAll()
}

func TestManager_CloseIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	manager := NewManager()

	idleConn := mocks.NewMockConnection(ctrl)
	idleConn.EXPECT().Close().Return(nil).Times(1)
	idle := NewSession("idle", idleConn)
	manager.Add(idle)

	time.Sleep(2 * time.Millisecond)
	cutoff := time.Now()
	time.Sleep(2 * time.Millisecond)

	// no Close expected on the active session
	active := NewSession("active", mocks.NewMockConnection(ctrl))
	manager.Add(active)

	assert.Equal(t, 1, manager.CloseIdle(cutoff))

	idle.Touch()
	assert.Equal(t, 0, manager.CloseIdle(cutoff))
}
