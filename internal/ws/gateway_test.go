package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

type fakeTranscript struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeTranscript) Append(roomID int, username string, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, username+": "+body)
}

func newTestGateway(roomRepo *mocks.RoomRepositoryMock, msgRepo *mocks.MessageRepositoryMock, access *mocks.AccessCheckerMock) (*Gateway, *Hub) {
	hub := NewHub()
	return NewGateway(hub, roomRepo, msgRepo, access, nil), hub
}

func receiveMessages(t *testing.T, conn *fakeConn) []Event {
	t.Helper()
	var out []Event
	for _, ev := range conn.events(t) {
		if ev.Type == EventReceiveMessage {
			out = append(out, ev)
		}
	}
	return out
}

func errorEvents(t *testing.T, conn *fakeConn) []Event {
	t.Helper()
	var out []Event
	for _, ev := range conn.events(t) {
		if ev.Type == EventError {
			out = append(out, ev)
		}
	}
	return out
}

func TestJoinBroadcastsToEveryMemberIncludingJoiner(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, _ := newTestGateway(roomRepo, new(mocks.MessageRepositoryMock), access)

	room := models.Room{ID: 5, Name: "general", OwnerID: 9}
	roomRepo.On("GetRoom", mock.Anything, 5).Return(room, nil).Twice()
	access.On("CanAccess", mock.Anything, room, mock.Anything).Return(true, nil).Twice()

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob"}, 5)
	bob.reset()

	alice := &fakeConn{}
	gateway.Join(context.Background(), alice, ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}, 5)

	bobEvents := receiveMessages(t, bob)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "Alice has joined the chat.", bobEvents[0].Message)
	assert.Equal(t, "#999999", bobEvents[0].Color)

	aliceEvents := receiveMessages(t, alice)
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, "Alice has joined the chat.", aliceEvents[0].Message)

	roomRepo.AssertExpectations(t)
	access.AssertExpectations(t)
}

func TestJoinUnknownRoomRejectsWithoutRegistration(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, hub := newTestGateway(roomRepo, new(mocks.MessageRepositoryMock), access)

	roomRepo.On("GetRoom", mock.Anything, 42).Return(models.Room{}, repositories.ErrRoomNotFound).Once()

	conn := &fakeConn{}
	gateway.Join(context.Background(), conn, ConnInfo{ConnID: "c1", UserID: 1, Username: "Alice"}, 42)

	rejections := errorEvents(t, conn)
	require.Len(t, rejections, 1)
	assert.Equal(t, CodeRoomNotFound, rejections[0].Code)

	_, joined := hub.Lookup("c1")
	assert.False(t, joined, "failed join must not register the connection")
	roomRepo.AssertExpectations(t)
}

func TestJoinInvitationOnlyRequiresAuthorization(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, hub := newTestGateway(roomRepo, new(mocks.MessageRepositoryMock), access)

	room := models.Room{ID: 7, Name: "private", OwnerID: 9, InvitationOnly: true}
	roomRepo.On("GetRoom", mock.Anything, 7).Return(room, nil).Once()
	access.On("CanAccess", mock.Anything, room, 1).Return(false, nil).Once()

	conn := &fakeConn{}
	gateway.Join(context.Background(), conn, ConnInfo{ConnID: "c1", UserID: 1, Username: "Alice"}, 7)

	rejections := errorEvents(t, conn)
	require.Len(t, rejections, 1)
	assert.Equal(t, CodeUnauthorized, rejections[0].Code)

	_, joined := hub.Lookup("c1")
	assert.False(t, joined)
	access.AssertExpectations(t)
}

func TestJoinSwitchingRoomsAnnouncesLeaveToOldRoom(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, hub := newTestGateway(roomRepo, new(mocks.MessageRepositoryMock), access)

	room1 := models.Room{ID: 1, Name: "one"}
	room2 := models.Room{ID: 2, Name: "two"}
	roomRepo.On("GetRoom", mock.Anything, 1).Return(room1, nil).Twice()
	roomRepo.On("GetRoom", mock.Anything, 2).Return(room2, nil).Once()
	access.On("CanAccess", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob"}, 1)

	alice := &fakeConn{}
	gateway.Join(context.Background(), alice, ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}, 1)
	bob.reset()

	gateway.Join(context.Background(), alice, ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}, 2)

	bobEvents := receiveMessages(t, bob)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "Alice has left the chat.", bobEvents[0].Message)

	entry, joined := hub.Lookup("alice")
	require.True(t, joined)
	assert.Equal(t, 2, entry.RoomID)
	assert.Equal(t, 1, hub.RoomCounts()[1])
	assert.Equal(t, 1, hub.RoomCounts()[2])
}

func TestSendMessagePersistsBeforeBroadcast(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	hub := NewHub()
	transcript := &fakeTranscript{}
	gateway := NewGateway(hub, roomRepo, msgRepo, access, transcript)

	room := models.Room{ID: 1, Name: "general"}
	roomRepo.On("GetRoom", mock.Anything, 1).Return(room, nil).Twice()
	access.On("CanAccess", mock.Anything, room, mock.Anything).Return(true, nil).Twice()

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob", Color: "#00ff00"}, 1)
	alice := &fakeConn{}
	aliceInfo := ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice", Color: "#3366ff"}
	gateway.Join(context.Background(), alice, aliceInfo, 1)
	bob.reset()
	alice.reset()

	created := time.Date(2024, 5, 12, 10, 0, 0, 0, time.UTC)
	stored := models.Message{ID: 3, RoomID: 1, SenderID: 1, Body: "hi", CreatedAt: created}
	msgRepo.On("AppendMessage", mock.Anything, 1, 1, "hi").Return(stored, nil).Once()

	gateway.SendMessage(context.Background(), alice, aliceInfo, "hi")

	bobEvents := receiveMessages(t, bob)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "hi", bobEvents[0].Message)
	assert.Equal(t, "Alice", bobEvents[0].Username)
	assert.Equal(t, "#3366ff", bobEvents[0].Color)
	assert.Equal(t, "2024-05-12 10:00:00", bobEvents[0].Timestamp)

	require.Len(t, receiveMessages(t, alice), 1, "sender receives its own message too")
	assert.Equal(t, []string{"Alice: hi"}, transcript.lines)
	msgRepo.AssertExpectations(t)
}

func TestSendMessageRequiresJoin(t *testing.T) {
	msgRepo := new(mocks.MessageRepositoryMock)
	gateway, _ := newTestGateway(new(mocks.RoomRepositoryMock), msgRepo, new(mocks.AccessCheckerMock))

	conn := &fakeConn{}
	gateway.SendMessage(context.Background(), conn, ConnInfo{ConnID: "c1", UserID: 1, Username: "Alice"}, "hi")

	rejections := errorEvents(t, conn)
	require.Len(t, rejections, 1)
	assert.Equal(t, CodeNotJoined, rejections[0].Code)
	msgRepo.AssertNotCalled(t, "AppendMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageEmptyBodyRejected(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, _ := newTestGateway(roomRepo, msgRepo, access)

	room := models.Room{ID: 1, Name: "general"}
	roomRepo.On("GetRoom", mock.Anything, 1).Return(room, nil).Twice()
	access.On("CanAccess", mock.Anything, room, mock.Anything).Return(true, nil).Twice()

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob"}, 1)
	alice := &fakeConn{}
	aliceInfo := ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}
	gateway.Join(context.Background(), alice, aliceInfo, 1)
	bob.reset()
	alice.reset()

	msgRepo.On("AppendMessage", mock.Anything, 1, 1, "").Return(models.Message{}, repositories.ErrEmptyMessageBody).Once()

	gateway.SendMessage(context.Background(), alice, aliceInfo, "")

	rejections := errorEvents(t, alice)
	require.Len(t, rejections, 1)
	assert.Equal(t, CodeValidation, rejections[0].Code)
	assert.Empty(t, receiveMessages(t, bob), "validation failure must not broadcast")
}

func TestSendMessageStoreFailureSuppressesBroadcast(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	msgRepo := new(mocks.MessageRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, _ := newTestGateway(roomRepo, msgRepo, access)

	room := models.Room{ID: 1, Name: "general"}
	roomRepo.On("GetRoom", mock.Anything, 1).Return(room, nil).Twice()
	access.On("CanAccess", mock.Anything, room, mock.Anything).Return(true, nil).Twice()

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob"}, 1)
	alice := &fakeConn{}
	aliceInfo := ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}
	gateway.Join(context.Background(), alice, aliceInfo, 1)
	bob.reset()
	alice.reset()

	msgRepo.On("AppendMessage", mock.Anything, 1, 1, "hi").Return(models.Message{}, assert.AnError).Once()

	gateway.SendMessage(context.Background(), alice, aliceInfo, "hi")

	rejections := errorEvents(t, alice)
	require.Len(t, rejections, 1)
	assert.Equal(t, CodePersistence, rejections[0].Code)

	assert.Empty(t, receiveMessages(t, bob), "unpersisted message must not be delivered")
	assert.Empty(t, receiveMessages(t, alice))
	msgRepo.AssertExpectations(t)
}

func TestDisconnectAnnouncesLeaveOnce(t *testing.T) {
	roomRepo := new(mocks.RoomRepositoryMock)
	access := new(mocks.AccessCheckerMock)
	gateway, _ := newTestGateway(roomRepo, new(mocks.MessageRepositoryMock), access)

	room := models.Room{ID: 1, Name: "general"}
	roomRepo.On("GetRoom", mock.Anything, 1).Return(room, nil).Twice()
	access.On("CanAccess", mock.Anything, room, mock.Anything).Return(true, nil).Twice()

	bob := &fakeConn{}
	gateway.Join(context.Background(), bob, ConnInfo{ConnID: "bob", UserID: 2, Username: "Bob"}, 1)
	alice := &fakeConn{}
	gateway.Join(context.Background(), alice, ConnInfo{ConnID: "alice", UserID: 1, Username: "Alice"}, 1)
	bob.reset()

	gateway.Disconnect("alice")

	bobEvents := receiveMessages(t, bob)
	require.Len(t, bobEvents, 1)
	assert.Equal(t, "Alice has left the chat.", bobEvents[0].Message)
	assert.Equal(t, "#999999", bobEvents[0].Color)

	bob.reset()
	gateway.Disconnect("alice")
	assert.Empty(t, receiveMessages(t, bob), "second disconnect must be silent")
}
