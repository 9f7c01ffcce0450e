package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chatroom-service/internal/models"
)

type RoomRepositoryMock struct {
	mock.Mock
}

func (m *RoomRepositoryMock) CreateRoom(ctx context.Context, name string, ownerID int, invitationOnly bool) (models.Room, error) {
	args := m.Called(ctx, name, ownerID, invitationOnly)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) GetRoom(ctx context.Context, roomID int) (models.Room, error) {
	args := m.Called(ctx, roomID)
	var room models.Room
	if val := args.Get(0); val != nil {
		room = val.(models.Room)
	}
	return room, args.Error(1)
}

func (m *RoomRepositoryMock) ListRooms(ctx context.Context) ([]models.Room, error) {
	args := m.Called(ctx)
	var rooms []models.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]models.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomRepositoryMock) AddMember(ctx context.Context, roomID int, userID int) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomRepositoryMock) IsMember(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, roomID int, senderID int, body string) (models.Message, error) {
	args := m.Called(ctx, roomID, senderID, body)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) RoomMessages(ctx context.Context, roomID int) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CreateUser(ctx context.Context, username string, passwordHash string) (models.User, error) {
	args := m.Called(ctx, username, passwordHash)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID int) (models.User, error) {
	args := m.Called(ctx, userID)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	args := m.Called(ctx, username)
	var user models.User
	if val := args.Get(0); val != nil {
		user = val.(models.User)
	}
	return user, args.Error(1)
}

func (m *UserRepositoryMock) UsernamesByIDs(ctx context.Context, ids []int) (map[int]string, error) {
	args := m.Called(ctx, ids)
	var names map[int]string
	if val := args.Get(0); val != nil {
		names = val.(map[int]string)
	}
	return names, args.Error(1)
}

type InvitationRepositoryMock struct {
	mock.Mock
}

func (m *InvitationRepositoryMock) CreateInvitation(ctx context.Context, roomID int, inviteeID int, inviterID int) (models.Invitation, error) {
	args := m.Called(ctx, roomID, inviteeID, inviterID)
	var inv models.Invitation
	if val := args.Get(0); val != nil {
		inv = val.(models.Invitation)
	}
	return inv, args.Error(1)
}

func (m *InvitationRepositoryMock) GetInvitation(ctx context.Context, invitationID int) (models.Invitation, error) {
	args := m.Called(ctx, invitationID)
	var inv models.Invitation
	if val := args.Get(0); val != nil {
		inv = val.(models.Invitation)
	}
	return inv, args.Error(1)
}

func (m *InvitationRepositoryMock) ListPendingForUser(ctx context.Context, userID int) ([]models.Invitation, error) {
	args := m.Called(ctx, userID)
	var invs []models.Invitation
	if val := args.Get(0); val != nil {
		invs = val.([]models.Invitation)
	}
	return invs, args.Error(1)
}

func (m *InvitationRepositoryMock) SetStatus(ctx context.Context, invitationID int, status string) error {
	args := m.Called(ctx, invitationID, status)
	return args.Error(0)
}

func (m *InvitationRepositoryMock) HasAcceptedInvitation(ctx context.Context, roomID int, userID int) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

type AccessCheckerMock struct {
	mock.Mock
}

func (m *AccessCheckerMock) CanAccess(ctx context.Context, room models.Room, userID int) (bool, error) {
	args := m.Called(ctx, room, userID)
	return args.Bool(0), args.Error(1)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}
