package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/mocks"
	"chatroom-service/internal/models"
	"chatroom-service/internal/repositories"
)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/signup", handler.Signup)
	r.POST("/auth/login", handler.Login)
	return r
}

func TestSignupSuccess(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewJWTManager("test-secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice", mock.AnythingOfType("string")).
		Return(models.User{ID: 1, Username: "alice"}, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "alice", resp.Username)
	userRepo.AssertExpectations(t)
}

func TestSignupUsernameTaken(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewJWTManager("test-secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("CreateUser", mock.Anything, "alice", mock.AnythingOfType("string")).
		Return(models.User{}, repositories.ErrUsernameTaken).Once()

	body := bytes.NewBufferString(`{"username":"alice","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestSignupRejectsShortPassword(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewJWTManager("test-secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	body := bytes.NewBufferString(`{"username":"alice","password":"abc"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/signup", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	userRepo.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestLoginSuccessIssuesTokenWithSessionColor(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	handler := NewAuthHandler(userRepo, jwtManager, nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: 1, Username: "alice", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Token string      `json:"token"`
		Color string      `json:"color"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Regexp(t, regexp.MustCompile(`^#[0-9a-f]{6}$`), resp.Color)
	assert.Equal(t, "alice", resp.User.Username)

	claims, err := jwtManager.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, 1, claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, resp.Color, claims.Color)
	userRepo.AssertExpectations(t)
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)

	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewJWTManager("test-secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "alice").
		Return(models.User{ID: 1, Username: "alice", PasswordHash: hash}, nil).Once()

	body := bytes.NewBufferString(`{"username":"alice","password":"wrong-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}

func TestLoginUnknownUser(t *testing.T) {
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewAuthHandler(userRepo, auth.NewJWTManager("test-secret", time.Hour), nil)
	router := setupAuthRouter(handler)

	userRepo.On("GetUserByUsername", mock.Anything, "ghost").
		Return(models.User{}, repositories.ErrUserNotFound).Once()

	body := bytes.NewBufferString(`{"username":"ghost","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	userRepo.AssertExpectations(t)
}
