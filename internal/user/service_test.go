package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bookrec/internal/httpx"
	"bookrec/internal/platform/crypto"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo)

	repo.EXPECT().GetByUsername(gomock.Any(), "reader").Return(User{}, ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, u *User) error {
		assert.True(t, crypto.VerifyPassword(u.PasswordHash, "pw"))
		u.ID = "id-1"
		return nil
	})

	u, err := svc.Register(context.Background(), "  reader ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "id-1", u.ID)
	assert.Equal(t, "reader", u.Username)
}

func TestService_Register_Rejects(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), " ", "pw")
	assert.ErrorIs(t, err, ErrEmptyCredentials)

	_, err = svc.Register(context.Background(), "reader", "")
	assert.ErrorIs(t, err, ErrEmptyCredentials)

	repo.EXPECT().GetByUsername(gomock.Any(), "taken").Return(User{ID: "x"}, nil)
	_, err = svc.Register(context.Background(), "taken", "pw")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	repo.EXPECT().GetByUsername(gomock.Any(), "racer").Return(User{}, ErrNotFound)
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(ErrAlreadyExists)
	_, err = svc.Register(context.Background(), "racer", "pw")
	assert.ErrorIs(t, err, ErrAlreadyExists)

	repo.EXPECT().GetByUsername(gomock.Any(), "down").Return(User{}, errors.New("db down"))
	_, err = svc.Register(context.Background(), "down", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyExists)
}

func TestService_Authenticate(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo)

	hash, err := crypto.HashPassword("secret")
	require.NoError(t, err)
	stored := User{ID: "id-1", Username: "reader", PasswordHash: hash}

	repo.EXPECT().GetByUsername(gomock.Any(), "reader").Return(stored, nil).Times(2)
	repo.EXPECT().GetByUsername(gomock.Any(), "ghost").Return(User{}, ErrNotFound)

	u, err := svc.Authenticate(context.Background(), "reader", "secret")
	require.NoError(t, err)
	assert.Equal(t, "id-1", u.ID)

	_, err = svc.Authenticate(context.Background(), "reader", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestHTTPHandler_Register(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		setup  func(repo *MockRepository)
		status int
		want   string
	}{
		{
			name: "created",
			body: `{"username": "reader", "password": "pw"}`,
			setup: func(repo *MockRepository) {
				repo.EXPECT().GetByUsername(gomock.Any(), "reader").Return(User{}, ErrNotFound)
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
			},
			status: http.StatusCreated,
			want:   `"username":"reader"`,
		},
		{
			name:   "empty",
			body:   `{"username": "", "password": ""}`,
			setup:  func(repo *MockRepository) {},
			status: http.StatusBadRequest,
			want:   "Username and password cannot be empty",
		},
		{
			name: "duplicate",
			body: `{"username": "reader", "password": "pw"}`,
			setup: func(repo *MockRepository) {
				repo.EXPECT().GetByUsername(gomock.Any(), "reader").Return(User{ID: "x"}, nil)
			},
			status: http.StatusConflict,
			want:   "Username already exists",
		},
		{
			name:   "malformed",
			body:   `{`,
			setup:  func(repo *MockRepository) {},
			status: http.StatusBadRequest,
			want:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := NewMockRepository(ctrl)
			tt.setup(repo)
			handler := NewHTTPHandler(NewService(repo))

			w := httptest.NewRecorder()
			handler.Register(w, httptest.NewRequest(http.MethodPost, "/users/register", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.NotContains(t, w.Body.String(), "password_hash")
		})
	}
}

func TestHTTPHandler_Me(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	repo.EXPECT().GetByID(gomock.Any(), "id-1").Return(User{ID: "id-1", Username: "reader", PasswordHash: "h"}, nil)
	handler := NewHTTPHandler(NewService(repo))

	r := httptest.NewRequest(http.MethodGet, "/me", nil)
	r = r.WithContext(httpx.ContextWithUser(r.Context(), "id-1", "s1"))
	w := httptest.NewRecorder()
	handler.Me(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"reader"`)
	assert.NotContains(t, w.Body.String(), `"h"`)
}
