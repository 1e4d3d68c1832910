package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)
	fixed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	var stored Session
	repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s Session) error {
		stored = s
		return nil
	})

	sess, err := svc.Create(context.Background(), "user-1", "curl/8", "127.0.0.1")
	require.NoError(t, err)

	_, err = uuid.Parse(sess.ID)
	assert.NoError(t, err)
	assert.Equal(t, stored, sess)
	assert.Equal(t, fixed.Add(time.Hour), sess.ExpiresAt)
}

func TestService_Resolve(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)
	now := time.Now()
	live, stale, gone := uuid.NewString(), uuid.NewString(), uuid.NewString()

	repo.EXPECT().Get(gomock.Any(), live).Return(Session{ID: live, UserID: "user-1", ExpiresAt: now.Add(time.Minute)}, nil)
	repo.EXPECT().Get(gomock.Any(), stale).Return(Session{ID: stale, UserID: "user-1", ExpiresAt: now.Add(-time.Minute)}, nil)
	repo.EXPECT().Get(gomock.Any(), gone).Return(Session{}, ErrNotFound)

	userID, err := svc.Resolve(context.Background(), live)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	_, err = svc.Resolve(context.Background(), stale)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Resolve(context.Background(), gone)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Resolve_MalformedIDNeverQueried(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)

	_, err := svc.Resolve(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Resolve_StoreFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)
	id := uuid.NewString()

	repo.EXPECT().Get(gomock.Any(), id).Return(Session{}, errors.New("connection refused"))

	_, err := svc.Resolve(context.Background(), id)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestService_End(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)

	repo.EXPECT().Delete(gomock.Any(), "s1").Return(nil)
	repo.EXPECT().Delete(gomock.Any(), "s2").Return(ErrNotFound)
	repo.EXPECT().Delete(gomock.Any(), "s3").Return(errors.New("db down"))

	assert.NoError(t, svc.End(context.Background(), "s1"))
	assert.NoError(t, svc.End(context.Background(), "s2"))
	assert.Error(t, svc.End(context.Background(), "s3"))
}

func TestService_RunCleanup(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)
	svc := NewService(repo, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	repo.EXPECT().DeleteExpired(gomock.Any()).DoAndReturn(func(context.Context) (int64, error) {
		cancel()
		return 3, nil
	}).MinTimes(1)

	done := make(chan struct{})
	go func() {
		svc.RunCleanup(ctx, time.Millisecond, zerolog.Nop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop after cancellation")
	}
}
