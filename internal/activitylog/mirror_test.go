package activitylog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

var errRedisDown = errors.New("redis down")

type mockActivityRepo struct {
	mock.Mock
}

func (that *mockActivityRepo) Append(ctx context.Context, entry entity.LogEntry, maxEntries int) error {
	args := that.Called(ctx, entry, maxEntries)
	return args.Error(0)
}

func (that *mockActivityRepo) Trim(ctx context.Context, maxEntries int) error {
	args := that.Called(ctx, maxEntries)
	return args.Error(0)
}

func (that *mockActivityRepo) List(ctx context.Context) ([]entity.LogEntry, error) {
	args := that.Called(ctx)

	entries, _ := args.Get(0).([]entity.LogEntry)

	return entries, args.Error(1)
}

func TestMirror_List(t *testing.T) {
	t.Run("Entries come from the repository", func(t *testing.T) {
		repo := &mockActivityRepo{}
		stored := []entity.LogEntry{{Level: entity.LogWarning, Text: "Restarting network listener with new port 6000"}}
		repo.On("List", mock.Anything).Return(stored, nil).Once()

		entries, err := NewMirror(repo).List(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, stored, entries)
		repo.AssertExpectations(t)
	})

	t.Run("Repository errors are wrapped", func(t *testing.T) {
		repo := &mockActivityRepo{}
		repo.On("List", mock.Anything).Return(nil, errRedisDown).Once()

		_, err := NewMirror(repo).List(context.Background())

		assert.ErrorIs(t, err, errRedisDown)
	})
}

func TestMirror_Run(t *testing.T) {
	t.Run("Entries and trims are written in order", func(t *testing.T) {
		// Given: a mirror attached to a log
		repo := &mockActivityRepo{}
		entry := entity.LogEntry{Time: time.Unix(10, 0), Level: entity.LogInfo, Text: "Starting server..."}

		done := make(chan struct{}, 2)
		signal := func(mock.Arguments) { done <- struct{}{} }

		repo.On("Append", mock.Anything, entry, 5).Return(nil).Run(signal).Once()
		repo.On("Trim", mock.Anything, 2).Return(nil).Run(signal).Once()

		mirror := NewMirror(repo)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go mirror.Run(ctx)

		// When: an entry is appended and the log shrinks
		mirror.Append(entry, 5)
		mirror.Trim(2)

		// Then: both reach the repository
		for range 2 {
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("mirror did not write in time")
			}
		}
		repo.AssertExpectations(t)
		assert.Zero(t, mirror.Failed())
	})

	t.Run("Failures are counted", func(t *testing.T) {
		repo := &mockActivityRepo{}
		repo.On("Trim", mock.Anything, 1).Return(errRedisDown).Once()

		mirror := NewMirror(repo)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go mirror.Run(ctx)

		mirror.Trim(1)

		assert.Eventually(t, func() bool {
			return mirror.Failed() == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("A full buffer drops entries", func(t *testing.T) {
		// Given: a mirror that is not running
		mirror := NewMirror(&mockActivityRepo{})

		// When: more entries arrive than the buffer holds
		for range mirrorBuffer + 3 {
			mirror.Append(entity.LogEntry{Text: "x"}, 10)
		}

		// Then: the overflow is dropped instead of blocking
		assert.Equal(t, uint64(3), mirror.Dropped())
	})
}
