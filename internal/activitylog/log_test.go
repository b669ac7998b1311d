package activitylog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

func texts(entries []entity.LogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Text)
	}

	return out
}

func TestLog_Add(t *testing.T) {
	t.Run("Oldest entries are evicted", func(t *testing.T) {
		// Given: a log that holds three entries
		activity := New(3)

		// When: five entries are added
		for _, text := range []string{"a", "b", "c", "d", "e"} {
			activity.Info(text)
		}

		// Then: the newest three remain, oldest first
		assert.Equal(t, []string{"c", "d", "e"}, texts(activity.Entries()))
	})

	t.Run("Levels are kept", func(t *testing.T) {
		activity := New(10)
		fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		activity.now = func() time.Time { return fixed }

		activity.Info("started")
		activity.Warning("restarting listener")
		activity.Error("accept failed")

		assert.Equal(t, []entity.LogEntry{
			{Time: fixed, Level: entity.LogInfo, Text: "started"},
			{Time: fixed, Level: entity.LogWarning, Text: "restarting listener"},
			{Time: fixed, Level: entity.LogError, Text: "accept failed"},
		}, activity.Entries())
	})

	t.Run("Entries returns a copy", func(t *testing.T) {
		activity := New(2)
		activity.Info("a")

		entries := activity.Entries()
		entries[0].Text = "changed"

		assert.Equal(t, []string{"a"}, texts(activity.Entries()))
	})
}

func TestLog_SetMaxEntries(t *testing.T) {
	t.Run("Shrinking evicts immediately", func(t *testing.T) {
		// Given: a full log
		activity := New(5)
		for _, text := range []string{"a", "b", "c", "d", "e"} {
			activity.Info(text)
		}

		// When: the maximum drops to two
		removed, err := activity.SetMaxEntries(2)

		// Then: three entries are gone right away
		require.NoError(t, err)
		assert.Equal(t, 3, removed)
		assert.Equal(t, []string{"d", "e"}, texts(activity.Entries()))
		assert.Equal(t, 2, activity.MaxEntries())
	})

	t.Run("Growing keeps everything", func(t *testing.T) {
		activity := New(1)
		activity.Info("a")

		removed, err := activity.SetMaxEntries(10)

		require.NoError(t, err)
		assert.Zero(t, removed)
		assert.Equal(t, 1, activity.Len())
	})

	t.Run("Non-positive maximum is rejected", func(t *testing.T) {
		activity := New(4)

		_, err := activity.SetMaxEntries(0)

		require.ErrorIs(t, err, ErrInvalidMaxEntries)
		assert.Equal(t, 4, activity.MaxEntries())
	})
}

type recordingMirror struct {
	appended []string
	trimmed  []int
}

func (that *recordingMirror) Append(entry entity.LogEntry, _ int) {
	that.appended = append(that.appended, entry.Text)
}

func (that *recordingMirror) Trim(maxEntries int) {
	that.trimmed = append(that.trimmed, maxEntries)
}

func TestLog_SetMirror(t *testing.T) {
	// Given: a log with a mirror
	activity := New(3)
	m := &recordingMirror{}
	activity.SetMirror(m)

	// When: entries are added and the log shrinks
	activity.Info("a")
	activity.Info("b")
	_, err := activity.SetMaxEntries(1)
	require.NoError(t, err)

	// Then: the mirror saw both entries and the trim
	assert.Equal(t, []string{"a", "b"}, m.appended)
	assert.Equal(t, []int{1}, m.trimmed)
}
