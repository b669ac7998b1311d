// Package activitylog keeps the bounded operator-facing log of the server.
package activitylog

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

var ErrInvalidMaxEntries = errors.New("max entries must be positive")

type mirror interface {
	Append(entry entity.LogEntry, maxEntries int)
	Trim(maxEntries int)
}

// Log is a ring buffer of the most recent entries. The oldest entries are evicted first.
type Log struct {
	mu         sync.Mutex
	entries    []entity.LogEntry
	maxEntries int
	mirror     mirror
	now        func() time.Time
}

func New(maxEntries int) *Log {
	if maxEntries <= 0 {
		maxEntries = 1
	}

	return &Log{
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// SetMirror forwards every later entry to m.
func (that *Log) SetMirror(m mirror) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.mirror = m
}

func (that *Log) Info(text string)    { that.Add(entity.LogInfo, text) }
func (that *Log) Warning(text string) { that.Add(entity.LogWarning, text) }
func (that *Log) Error(text string)   { that.Add(entity.LogError, text) }

func (that *Log) Add(level entity.LogLevel, text string) {
	that.add(entity.LogEntry{Time: that.now(), Level: level, Text: text})
}

func (that *Log) add(entry entity.LogEntry) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if overflow := len(that.entries) + 1 - that.maxEntries; overflow > 0 {
		that.evict(overflow)
	}

	that.entries = append(that.entries, entry)

	if that.mirror != nil {
		that.mirror.Append(entry, that.maxEntries)
	}
}

// Entries returns a copy of the log, oldest first.
func (that *Log) Entries() []entity.LogEntry {
	that.mu.Lock()
	defer that.mu.Unlock()

	entries := make([]entity.LogEntry, len(that.entries))
	copy(entries, that.entries)

	return entries
}

func (that *Log) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}

func (that *Log) MaxEntries() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.maxEntries
}

// SetMaxEntries changes the capacity and evicts the overflow right away.
// It returns the number of evicted entries.
func (that *Log) SetMaxEntries(maxEntries int) (int, error) {
	if maxEntries <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMaxEntries, maxEntries)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.maxEntries = maxEntries

	removed := len(that.entries) - maxEntries
	if removed <= 0 {
		return 0, nil
	}

	that.evict(removed)

	if that.mirror != nil {
		that.mirror.Trim(maxEntries)
	}

	return removed, nil
}

func (that *Log) evict(n int) {
	kept := copy(that.entries, that.entries[n:])
	clear(that.entries[kept:])
	that.entries = that.entries[:kept]
}
