package activitylog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

const (
	mirrorBuffer  = 256
	mirrorTimeout = 2 * time.Second
)

type activityRepo interface {
	Append(ctx context.Context, entry entity.LogEntry, maxEntries int) error
	Trim(ctx context.Context, maxEntries int) error
	List(ctx context.Context) ([]entity.LogEntry, error)
}

type mirrorJob struct {
	entry      *entity.LogEntry
	maxEntries int
}

// Mirror copies log entries to a repository on a background goroutine.
// Entries are dropped while the buffer is full. Failures are counted, not
// logged, since logging them would feed the mirror again.
type Mirror struct {
	repo activityRepo
	jobs chan mirrorJob

	dropped atomic.Uint64
	failed  atomic.Uint64
}

func NewMirror(repo activityRepo) *Mirror {
	return &Mirror{
		repo: repo,
		jobs: make(chan mirrorJob, mirrorBuffer),
	}
}

func (that *Mirror) Append(entry entity.LogEntry, maxEntries int) {
	that.enqueue(mirrorJob{entry: &entry, maxEntries: maxEntries})
}

func (that *Mirror) Trim(maxEntries int) {
	that.enqueue(mirrorJob{maxEntries: maxEntries})
}

func (that *Mirror) enqueue(job mirrorJob) {
	select {
	case that.jobs <- job:
	default:
		that.dropped.Add(1)
	}
}

// Run writes queued entries until ctx is canceled.
func (that *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-that.jobs:
			that.write(ctx, job)
		}
	}
}

func (that *Mirror) write(ctx context.Context, job mirrorJob) {
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()

	var err error
	if job.entry != nil {
		err = that.repo.Append(ctx, *job.entry, job.maxEntries)
	} else {
		err = that.repo.Trim(ctx, job.maxEntries)
	}

	if err != nil {
		that.failed.Add(1)
	}
}

// List reads the mirrored copy back, oldest first.
func (that *Mirror) List(ctx context.Context) ([]entity.LogEntry, error) {
	entries, err := that.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirrored log: %w", err)
	}

	return entries, nil
}

// Dropped counts entries lost to a full buffer.
func (that *Mirror) Dropped() uint64 { return that.dropped.Load() }

// Failed counts writes the repository rejected.
func (that *Mirror) Failed() uint64 { return that.failed.Load() }
