package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/boardgames-server/internal/activitylog"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
	"github.com/rocketscienceinc/boardgames-server/internal/usecase"
	"github.com/rocketscienceinc/boardgames-server/transport/tcp"
)

const maxBodySize = 1 << 10

var (
	errMirrorDisabled   = errors.New("activity log mirror is disabled")
	errUnknownLogSource = errors.New("unknown log source")
)

// Handlers is the operator API of the game server.
type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)

	GetPort(w http.ResponseWriter, _ *http.Request)
	SetPort(w http.ResponseWriter, r *http.Request)

	GetMaxLogSize(w http.ResponseWriter, _ *http.Request)
	SetMaxLogSize(w http.ResponseWriter, r *http.Request)
	GetLog(w http.ResponseWriter, r *http.Request)

	GetStats(w http.ResponseWriter, _ *http.Request)
	GetQueue(w http.ResponseWriter, _ *http.Request)
}

type socketServer interface {
	Port() string
	SetPort(port string) error
}

type activityLog interface {
	Entries() []entity.LogEntry
	MaxEntries() int
	SetMaxEntries(maxEntries int) (int, error)
}

// ActivityMirror is the off-process copy of the activity log.
type ActivityMirror interface {
	List(ctx context.Context) ([]entity.LogEntry, error)
	Dropped() uint64
	Failed() uint64
}

type gameStats interface {
	Stats() usecase.Stats
	Queue() []usecase.QueuedPlayer
}

type handlers struct {
	logger   *slog.Logger
	socket   socketServer
	activity activityLog
	game     gameStats
	mirror   ActivityMirror
}

// NewHandlers builds the admin API. mirror is nil when the activity log is not mirrored.
func NewHandlers(
	logger *slog.Logger, socket socketServer, activity activityLog, game gameStats, mirror ActivityMirror,
) Handlers {
	return &handlers{
		logger:   logger.With("component", "http_handlers"),
		socket:   socket,
		activity: activity,
		game:     game,
		mirror:   mirror,
	}
}

type portBody struct {
	Port string `json:"port"`
}

type maxLogSizeBody struct {
	MaxLogSize int `json:"max_log_size"`
	Removed    int `json:"removed,omitempty"`
}

type statsBody struct {
	usecase.Stats
	Mirror *mirrorStatsBody `json:"mirror,omitempty"`
}

type mirrorStatsBody struct {
	Dropped uint64 `json:"dropped"`
	Failed  uint64 `json:"failed"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (that *handlers) GetPort(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, portBody{Port: that.socket.Port()})
}

func (that *handlers) SetPort(w http.ResponseWriter, r *http.Request) {
	var body portBody
	if err := decodeBody(w, r, &body); err != nil {
		that.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := that.socket.SetPort(body.Port); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, tcp.ErrInvalidPort) {
			status = http.StatusBadRequest
		}

		that.writeError(w, status, err)

		return
	}

	that.writeJSON(w, http.StatusOK, portBody{Port: that.socket.Port()})
}

func (that *handlers) GetMaxLogSize(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, maxLogSizeBody{MaxLogSize: that.activity.MaxEntries()})
}

func (that *handlers) SetMaxLogSize(w http.ResponseWriter, r *http.Request) {
	var body maxLogSizeBody
	if err := decodeBody(w, r, &body); err != nil {
		that.writeError(w, http.StatusBadRequest, err)
		return
	}

	removed, err := that.activity.SetMaxEntries(body.MaxLogSize)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, activitylog.ErrInvalidMaxEntries) {
			status = http.StatusBadRequest
		}

		that.writeError(w, status, err)

		return
	}

	that.logger.Info("Max log size changed", "max_log_size", body.MaxLogSize, "removed", removed)

	that.writeJSON(w, http.StatusOK, maxLogSizeBody{MaxLogSize: that.activity.MaxEntries(), Removed: removed})
}

// GetLog serves the in-memory log, or the mirrored copy with ?source=redis.
func (that *handlers) GetLog(w http.ResponseWriter, r *http.Request) {
	switch source := r.URL.Query().Get("source"); source {
	case "", "memory":
		that.writeJSON(w, http.StatusOK, that.activity.Entries())
	case "redis":
		if that.mirror == nil {
			that.writeError(w, http.StatusNotFound, errMirrorDisabled)
			return
		}

		entries, err := that.mirror.List(r.Context())
		if err != nil {
			that.logger.Error("failed to read mirrored log", "error", err)
			that.writeError(w, http.StatusBadGateway, err)

			return
		}

		that.writeJSON(w, http.StatusOK, entries)
	default:
		that.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %q", errUnknownLogSource, source))
	}
}

func (that *handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	body := statsBody{Stats: that.game.Stats()}
	if that.mirror != nil {
		body.Mirror = &mirrorStatsBody{Dropped: that.mirror.Dropped(), Failed: that.mirror.Failed()}
	}

	that.writeJSON(w, http.StatusOK, body)
}

func (that *handlers) GetQueue(w http.ResponseWriter, _ *http.Request) {
	that.writeJSON(w, http.StatusOK, that.game.Queue())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	return nil
}

func (that *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		that.logger.Error("failed to write response", "error", err)
	}
}

func (that *handlers) writeError(w http.ResponseWriter, status int, err error) {
	that.writeJSON(w, status, errorBody{Error: err.Error()})
}
