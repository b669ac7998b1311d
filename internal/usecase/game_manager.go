package usecase

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

type playerMatcher interface {
	Push(player entity.Player) error
	PushPaired(player, opponent entity.Player, goesFirst bool) error
	TryPop(playerID uint64) (entity.Pairing, bool)
	FindMatches() int
	TryGetByPlayerID(playerID uint64) (entity.Player, bool)
	Foreach(fn func(player entity.Player, pairing *entity.Pairing))
	Len() int
}

type sessionStore interface {
	FindByPlayerID(playerID uint64) (entity.Session, bool)
	CreateSession(boardState []byte, matchState entity.MatchState, player1ID, player2ID uint64) (func(), error)
	ApplyMove(playerID uint64, move, boardState []byte, matchState entity.MatchState) (func(), error)
	ApplyForfeit(playerID uint64) (func(), error)
	AcknowledgeAndMaybeRemove(playerID uint64) bool
	Len() int
	PendingLen() int
}

// Match is a popped pairing, seen from Player.
type Match struct {
	Player    entity.Player
	Opponent  entity.Player
	GoesFirst bool
}

type Stats struct {
	Queued      int `json:"queued"`
	Sessions    int `json:"sessions"`
	PendingAcks int `json:"pending_acks"`
}

// QueuedPlayer is a matchmaking queue entry as shown to operators.
type QueuedPlayer struct {
	entity.Player
	Pairing *entity.Pairing `json:"pairing,omitempty"`
}

// GameManager owns the matchmaking queue and the sessions. Every mutating call
// that is followed by a reply to the client hands back an undo func, so the
// caller can revert the change when the reply cannot be delivered.
type GameManager struct {
	logger   *slog.Logger
	matcher  playerMatcher
	sessions sessionStore

	lastPlayerID atomic.Uint64
}

func NewGameManager(logger *slog.Logger, matcher playerMatcher, sessions sessionStore) *GameManager {
	return &GameManager{
		logger: logger.With("component", "game_manager"),

		matcher:  matcher,
		sessions: sessions,
	}
}

// RegisterPlayer allocates the next player ID. IDs start at 1 and wrap around silently.
func (that *GameManager) RegisterPlayer(name string, gameID uint64) entity.Player {
	return entity.Player{
		Name:   name,
		ID:     that.lastPlayerID.Add(1),
		GameID: gameID,
	}
}

func (that *GameManager) Enqueue(player entity.Player) error {
	log := that.logger.With("method", "Enqueue")

	if err := that.matcher.Push(player); err != nil {
		return fmt.Errorf("failed to queue player: %w", err)
	}

	log.Info("Player queued", "player_id", player.ID, "name", player.Name, "game_id", player.GameID)

	return nil
}

// PollOpponent returns the player's match, or nil while it has to keep waiting.
// The returned requeue func puts the popped player back with the same opponent.
func (that *GameManager) PollOpponent(playerID uint64) (*Match, func(), error) {
	log := that.logger.With("method", "PollOpponent")

	player, ok := that.matcher.TryGetByPlayerID(playerID)
	if !ok {
		return nil, noop, fmt.Errorf("%w: %d", apperror.ErrPlayerNotFound, playerID)
	}

	if matched := that.matcher.FindMatches(); matched > 0 {
		log.Info("Matched players", "pairs", matched)
	}

	pairing, ok := that.matcher.TryPop(playerID)
	if !ok {
		return nil, noop, nil
	}

	requeue := that.requeue(player, pairing)

	// the second player waits until the first one has set up the board
	if !pairing.GoesFirst {
		if _, found := that.sessions.FindByPlayerID(playerID); !found {
			requeue()
			return nil, noop, nil
		}
	}

	return &Match{
		Player:    player,
		Opponent:  pairing.Opponent,
		GoesFirst: pairing.GoesFirst,
	}, requeue, nil
}

func (that *GameManager) requeue(player entity.Player, pairing entity.Pairing) func() {
	var done atomic.Bool

	return func() {
		if done.Swap(true) {
			return
		}

		if err := that.matcher.PushPaired(player, pairing.Opponent, pairing.GoesFirst); err != nil {
			that.logger.Error("failed to requeue player", "method", "requeue", "player_id", player.ID, "error", err)
		}
	}
}

// StartSession creates the session of a match whose player goes first.
func (that *GameManager) StartSession(match *Match, boardState []byte, matchState entity.MatchState) error {
	log := that.logger.With("method", "StartSession")

	if !match.GoesFirst {
		return fmt.Errorf("%w: player %d does not go first", apperror.ErrInvariantViolation, match.Player.ID)
	}

	if _, err := that.sessions.CreateSession(boardState, matchState, match.Player.ID, match.Opponent.ID); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("Session started", "player1_id", match.Player.ID, "player2_id", match.Opponent.ID, "game_id", match.Player.GameID)

	return nil
}

// GameState returns a snapshot of the player's session.
func (that *GameManager) GameState(playerID uint64) (entity.Session, error) {
	session, ok := that.sessions.FindByPlayerID(playerID)
	if !ok {
		return entity.Session{}, fmt.Errorf("%w: player %d", apperror.ErrSessionNotFound, playerID)
	}

	return session, nil
}

// AcknowledgeFinished removes a finished session once its last player has seen the result.
func (that *GameManager) AcknowledgeFinished(playerID uint64) bool {
	removed := that.sessions.AcknowledgeAndMaybeRemove(playerID)
	if removed {
		that.logger.Info("Session closed", "method", "AcknowledgeFinished", "player_id", playerID)
	}

	return removed
}

func (that *GameManager) MakeMove(
	playerID uint64, move, boardState []byte, matchState entity.MatchState,
) (func(), error) {
	log := that.logger.With("method", "MakeMove")

	undo, err := that.sessions.ApplyMove(playerID, move, boardState, matchState)
	if err != nil {
		return noop, fmt.Errorf("failed to apply move: %w", err)
	}

	log.Debug("Move applied", "player_id", playerID, "match_state", matchState.String())

	if matchState.IsGameOver() {
		log.Info("Game finished", "player_id", playerID, "match_state", matchState.String())
	}

	return undo, nil
}

func (that *GameManager) Forfeit(playerID uint64) (func(), error) {
	log := that.logger.With("method", "Forfeit")

	undo, err := that.sessions.ApplyForfeit(playerID)
	if err != nil {
		return noop, fmt.Errorf("failed to forfeit: %w", err)
	}

	log.Info("Player forfeited", "player_id", playerID)

	return undo, nil
}

func (that *GameManager) Stats() Stats {
	return Stats{
		Queued:      that.matcher.Len(),
		Sessions:    that.sessions.Len(),
		PendingAcks: that.sessions.PendingLen(),
	}
}

// Queue lists the matchmaking queue in order.
func (that *GameManager) Queue() []QueuedPlayer {
	queue := make([]QueuedPlayer, 0, that.matcher.Len())

	that.matcher.Foreach(func(player entity.Player, pairing *entity.Pairing) {
		queue = append(queue, QueuedPlayer{Player: player, Pairing: pairing})
	})

	return queue
}

func noop() {}
