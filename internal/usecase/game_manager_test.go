package usecase

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
	"github.com/rocketscienceinc/boardgames-server/internal/repository"
)

func newGameManager() *GameManager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewGameManager(logger, repository.NewPlayerMatcher(), repository.NewSessionStore())
}

// queuePair registers and queues two players of the same game.
func queuePair(t *testing.T, manager *GameManager) (entity.Player, entity.Player) {
	t.Helper()

	alice := manager.RegisterPlayer("Alice", 7)
	bob := manager.RegisterPlayer("Bob", 7)
	require.NoError(t, manager.Enqueue(alice))
	require.NoError(t, manager.Enqueue(bob))

	return alice, bob
}

func TestGameManager_RegisterPlayer(t *testing.T) {
	t.Run("IDs start at one and increase", func(t *testing.T) {
		manager := newGameManager()

		assert.Equal(t, entity.Player{Name: "Alice", ID: 1, GameID: 7}, manager.RegisterPlayer("Alice", 7))
		assert.Equal(t, uint64(2), manager.RegisterPlayer("Bob", 7).ID)
	})

	t.Run("IDs wrap around", func(t *testing.T) {
		manager := newGameManager()
		manager.lastPlayerID.Store(math.MaxUint64 - 1)

		assert.Equal(t, uint64(math.MaxUint64), manager.RegisterPlayer("a", 1).ID)
		assert.Equal(t, uint64(0), manager.RegisterPlayer("b", 1).ID)
	})
}

func TestGameManager_PollOpponent(t *testing.T) {
	t.Run("Unknown player", func(t *testing.T) {
		manager := newGameManager()

		_, _, err := manager.PollOpponent(42)

		require.ErrorIs(t, err, apperror.ErrPlayerNotFound)
	})

	t.Run("Lonely player keeps waiting", func(t *testing.T) {
		manager := newGameManager()
		alice := manager.RegisterPlayer("Alice", 7)
		require.NoError(t, manager.Enqueue(alice))

		match, _, err := manager.PollOpponent(alice.ID)

		require.NoError(t, err)
		assert.Nil(t, match)
		assert.Equal(t, 1, manager.Stats().Queued)
	})

	t.Run("Second player waits for the first one's board", func(t *testing.T) {
		// Given: two matched players
		manager := newGameManager()
		alice, bob := queuePair(t, manager)

		// When: the second player polls before the session exists
		match, _, err := manager.PollOpponent(bob.ID)

		// Then: it keeps waiting and stays queued
		require.NoError(t, err)
		assert.Nil(t, match)
		assert.Equal(t, 2, manager.Stats().Queued)

		// When: the first player polls and starts the session
		first, _, err := manager.PollOpponent(alice.ID)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, &Match{Player: alice, Opponent: bob, GoesFirst: true}, first)

		require.NoError(t, manager.StartSession(first, []byte{0}, entity.Player1Turn))

		// Then: the second player gets its match
		second, _, err := manager.PollOpponent(bob.ID)
		require.NoError(t, err)
		assert.Equal(t, &Match{Player: bob, Opponent: alice, GoesFirst: false}, second)
		assert.Zero(t, manager.Stats().Queued)
	})

	t.Run("Requeue restores the pairing", func(t *testing.T) {
		// Given: the first player popped its match
		manager := newGameManager()
		alice, bob := queuePair(t, manager)

		match, requeue, err := manager.PollOpponent(alice.ID)
		require.NoError(t, err)
		require.NotNil(t, match)

		// When: its handshake fails
		requeue()
		requeue()

		// Then: polling again yields the same match
		again, _, err := manager.PollOpponent(alice.ID)
		require.NoError(t, err)
		assert.Equal(t, match, again)
		assert.Equal(t, bob, again.Opponent)
	})
}

func TestGameManager_StartSession(t *testing.T) {
	t.Run("Only the first player creates the session", func(t *testing.T) {
		manager := newGameManager()

		err := manager.StartSession(&Match{Player: entity.Player{ID: 2}, Opponent: entity.Player{ID: 1}}, nil, entity.Player1Turn)

		require.ErrorIs(t, err, apperror.ErrInvariantViolation)
	})

	t.Run("Terminal board is rejected", func(t *testing.T) {
		manager := newGameManager()
		match := &Match{Player: entity.Player{ID: 1}, Opponent: entity.Player{ID: 2}, GoesFirst: true}

		err := manager.StartSession(match, []byte{1}, entity.Tie)
		require.ErrorIs(t, err, apperror.ErrInvalidMatchState)

		_, err = manager.GameState(1)
		require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	})
}

func TestGameManager_Lifecycle(t *testing.T) {
	// Given: a running session between players 1 and 2
	manager := newGameManager()
	alice, bob := queuePair(t, manager)

	match, _, err := manager.PollOpponent(alice.ID)
	require.NoError(t, err)
	require.NoError(t, manager.StartSession(match, []byte{0, 0}, entity.Player1Turn))
	_, _, err = manager.PollOpponent(bob.ID)
	require.NoError(t, err)

	// When: player 1 moves and player 2 forfeits
	_, err = manager.MakeMove(alice.ID, []byte{3}, []byte{1, 0}, entity.Player2Turn)
	require.NoError(t, err)

	_, err = manager.MakeMove(alice.ID, []byte{4}, []byte{1, 1}, entity.Player1Turn)
	require.ErrorIs(t, err, apperror.ErrNotYourTurn)

	_, err = manager.Forfeit(bob.ID)
	require.NoError(t, err)

	// Then: player 1 sees the win until it acknowledges
	session, err := manager.GameState(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Player1Won, session.MatchState)
	assert.Equal(t, [][]byte{{3}}, session.AllMoves)
	assert.Equal(t, Stats{Queued: 0, Sessions: 1, PendingAcks: 1}, manager.Stats())

	assert.False(t, manager.AcknowledgeFinished(bob.ID))
	assert.True(t, manager.AcknowledgeFinished(alice.ID))

	_, err = manager.GameState(bob.ID)
	require.ErrorIs(t, err, apperror.ErrSessionNotFound)
	assert.Equal(t, Stats{}, manager.Stats())
}

func TestGameManager_Queue(t *testing.T) {
	// Given: two matched players and one waiting
	manager := newGameManager()
	alice, bob := queuePair(t, manager)
	carol := manager.RegisterPlayer("Carol", 9)
	require.NoError(t, manager.Enqueue(carol))

	_, _, err := manager.PollOpponent(carol.ID)
	require.NoError(t, err)

	// When: listing the queue
	queue := manager.Queue()

	// Then: pairings are shown in queue order
	require.Len(t, queue, 3)
	assert.Equal(t, alice, queue[0].Player)
	assert.Equal(t, &entity.Pairing{Opponent: bob, GoesFirst: true}, queue[0].Pairing)
	assert.Equal(t, &entity.Pairing{Opponent: alice, GoesFirst: false}, queue[1].Pairing)
	assert.Nil(t, queue[2].Pairing)

	// And: queueing the same player twice fails
	require.ErrorIs(t, manager.Enqueue(carol), apperror.ErrDuplicatePlayer)
}
