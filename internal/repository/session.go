package repository

import (
	"fmt"
	"slices"
	"sync"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// noUndo is returned with every error. The undo funcs returned on success
// revert the tentative change and are safe to call more than once.
func noUndo() {}

// SessionStore holds the live sessions and the players that still have to
// acknowledge a finished one. The two indices have separate locks; whenever
// both are held, live is locked first.
type SessionStore struct {
	liveMu sync.Mutex
	live   []*entity.Session

	pendingMu sync.Mutex
	pending   map[uint64]*entity.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		pending: make(map[uint64]*entity.Session),
	}
}

// FindByPlayerID returns a copy of the live session the player belongs to.
func (that *SessionStore) FindByPlayerID(playerID uint64) (entity.Session, bool) {
	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	session := that.find(playerID)
	if session == nil {
		return entity.Session{}, false
	}

	return session.Clone(), true
}

func (that *SessionStore) CreateSession(
	boardState []byte, matchState entity.MatchState, player1ID, player2ID uint64,
) (func(), error) {
	if !matchState.IsValid() || matchState.IsGameOver() {
		return noUndo, fmt.Errorf("%w: new session cannot start in %s", apperror.ErrInvalidMatchState, matchState)
	}

	if player1ID == player2ID {
		return noUndo, fmt.Errorf("%w: player %d cannot play against itself", apperror.ErrInvariantViolation, player1ID)
	}

	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	for _, id := range []uint64{player1ID, player2ID} {
		if that.find(id) != nil {
			return noUndo, fmt.Errorf("%w: player %d", apperror.ErrSessionAlreadyExists, id)
		}
	}

	session := entity.NewSession(boardState, matchState, player1ID, player2ID)
	that.live = append(that.live, session)

	var once sync.Once

	return func() {
		once.Do(func() {
			that.liveMu.Lock()
			defer that.liveMu.Unlock()

			that.removeLive(session)
		})
	}, nil
}

// ApplyMove records a move of the player whose turn it is. A terminal state
// registers the other player as pending acknowledgement.
func (that *SessionStore) ApplyMove(
	playerID uint64, move, boardState []byte, matchState entity.MatchState,
) (func(), error) {
	if !matchState.IsValid() {
		return noUndo, fmt.Errorf("%w: %d", apperror.ErrInvalidMatchState, byte(matchState))
	}

	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	session, err := that.findRunning(playerID)
	if err != nil {
		return noUndo, err
	}

	if !session.IsTurnOf(playerID) {
		return noUndo, fmt.Errorf("%w: player %d in %s", apperror.ErrNotYourTurn, playerID, session.MatchState)
	}

	otherID, err := session.OtherPlayer(playerID)
	if err != nil {
		return noUndo, fmt.Errorf("%w: %w", apperror.ErrInvariantViolation, err)
	}

	prevBoard := session.BoardState
	prevState := session.MatchState
	prevMoves := len(session.AllMoves)

	session.AllMoves = append(session.AllMoves, slices.Clone(move))
	session.BoardState = slices.Clone(boardState)
	session.MatchState = matchState

	if session.BoardState == nil {
		session.BoardState = []byte{}
	}

	if session.AllMoves[prevMoves] == nil {
		session.AllMoves[prevMoves] = []byte{}
	}

	unregister := that.finishIfOver(session, otherID)

	var once sync.Once

	return func() {
		once.Do(func() {
			that.liveMu.Lock()
			defer that.liveMu.Unlock()

			// a later move already built on this one
			if len(session.AllMoves) != prevMoves+1 {
				return
			}

			session.AllMoves = session.AllMoves[:prevMoves]
			session.BoardState = prevBoard
			session.MatchState = prevState

			unregister()
		})
	}, nil
}

// ApplyForfeit ends the player's session with the opponent as the winner.
func (that *SessionStore) ApplyForfeit(playerID uint64) (func(), error) {
	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	session, err := that.findRunning(playerID)
	if err != nil {
		return noUndo, err
	}

	state, err := session.ForfeitState(playerID)
	if err != nil {
		return noUndo, fmt.Errorf("%w: %w", apperror.ErrInvariantViolation, err)
	}

	otherID, err := session.OtherPlayer(playerID)
	if err != nil {
		return noUndo, fmt.Errorf("%w: %w", apperror.ErrInvariantViolation, err)
	}

	prevState := session.MatchState
	session.MatchState = state

	unregister := that.finishIfOver(session, otherID)

	var once sync.Once

	return func() {
		once.Do(func() {
			that.liveMu.Lock()
			defer that.liveMu.Unlock()

			session.MatchState = prevState
			unregister()
		})
	}, nil
}

// AcknowledgeAndMaybeRemove drops the session once the pending player has seen
// its final state. It reports whether anything was removed; players that are
// not pending are ignored.
func (that *SessionStore) AcknowledgeAndMaybeRemove(playerID uint64) bool {
	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	session, ok := that.pending[playerID]
	if !ok {
		return false
	}

	delete(that.pending, playerID)
	that.removeLive(session)

	return true
}

func (that *SessionStore) Len() int {
	that.liveMu.Lock()
	defer that.liveMu.Unlock()

	return len(that.live)
}

func (that *SessionStore) PendingLen() int {
	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	return len(that.pending)
}

// finishIfOver registers the waiting player of a finished session. It must be called with liveMu held.
func (that *SessionStore) finishIfOver(session *entity.Session, waitingID uint64) func() {
	if !session.MatchState.IsGameOver() {
		return func() {}
	}

	that.pendingMu.Lock()
	defer that.pendingMu.Unlock()

	that.pending[waitingID] = session

	return func() {
		that.pendingMu.Lock()
		defer that.pendingMu.Unlock()

		if that.pending[waitingID] == session {
			delete(that.pending, waitingID)
		}
	}
}

func (that *SessionStore) findRunning(playerID uint64) (*entity.Session, error) {
	session := that.find(playerID)
	if session == nil {
		return nil, fmt.Errorf("%w: player %d", apperror.ErrSessionNotFound, playerID)
	}

	if session.MatchState.IsGameOver() {
		return nil, fmt.Errorf("%w: %s", apperror.ErrGameFinished, session.MatchState)
	}

	return session, nil
}

func (that *SessionStore) find(playerID uint64) *entity.Session {
	for _, session := range that.live {
		if session.HasPlayer(playerID) {
			return session
		}
	}

	return nil
}

func (that *SessionStore) removeLive(session *entity.Session) {
	that.live = slices.DeleteFunc(that.live, func(s *entity.Session) bool {
		return s == session
	})
}
