package entity

import (
	"fmt"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
)

// MatchState is the outcome enum shared by server and clients. The values are sent as a single byte.
type MatchState byte

const (
	Player1Turn MatchState = iota
	Player2Turn
	Player1Won
	Player2Won
	Tie
)

func (that MatchState) String() string {
	switch that {
	case Player1Turn:
		return "Player1Turn"
	case Player2Turn:
		return "Player2Turn"
	case Player1Won:
		return "Player1Won"
	case Player2Won:
		return "Player2Won"
	case Tie:
		return "Tie"
	default:
		return fmt.Sprintf("MatchState(%d)", byte(that))
	}
}

func (that MatchState) IsValid() bool {
	return that <= Tie
}

// IsGameOver reports whether the state is terminal (a win or a tie).
func (that MatchState) IsGameOver() bool {
	return that == Player1Won || that == Player2Won || that == Tie
}

// Session is the authoritative state of one two-player match.
// Board and move bytes are opaque to the server.
type Session struct {
	BoardState []byte     `json:"board_state"`
	AllMoves   [][]byte   `json:"all_moves"`
	MatchState MatchState `json:"match_state"`
	Player1ID  uint64     `json:"player1_id"`
	Player2ID  uint64     `json:"player2_id"`
}

func NewSession(boardState []byte, matchState MatchState, player1ID, player2ID uint64) *Session {
	return &Session{
		BoardState: cloneBytes(boardState),
		AllMoves:   [][]byte{},
		MatchState: matchState,
		Player1ID:  player1ID,
		Player2ID:  player2ID,
	}
}

func (that *Session) HasPlayer(playerID uint64) bool {
	return playerID == that.Player1ID || playerID == that.Player2ID
}

func (that *Session) OtherPlayer(playerID uint64) (uint64, error) {
	switch playerID {
	case that.Player1ID:
		return that.Player2ID, nil
	case that.Player2ID:
		return that.Player1ID, nil
	default:
		return 0, fmt.Errorf("%w: player %d", apperror.ErrPlayerNotInSession, playerID)
	}
}

func (that *Session) IsTurnOf(playerID uint64) bool {
	return (playerID == that.Player1ID && that.MatchState == Player1Turn) ||
		(playerID == that.Player2ID && that.MatchState == Player2Turn)
}

func (that *Session) DidWin(playerID uint64) bool {
	return (playerID == that.Player1ID && that.MatchState == Player1Won) ||
		(playerID == that.Player2ID && that.MatchState == Player2Won)
}

func (that *Session) DidLose(playerID uint64) bool {
	return (playerID == that.Player1ID && that.MatchState == Player2Won) ||
		(playerID == that.Player2ID && that.MatchState == Player1Won)
}

// ForfeitState returns the state in which the given player has lost.
func (that *Session) ForfeitState(playerID uint64) (MatchState, error) {
	switch playerID {
	case that.Player1ID:
		return Player2Won, nil
	case that.Player2ID:
		return Player1Won, nil
	default:
		return 0, fmt.Errorf("%w: player %d", apperror.ErrPlayerNotInSession, playerID)
	}
}

// MovesSince returns the moves with index >= index. Out-of-range indices are clamped.
func (that *Session) MovesSince(index int) [][]byte {
	if index < 0 {
		index = 0
	}

	if index >= len(that.AllMoves) {
		return [][]byte{}
	}

	return that.AllMoves[index:]
}

// Clone returns a deep copy that shares no memory with the original.
func (that *Session) Clone() Session {
	moves := make([][]byte, len(that.AllMoves))
	for i, move := range that.AllMoves {
		moves[i] = cloneBytes(move)
	}

	return Session{
		BoardState: cloneBytes(that.BoardState),
		AllMoves:   moves,
		MatchState: that.MatchState,
		Player1ID:  that.Player1ID,
		Player2ID:  that.Player2ID,
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return []byte{}
	}

	out := make([]byte, len(b))
	copy(out, b)

	return out
}
