// Package wire implements the binary request/response protocol spoken between game clients and the server.
package wire

import (
	"fmt"

	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// Type is the one-byte tag that starts every message.
type Type byte

const (
	TypeError Type = iota
	TypeAcknowledge
	TypeFindGame
	TypeSuccessfullyInQueue
	TypeCheckOpponentFound
	TypeFoundOpponent
	TypeNewBoard
	TypeGetGameState
	TypeGameState
	TypeMakeMove
	TypeForfeitGame
)

var typeNames = map[Type]string{
	TypeError:               "Error",
	TypeAcknowledge:         "Acknowledge",
	TypeFindGame:            "FindGame",
	TypeSuccessfullyInQueue: "SuccessfullyInQueue",
	TypeCheckOpponentFound:  "CheckOpponentFound",
	TypeFoundOpponent:       "FoundOpponent",
	TypeNewBoard:            "NewBoard",
	TypeGetGameState:        "GetGameState",
	TypeGameState:           "GameState",
	TypeMakeMove:            "MakeMove",
	TypeForfeitGame:         "ForfeitGame",
}

func (that Type) String() string {
	if name, ok := typeNames[that]; ok {
		return name
	}

	return fmt.Sprintf("Type(%d)", byte(that))
}

// Message is implemented by every message of the protocol.
type Message interface {
	Type() Type

	encode(w *writer)
	decode(r *reader) error
}

type Error struct {
	Msg string
}

type Acknowledge struct{}

type FindGame struct {
	ClientName string
	GameID     uint64
}

type SuccessfullyInQueue struct {
	PlayerID uint64
}

type CheckOpponentFound struct {
	PlayerID uint64
}

// FoundOpponent with an empty name and a zero ID tells the client to keep waiting.
type FoundOpponent struct {
	OpponentName  string
	OpponentID    uint64
	AmIGoingFirst bool
}

// NewBoard is sent by the player going first, right after its FoundOpponent.
type NewBoard struct {
	BoardState []byte
	MatchState entity.MatchState
}

// GetGameState asks for the session state; LastKnownMove 0 means no moves were seen yet.
type GetGameState struct {
	PlayerID      uint64
	LastKnownMove int32
}

type GameState struct {
	BoardState  []byte
	RecentMoves [][]byte
	MatchState  entity.MatchState
	Player1ID   uint64
	Player2ID   uint64
}

type MakeMove struct {
	PlayerID      uint64
	Move          []byte
	NewBoardState []byte
	NewMatchState entity.MatchState
}

type ForfeitGame struct {
	PlayerID uint64
}

func (*Error) Type() Type               { return TypeError }
func (*Acknowledge) Type() Type         { return TypeAcknowledge }
func (*FindGame) Type() Type            { return TypeFindGame }
func (*SuccessfullyInQueue) Type() Type { return TypeSuccessfullyInQueue }
func (*CheckOpponentFound) Type() Type  { return TypeCheckOpponentFound }
func (*FoundOpponent) Type() Type       { return TypeFoundOpponent }
func (*NewBoard) Type() Type            { return TypeNewBoard }
func (*GetGameState) Type() Type        { return TypeGetGameState }
func (*GameState) Type() Type           { return TypeGameState }
func (*MakeMove) Type() Type            { return TypeMakeMove }
func (*ForfeitGame) Type() Type         { return TypeForfeitGame }

// KeepWaiting is the FoundOpponent reply for a player that has no opponent yet.
func KeepWaiting() *FoundOpponent {
	return &FoundOpponent{}
}

func (that *FoundOpponent) IsWaiting() bool {
	return that.OpponentName == "" && that.OpponentID == 0
}

// NewGameState builds the GameState reply for a session, starting at the given move index.
func NewGameState(session entity.Session, fromMove int) *GameState {
	return &GameState{
		BoardState:  session.BoardState,
		RecentMoves: session.MovesSince(fromMove),
		MatchState:  session.MatchState,
		Player1ID:   session.Player1ID,
		Player2ID:   session.Player2ID,
	}
}

func (that *Error) encode(w *writer) { w.string(that.Msg) }

func (that *Error) decode(r *reader) error {
	that.Msg = r.string()
	return r.err
}

func (*Acknowledge) encode(*writer) {}

func (*Acknowledge) decode(*reader) error { return nil }

func (that *FindGame) encode(w *writer) {
	w.string(that.ClientName)
	w.uint64(that.GameID)
}

func (that *FindGame) decode(r *reader) error {
	that.ClientName = r.string()
	that.GameID = r.uint64()
	return r.err
}

func (that *SuccessfullyInQueue) encode(w *writer) { w.uint64(that.PlayerID) }

func (that *SuccessfullyInQueue) decode(r *reader) error {
	that.PlayerID = r.uint64()
	return r.err
}

func (that *CheckOpponentFound) encode(w *writer) { w.uint64(that.PlayerID) }

func (that *CheckOpponentFound) decode(r *reader) error {
	that.PlayerID = r.uint64()
	return r.err
}

func (that *FoundOpponent) encode(w *writer) {
	w.string(that.OpponentName)
	w.uint64(that.OpponentID)
	w.bool(that.AmIGoingFirst)
}

func (that *FoundOpponent) decode(r *reader) error {
	that.OpponentName = r.string()
	that.OpponentID = r.uint64()
	that.AmIGoingFirst = r.bool()
	return r.err
}

func (that *NewBoard) encode(w *writer) {
	w.bytes(that.BoardState)
	w.matchState(that.MatchState)
}

func (that *NewBoard) decode(r *reader) error {
	that.BoardState = r.bytes()
	that.MatchState = r.matchState()
	return r.err
}

func (that *GetGameState) encode(w *writer) {
	w.uint64(that.PlayerID)
	w.int32(that.LastKnownMove)
}

func (that *GetGameState) decode(r *reader) error {
	that.PlayerID = r.uint64()
	that.LastKnownMove = r.int32()
	return r.err
}

func (that *GameState) encode(w *writer) {
	w.bytes(that.BoardState)
	w.bytesList(that.RecentMoves)
	w.matchState(that.MatchState)
	w.uint64(that.Player1ID)
	w.uint64(that.Player2ID)
}

func (that *GameState) decode(r *reader) error {
	that.BoardState = r.bytes()
	that.RecentMoves = r.bytesList()
	that.MatchState = r.matchState()
	that.Player1ID = r.uint64()
	that.Player2ID = r.uint64()
	return r.err
}

func (that *MakeMove) encode(w *writer) {
	w.uint64(that.PlayerID)
	w.bytes(that.Move)
	w.bytes(that.NewBoardState)
	w.matchState(that.NewMatchState)
}

func (that *MakeMove) decode(r *reader) error {
	that.PlayerID = r.uint64()
	that.Move = r.bytes()
	that.NewBoardState = r.bytes()
	that.NewMatchState = r.matchState()
	return r.err
}

func (that *ForfeitGame) encode(w *writer) { w.uint64(that.PlayerID) }

func (that *ForfeitGame) decode(r *reader) error {
	that.PlayerID = r.uint64()
	return r.err
}
