package tcp

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
	"github.com/rocketscienceinc/boardgames-server/internal/transport/wire"
	"github.com/rocketscienceinc/boardgames-server/internal/usecase"
)

var ErrUnexpectedMessage = errors.New("unexpected message")

const expectedRequests = "Expected message types: FindGame, CheckOpponentFound, GetGameState, MakeMove, or ForfeitGame; got "

type gameManager interface {
	RegisterPlayer(name string, gameID uint64) entity.Player
	Enqueue(player entity.Player) error

	PollOpponent(playerID uint64) (*usecase.Match, func(), error)
	StartSession(match *usecase.Match, boardState []byte, matchState entity.MatchState) error

	GameState(playerID uint64) (entity.Session, error)
	AcknowledgeFinished(playerID uint64) bool

	MakeMove(playerID uint64, move, boardState []byte, matchState entity.MatchState) (func(), error)
	Forfeit(playerID uint64) (func(), error)
}

type requestHandler func(c *clientConn, msg wire.Message) error

// Handler serves exactly one request per connection and closes it.
type Handler struct {
	logger  *slog.Logger
	game    gameManager
	timeout time.Duration

	handlers map[wire.Type]requestHandler
}

// NewHandler returns a Handler; timeout bounds every single read and write, zero disables it.
func NewHandler(logger *slog.Logger, game gameManager, timeout time.Duration) *Handler {
	handler := &Handler{
		logger:  logger.With("component", "tcp_handler"),
		game:    game,
		timeout: timeout,

		handlers: make(map[wire.Type]requestHandler),
	}

	handler.handlers[wire.TypeFindGame] = handler.handleFindGame
	handler.handlers[wire.TypeCheckOpponentFound] = handler.handleCheckOpponentFound
	handler.handlers[wire.TypeGetGameState] = handler.handleGetGameState
	handler.handlers[wire.TypeMakeMove] = handler.handleMakeMove
	handler.handlers[wire.TypeForfeitGame] = handler.handleForfeitGame

	return handler
}

// Serve handles the connection and always closes it. Panics are recovered and logged.
func (that *Handler) Serve(conn net.Conn) {
	log := that.logger.With("conn_id", uuid.NewString(), "remote", remoteAddr(conn))

	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Debug("failed to close connection", "error", err)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered from panic in connection handler", "panic", r)
		}
	}()

	c := &clientConn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: that.timeout,
		log:     log,
	}

	msg, err := c.read()
	if err != nil {
		log.Error("failed to read request", "error", err)

		if isDecodeError(err) {
			c.writeBestEffort(&wire.Error{Msg: err.Error()})
		}

		return
	}

	handle, ok := that.handlers[msg.Type()]
	if !ok {
		log.Warn("unexpected request", "type", msg.Type().String())
		c.writeBestEffort(&wire.Error{Msg: expectedRequests + msg.Type().String()})

		return
	}

	c.log = log.With("request", msg.Type().String())

	if err = handle(c, msg); err != nil {
		if isClientError(err) {
			c.log.Warn("request rejected", "error", err)
			return
		}

		c.log.Error("request failed", "error", err)
	}
}

func (that *Handler) handleFindGame(c *clientConn, msg wire.Message) error {
	req, _ := msg.(*wire.FindGame)

	player := that.game.RegisterPlayer(req.ClientName, req.GameID)

	// a player that never learned its ID must not be queued
	if err := c.write(&wire.SuccessfullyInQueue{PlayerID: player.ID}); err != nil {
		return fmt.Errorf("failed to confirm queueing of player %d: %w", player.ID, err)
	}

	if err := that.game.Enqueue(player); err != nil {
		return fmt.Errorf("failed to enqueue player %d: %w", player.ID, err)
	}

	return nil
}

func (that *Handler) handleCheckOpponentFound(c *clientConn, msg wire.Message) error {
	req, _ := msg.(*wire.CheckOpponentFound)

	match, requeue, err := that.game.PollOpponent(req.PlayerID)
	if err != nil {
		return c.replyError(err)
	}

	if match == nil {
		if err = c.write(wire.KeepWaiting()); err != nil {
			return fmt.Errorf("failed to tell player %d to keep waiting: %w", req.PlayerID, err)
		}

		return nil
	}

	if match.GoesFirst {
		err = that.startMatch(c, match)
	} else {
		err = that.joinMatch(c, match)
	}

	if err != nil {
		requeue()
		return err
	}

	return nil
}

// startMatch announces the opponent and takes the initial board from the first player.
func (that *Handler) startMatch(c *clientConn, match *usecase.Match) error {
	found := &wire.FoundOpponent{
		OpponentName:  match.Opponent.Name,
		OpponentID:    match.Opponent.ID,
		AmIGoingFirst: true,
	}
	if err := c.write(found); err != nil {
		return fmt.Errorf("failed to announce opponent: %w", err)
	}

	msg, err := c.readExpected(wire.TypeNewBoard)
	if err != nil {
		return fmt.Errorf("failed to read initial board: %w", err)
	}

	board, _ := msg.(*wire.NewBoard)
	if err = that.game.StartSession(match, board.BoardState, board.MatchState); err != nil {
		return c.replyError(err)
	}

	return nil
}

// joinMatch announces the opponent and sends the full session to the second player.
func (that *Handler) joinMatch(c *clientConn, match *usecase.Match) error {
	session, err := that.game.GameState(match.Player.ID)
	if err != nil {
		return c.replyError(err)
	}

	found := &wire.FoundOpponent{
		OpponentName:  match.Opponent.Name,
		OpponentID:    match.Opponent.ID,
		AmIGoingFirst: false,
	}
	if err = c.write(found); err != nil {
		return fmt.Errorf("failed to announce opponent: %w", err)
	}

	if err = c.write(wire.NewGameState(session, 0)); err != nil {
		return fmt.Errorf("failed to send game state: %w", err)
	}

	if _, err = c.readExpected(wire.TypeAcknowledge); err != nil {
		return fmt.Errorf("failed to read acknowledgement: %w", err)
	}

	// the first player may have finished the game before the second one joined
	if session.MatchState.IsGameOver() {
		that.game.AcknowledgeFinished(match.Player.ID)
	}

	return nil
}

func (that *Handler) handleGetGameState(c *clientConn, msg wire.Message) error {
	req, _ := msg.(*wire.GetGameState)

	session, err := that.game.GameState(req.PlayerID)
	if err != nil {
		return c.replyError(err)
	}

	if err = c.write(wire.NewGameState(session, int(req.LastKnownMove))); err != nil {
		return fmt.Errorf("failed to send game state: %w", err)
	}

	if !session.MatchState.IsGameOver() {
		return nil
	}

	if _, err = c.readExpected(wire.TypeAcknowledge); err != nil {
		return fmt.Errorf("failed to read acknowledgement of the final state: %w", err)
	}

	that.game.AcknowledgeFinished(req.PlayerID)

	return nil
}

func (that *Handler) handleMakeMove(c *clientConn, msg wire.Message) error {
	req, _ := msg.(*wire.MakeMove)

	undo, err := that.game.MakeMove(req.PlayerID, req.Move, req.NewBoardState, req.NewMatchState)
	if err != nil {
		return c.replyError(err)
	}

	if err = c.write(&wire.Acknowledge{}); err != nil {
		undo()
		return fmt.Errorf("failed to acknowledge move, rolled back: %w", err)
	}

	return nil
}

func (that *Handler) handleForfeitGame(c *clientConn, msg wire.Message) error {
	req, _ := msg.(*wire.ForfeitGame)

	undo, err := that.game.Forfeit(req.PlayerID)
	if err != nil {
		return c.replyError(err)
	}

	if err = c.write(&wire.Acknowledge{}); err != nil {
		undo()
		return fmt.Errorf("failed to acknowledge forfeit, rolled back: %w", err)
	}

	return nil
}

func isDecodeError(err error) bool {
	return errors.Is(err, wire.ErrUnknownMessageType) ||
		errors.Is(err, wire.ErrMalformedLength) ||
		errors.Is(err, apperror.ErrInvalidMatchState)
}

// isClientError reports errors caused by a misbehaving or outdated client rather than by the server.
func isClientError(err error) bool {
	for _, target := range []error{
		apperror.ErrPlayerNotFound,
		apperror.ErrSessionNotFound,
		apperror.ErrNotYourTurn,
		apperror.ErrGameFinished,
		apperror.ErrInvalidMatchState,
		apperror.ErrSessionAlreadyExists,
		ErrUnexpectedMessage,
	} {
		if errors.Is(err, target) {
			return true
		}
	}

	return false
}

func remoteAddr(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil {
		return addr.String()
	}

	return ""
}
