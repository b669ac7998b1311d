package tcp

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rocketscienceinc/boardgames-server/internal/transport/wire"
)

// clientConn is owned by a single handler goroutine.
type clientConn struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
	log     *slog.Logger
}

func (that *clientConn) read() (wire.Message, error) {
	if err := that.conn.SetReadDeadline(that.deadline()); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	msg, err := wire.Read(that.reader)
	if err != nil {
		return nil, err
	}

	return msg, nil
}

func (that *clientConn) readExpected(expected wire.Type) (wire.Message, error) {
	msg, err := that.read()
	if err != nil {
		return nil, err
	}

	if msg.Type() != expected {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedMessage, expected, msg.Type())
	}

	return msg, nil
}

func (that *clientConn) write(msg wire.Message) error {
	if err := that.conn.SetWriteDeadline(that.deadline()); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}

	return wire.Write(that.conn, msg)
}

func (that *clientConn) writeBestEffort(msg wire.Message) {
	if err := that.write(msg); err != nil {
		that.log.Debug("failed to send reply", "type", msg.Type().String(), "error", err)
	}
}

// replyError tells the client what went wrong and returns cause for logging.
func (that *clientConn) replyError(cause error) error {
	that.writeBestEffort(&wire.Error{Msg: cause.Error()})
	return cause
}

func (that *clientConn) deadline() time.Time {
	if that.timeout <= 0 {
		return time.Time{}
	}

	return time.Now().Add(that.timeout)
}
