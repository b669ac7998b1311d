package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/rocketscienceinc/boardgames-server/internal/apperror"
	"github.com/rocketscienceinc/boardgames-server/internal/entity"
)

// MaxFieldSize caps every length prefix (string bytes, blob bytes, list counts) accepted from a peer.
const MaxFieldSize = 16 << 20

// fields above this size are read in steps, so memory follows the bytes actually received.
const chunkSize = 64 << 10

var (
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrMalformedLength    = errors.New("malformed length")
	ErrTrailingData       = errors.New("trailing data after message")
	ErrNilMessage         = errors.New("nil message")
)

// Encode serializes a message into its wire form.
func Encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}

	w := &writer{}
	w.byte(byte(msg.Type()))
	msg.encode(w)

	if w.err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", msg.Type(), w.err)
	}

	return w.buf, nil
}

// Decode parses exactly one message from data. Blobs are never nil after decoding:
// a nil blob encodes like an empty one and decodes as []byte{}.
func Decode(data []byte) (Message, error) {
	src := bytes.NewReader(data)

	msg, err := Read(src)
	if err != nil {
		return nil, err
	}

	if src.Len() != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTrailingData, src.Len())
	}

	return msg, nil
}

// Write encodes msg and writes it with a single call to w.
func Write(w io.Writer, msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return err
	}

	if _, err = w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", msg.Type(), err)
	}

	return nil
}

// Read reads the next message from src. It never reads past the end of that message
// unless src is buffered, in which case the caller must keep using the same src.
func Read(src io.Reader) (Message, error) {
	r := newReader(src)

	tag, err := r.br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read message type: %w", err)
	}

	msg, err := newMessage(Type(tag))
	if err != nil {
		return nil, err
	}

	if err = msg.decode(r); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", msg.Type(), err)
	}

	return msg, nil
}

func newMessage(t Type) (Message, error) {
	switch t {
	case TypeError:
		return &Error{}, nil
	case TypeAcknowledge:
		return &Acknowledge{}, nil
	case TypeFindGame:
		return &FindGame{}, nil
	case TypeSuccessfullyInQueue:
		return &SuccessfullyInQueue{}, nil
	case TypeCheckOpponentFound:
		return &CheckOpponentFound{}, nil
	case TypeFoundOpponent:
		return &FoundOpponent{}, nil
	case TypeNewBoard:
		return &NewBoard{}, nil
	case TypeGetGameState:
		return &GetGameState{}, nil
	case TypeGameState:
		return &GameState{}, nil
	case TypeMakeMove:
		return &MakeMove{}, nil
	case TypeForfeitGame:
		return &ForfeitGame{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageType, byte(t))
	}
}

type writer struct {
	buf []byte
	err error
}

func (that *writer) byte(b byte) {
	that.buf = append(that.buf, b)
}

func (that *writer) bool(v bool) {
	if v {
		that.byte(1)
		return
	}
	that.byte(0)
}

func (that *writer) uint64(v uint64) {
	that.buf = binary.LittleEndian.AppendUint64(that.buf, v)
}

func (that *writer) int32(v int32) {
	that.buf = binary.LittleEndian.AppendUint32(that.buf, uint32(v))
}

func (that *writer) length(n int) {
	if n > MaxFieldSize {
		that.fail(fmt.Errorf("%w: %d", ErrMalformedLength, n))
		return
	}
	that.int32(int32(n))
}

// string uses the 7-bit encoded length prefix of .NET's BinaryWriter.
func (that *writer) string(s string) {
	if len(s) > MaxFieldSize {
		that.fail(fmt.Errorf("%w: string of %d bytes", ErrMalformedLength, len(s)))
		return
	}
	that.buf = binary.AppendUvarint(that.buf, uint64(len(s)))
	that.buf = append(that.buf, s...)
}

func (that *writer) bytes(b []byte) {
	that.length(len(b))
	that.buf = append(that.buf, b...)
}

func (that *writer) bytesList(list [][]byte) {
	that.length(len(list))
	for _, b := range list {
		that.bytes(b)
	}
}

func (that *writer) matchState(state entity.MatchState) {
	if !state.IsValid() {
		that.fail(fmt.Errorf("%w: %d", apperror.ErrInvalidMatchState, byte(state)))
		return
	}
	that.byte(byte(state))
}

func (that *writer) fail(err error) {
	if that.err == nil {
		that.err = err
	}
}

// reader keeps the first error; every later call is a no-op returning zero values.
type reader struct {
	src io.Reader
	br  io.ByteReader
	err error
}

type byteReader struct {
	io.Reader
	one [1]byte
}

func (that *byteReader) ReadByte() (byte, error) {
	if _, err := io.ReadFull(that.Reader, that.one[:]); err != nil {
		return 0, err
	}
	return that.one[0], nil
}

func newReader(src io.Reader) *reader {
	br, ok := src.(io.ByteReader)
	if !ok {
		wrapped := &byteReader{Reader: src}
		return &reader{src: wrapped, br: wrapped}
	}

	return &reader{src: src, br: br}
}

func (that *reader) fail(err error) {
	if that.err == nil {
		that.err = err
	}
}

func (that *reader) full(n int) []byte {
	if that.err != nil {
		return nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(that.src, buf); err != nil {
		that.fail(unexpectedEOF(err))
		return nil
	}

	return buf
}

// payload reads a length-prefixed field body.
func (that *reader) payload(n int) []byte {
	if n <= chunkSize {
		return that.full(n)
	}

	if that.err != nil {
		return nil
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, that.src, int64(n)); err != nil {
		that.fail(unexpectedEOF(err))
		return nil
	}

	return buf.Bytes()
}

func (that *reader) byte() byte {
	if that.err != nil {
		return 0
	}

	b, err := that.br.ReadByte()
	if err != nil {
		that.fail(unexpectedEOF(err))
		return 0
	}

	return b
}

func (that *reader) bool() bool {
	return that.byte() != 0
}

func (that *reader) uint64() uint64 {
	buf := that.full(8)
	if buf == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(buf)
}

func (that *reader) int32() int32 {
	buf := that.full(4)
	if buf == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(buf))
}

func (that *reader) length() int {
	n := that.int32()
	if that.err != nil {
		return 0
	}

	if n < 0 || n > MaxFieldSize {
		that.fail(fmt.Errorf("%w: %d", ErrMalformedLength, n))
		return 0
	}

	return int(n)
}

func (that *reader) string() string {
	if that.err != nil {
		return ""
	}

	n, err := binary.ReadUvarint(that.br)
	if err != nil {
		that.fail(unexpectedEOF(err))
		return ""
	}

	if n > MaxFieldSize {
		that.fail(fmt.Errorf("%w: string of %d bytes", ErrMalformedLength, n))
		return ""
	}

	return string(that.payload(int(n)))
}

func (that *reader) bytes() []byte {
	n := that.length()
	if that.err != nil {
		return nil
	}

	return that.payload(n)
}

func (that *reader) bytesList() [][]byte {
	n := that.length()
	if that.err != nil {
		return nil
	}

	list := make([][]byte, 0, min(n, 64))
	for range n {
		b := that.bytes()
		if that.err != nil {
			return nil
		}
		list = append(list, b)
	}

	return list
}

func (that *reader) matchState() entity.MatchState {
	state := entity.MatchState(that.byte())
	if that.err != nil {
		return 0
	}

	if !state.IsValid() {
		that.fail(fmt.Errorf("%w: %d", apperror.ErrInvalidMatchState, byte(state)))
		return 0
	}

	return state
}

// unexpectedEOF turns a clean EOF in the middle of a message into io.ErrUnexpectedEOF.
func unexpectedEOF(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}
