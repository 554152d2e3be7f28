package message

import (
	"fmt"

	"github.com/plgd-dev/coapmsg/message/codes"
)

// Version is the only protocol version the datagram encoding supports.
const Version = 1

// Message is a datagram message. The zero value is an empty Confirmable
// message with message id 0. A Message owns its token, options and payload:
// setters copy their input and accessors must not be used to mutate it.
type Message struct {
	typ       Type
	code      codes.Code
	messageID int32
	token     [MaxTokenSize]byte
	tokenLen  uint8
	options   Options
	payload   []byte
}

// NewMessage returns a message in its default state.
func NewMessage() *Message {
	return &Message{}
}

// Reset releases every owned buffer and returns the message to its default state.
func (m *Message) Reset() {
	*m = Message{}
}

func (m *Message) Version() uint8 {
	return Version
}

func (m *Message) Type() Type {
	return m.typ
}

func (m *Message) SetType(typ Type) error {
	if !ValidateType(typ) {
		return fmt.Errorf("%w: %v", ErrInvalidType, typ)
	}
	m.typ = typ
	return nil
}

func (m *Message) Code() codes.Code {
	return m.code
}

func (m *Message) SetCode(code codes.Code) {
	m.code = code
}

// SetCodeClassDetail sets the code from its class (0-7) and detail (0-31).
func (m *Message) SetCodeClassDetail(class, detail uint8) error {
	code, err := codes.New(class, detail)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCode, err)
	}
	m.code = code
	return nil
}

// MessageID returns 0 to 2^16-1.
func (m *Message) MessageID() int32 {
	return m.messageID
}

// SetMessageID only 0 to 2^16-1 are valid.
func (m *Message) SetMessageID(mid int32) error {
	if !ValidateMID(mid) {
		return fmt.Errorf("%w: %v", ErrInvalidMessageID, mid)
	}
	m.messageID = mid
	return nil
}

// Token returns a copy of the token, nil when the message has none.
func (m *Message) Token() Token {
	if m.tokenLen == 0 {
		return nil
	}
	return append(make(Token, 0, m.tokenLen), m.token[:m.tokenLen]...)
}

func (m *Message) TokenLen() int {
	return int(m.tokenLen)
}

func (m *Message) SetToken(token []byte) error {
	if len(token) > MaxTokenSize {
		return fmt.Errorf("%w: %v", ErrInvalidTokenLen, len(token))
	}
	m.token = [MaxTokenSize]byte{}
	m.tokenLen = uint8(copy(m.token[:], token))
	return nil
}

// Options returns the option collection. It is shared with the message and
// must be treated as read-only; use AddOption to extend it.
func (m *Message) Options() Options {
	return m.options
}

// AddOption copies value into a new option placed according to its number.
func (m *Message) AddOption(id OptionID, value []byte) error {
	if len(value) > MaxOptionValueLength {
		return fmt.Errorf("%w: %v bytes for %v", ErrInvalidValueLength, len(value), id)
	}
	m.options = m.options.Add(Option{ID: id, Value: value}.Clone())
	return nil
}

// AddOptionUint32 adds a uint option in its minimal encoding.
func (m *Message) AddOptionUint32(id OptionID, value uint32) error {
	var buf [4]byte
	n, err := EncodeUint32(buf[:], value)
	if err != nil {
		return err
	}
	return m.AddOption(id, buf[:n])
}

func (m *Message) AddOptionString(id OptionID, value string) error {
	return m.AddOption(id, []byte(value))
}

// RemoveOption drops every option with the given number.
func (m *Message) RemoveOption(id OptionID) {
	m.options = m.options.Remove(id)
}

// UnmarshalOptions decodes the option sequence of a datagram into the message.
// Values are copied out of data.
func (m *Message) UnmarshalOptions(data []byte) (int, error) {
	return m.options.Unmarshal(data)
}

func (m *Message) Payload() []byte {
	return m.payload
}

// SetPayload copies payload into the message. An empty payload clears it.
func (m *Message) SetPayload(payload []byte) {
	if len(payload) == 0 {
		m.payload = nil
		return
	}
	m.payload = append(make([]byte, 0, len(payload)), payload...)
}

// IsEmpty reports whether the code is 0.00.
func (m *Message) IsEmpty() bool {
	return m.code == codes.Empty
}

// Validate checks the rules that tie header fields to the message content:
// the code class must be one the datagram encoding carries (0, 2, 4 or 5),
// an empty message (code 0.00) must not be Non-confirmable and must carry no
// token, options or payload, and any other message must not be a Reset.
func (m *Message) Validate() error {
	if !codes.ValidateClass(m.code.Class()) {
		return fmt.Errorf("%w: %v", ErrInvalidCodeClass, m.code.Dotted())
	}
	if m.IsEmpty() {
		switch {
		case m.typ == NonConfirmable:
			return fmt.Errorf("%w: type %v", ErrInvalidEmptyMessage, m.typ)
		case m.tokenLen != 0:
			return fmt.Errorf("%w: token length %v", ErrInvalidEmptyMessage, m.tokenLen)
		case !m.options.IsEmpty():
			return fmt.Errorf("%w: %v options", ErrInvalidEmptyMessage, len(m.options))
		case len(m.payload) != 0:
			return fmt.Errorf("%w: payload length %v", ErrInvalidEmptyMessage, len(m.payload))
		}
		return nil
	}
	if m.typ == Reset {
		return fmt.Errorf("%w: code %v", ErrInvalidResetMessage, m.code)
	}
	return nil
}

// Clone resets dst and copies m into it through the public setters.
func (m *Message) Clone(dst *Message) error {
	dst.Reset()
	if err := dst.SetType(m.Type()); err != nil {
		return err
	}
	if err := dst.SetCodeClassDetail(m.Code().Class(), m.Code().Detail()); err != nil {
		return err
	}
	if err := dst.SetMessageID(m.MessageID()); err != nil {
		return err
	}
	if err := dst.SetToken(m.Token()); err != nil {
		return err
	}
	for _, o := range m.Options() {
		if err := dst.AddOption(o.ID, o.Value); err != nil {
			return err
		}
	}
	dst.SetPayload(m.Payload())
	return nil
}

func (m *Message) String() string {
	if m == nil {
		return "nil"
	}
	buf := fmt.Sprintf("Type: %v, Code: %v, MessageID: %v", m.typ, m.code, m.messageID)
	if m.tokenLen > 0 {
		buf = fmt.Sprintf("%s, Token: %v", buf, m.Token())
	}
	path, err := m.options.Path()
	if err == nil {
		buf = fmt.Sprintf("%s, Path: %v", buf, path)
	}
	cf, err := m.options.ContentFormat()
	if err == nil {
		buf = fmt.Sprintf("%s, ContentFormat: %v", buf, cf)
	}
	queries, err := m.options.Queries()
	if err == nil {
		buf = fmt.Sprintf("%s, Queries: %+v", buf, queries)
	}
	if len(m.options) > 0 {
		buf = fmt.Sprintf("%s, Options: %v", buf, len(m.options))
	}
	if len(m.payload) > 0 {
		buf = fmt.Sprintf("%s, PayloadLen: %v", buf, len(m.payload))
	}
	return buf
}
