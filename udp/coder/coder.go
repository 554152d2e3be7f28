package coder

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/plgd-dev/coapmsg/message"
	"github.com/plgd-dev/coapmsg/message/codes"
)

const (
	// HeaderSize is the size of the fixed datagram header.
	HeaderSize    = 4
	payloadMarker = 0xff
)

var DefaultCoder = new(Coder)

// Coder converts between message.Message and the RFC7252 datagram layout.
type Coder struct{}

// Size returns the number of bytes Encode needs for m.
func (c *Coder) Size(m *message.Message) (int, error) {
	size := HeaderSize + m.TokenLen()
	optionsLen, err := m.Options().Marshal(nil)
	if err != nil && !errors.Is(err, message.ErrTooSmall) {
		return -1, err
	}
	payloadLen := len(m.Payload())
	if payloadLen > 0 {
		// for separator 0xff
		payloadLen++
	}
	size += payloadLen + optionsLen
	return size, nil
}

// Encode validates m and writes it into buf. When buf is too small the
// required size is returned together with message.ErrTooSmall and buf
// content is undefined.
func (c *Coder) Encode(m *message.Message, buf []byte) (int, error) {
	/*
	     0                   1                   2                   3
	    0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |Ver| T |  TKL  |      Code     |          Message ID           |
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |   Token (if any, TKL bytes) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |   Options (if any) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	   |1 1 1 1 1 1 1 1|    Payload (if any) ...
	   +-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
	*/
	if err := m.Validate(); err != nil {
		return -1, err
	}
	size, err := c.Size(m)
	if err != nil {
		return -1, err
	}
	if len(buf) < size {
		return size, message.ErrTooSmall
	}

	n, err := encodeHeader(m, buf)
	if err != nil {
		return -1, err
	}
	written := n
	n, err = encodeToken(m, buf[written:])
	if err != nil {
		return -1, err
	}
	written += n
	n, err = m.Options().Marshal(buf[written:])
	if err != nil {
		return -1, err
	}
	written += n
	n, err = encodePayload(m, buf[written:])
	if err != nil {
		return -1, err
	}
	written += n
	return written, nil
}

func encodeHeader(m *message.Message, buf []byte) (int, error) {
	if len(buf) < HeaderSize {
		return HeaderSize, message.ErrTooSmall
	}
	buf[0] = message.Version<<6 | byte(m.Type()&0x3)<<4 | byte(0xf&m.TokenLen())
	buf[1] = byte(m.Code())
	binary.BigEndian.PutUint16(buf[2:4], uint16(m.MessageID()))
	return HeaderSize, nil
}

func encodeToken(m *message.Message, buf []byte) (int, error) {
	token := m.Token()
	if len(buf) < len(token) {
		return len(token), message.ErrTooSmall
	}
	return copy(buf, token), nil
}

func encodePayload(m *message.Message, buf []byte) (int, error) {
	payload := m.Payload()
	if len(payload) == 0 {
		return 0, nil
	}
	if len(buf) < len(payload)+1 {
		return len(payload) + 1, message.ErrTooSmall
	}
	buf[0] = payloadMarker
	return 1 + copy(buf[1:], payload), nil
}

// Decode parses data into m. m is reset first; on any error it is left reset,
// so a partially decoded message is never handed back.
func (c *Coder) Decode(data []byte, m *message.Message) (int, error) {
	m.Reset()
	n, err := decode(data, m)
	if err != nil {
		m.Reset()
		return -1, err
	}
	if err = m.Validate(); err != nil {
		m.Reset()
		return -1, err
	}
	return n, nil
}

func decode(data []byte, m *message.Message) (int, error) {
	processed, tokenLen, err := decodeHeader(data, m)
	if err != nil {
		return -1, err
	}
	data = data[processed:]

	n, err := decodeToken(data, tokenLen, m)
	if err != nil {
		return -1, err
	}
	processed += n
	data = data[n:]

	n, err = m.UnmarshalOptions(data)
	if err != nil {
		return -1, err
	}
	processed += n
	data = data[n:]

	n, err = decodePayload(data, m)
	if err != nil {
		return -1, err
	}
	return processed + n, nil
}

func decodeHeader(data []byte, m *message.Message) (int, int, error) {
	if len(data) < HeaderSize {
		return -1, -1, ErrMessageTruncated
	}
	if version := data[0] >> 6; version != message.Version {
		return -1, -1, fmt.Errorf("%w: %v", ErrMessageInvalidVersion, version)
	}
	typ := message.Type((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > message.MaxTokenSize {
		return -1, -1, fmt.Errorf("%w: %v", ErrMessageInvalidTokenLen, tokenLen)
	}
	code := codes.Code(data[1])
	if !codes.ValidateClass(code.Class()) {
		return -1, -1, fmt.Errorf("%w: %v", ErrMessageInvalidCodeClass, code.Class())
	}
	if err := m.SetType(typ); err != nil {
		return -1, -1, err
	}
	m.SetCode(code)
	if err := m.SetMessageID(int32(binary.BigEndian.Uint16(data[2:4]))); err != nil {
		return -1, -1, err
	}
	return HeaderSize, tokenLen, nil
}

func decodeToken(data []byte, tokenLen int, m *message.Message) (int, error) {
	if len(data) < tokenLen {
		return -1, ErrMessageTruncated
	}
	if err := m.SetToken(data[:tokenLen]); err != nil {
		return -1, err
	}
	return tokenLen, nil
}

func decodePayload(data []byte, m *message.Message) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	if data[0] != payloadMarker {
		return -1, fmt.Errorf("%w: 0x%02x", ErrMessageInvalidPayloadMarker, data[0])
	}
	if len(data) == 1 {
		return -1, ErrMessageMissingPayload
	}
	m.SetPayload(data[1:])
	return len(data), nil
}

// PeekTypeMessageID reads the type and message id from the header of data
// without decoding the rest of the datagram.
func PeekTypeMessageID(data []byte) (message.Type, int32, error) {
	if len(data) < HeaderSize {
		return 0, -1, ErrMessageTruncated
	}
	typ := message.Type((data[0] >> 4) & 0x3)
	return typ, int32(binary.BigEndian.Uint16(data[2:4])), nil
}
