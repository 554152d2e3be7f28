// Package msgfile builds messages from TOML descriptions.
//
//	type = "Confirmable"
//	code = "POST"
//	message_id = 4660
//	token = "cafe"
//	path = "/sensors/temp"
//	queries = ["unit=c"]
//	content_format = "application/json"
//	payload = '{"t":21}'
//
//	[[options]]
//	id = "ETag"
//	hex = "0102"
package msgfile

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/plgd-dev/coapmsg/message"
	"github.com/plgd-dev/coapmsg/message/codes"
	pkgMath "github.com/plgd-dev/coapmsg/pkg/math"
)

type optionEntry struct {
	ID    string `toml:"id"`
	Value string `toml:"value"`
	Hex   string `toml:"hex"`
	Uint  int64  `toml:"uint"`
}

type fileMessage struct {
	Type          string        `toml:"type"`
	Code          string        `toml:"code"`
	MessageID     int64         `toml:"message_id"`
	Token         string        `toml:"token"`
	TokenLength   int           `toml:"token_length"`
	Path          string        `toml:"path"`
	Queries       []string      `toml:"queries"`
	ContentFormat string        `toml:"content_format"`
	Payload       string        `toml:"payload"`
	PayloadHex    string        `toml:"payload_hex"`
	Options       []optionEntry `toml:"options"`
}

var shortTypes = map[string]message.Type{
	"CON": message.Confirmable,
	"NON": message.NonConfirmable,
	"ACK": message.Acknowledgement,
	"RST": message.Reset,
}

// LoadFile reads the description stored at path.
func LoadFile(path string) (*message.Message, error) {
	var raw fileMessage
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load message file: %w", err)
	}
	return build(raw, meta, rand.Reader)
}

// Decode reads a description from r. Generated tokens are read from tokenSrc.
func Decode(r io.Reader, tokenSrc io.Reader) (*message.Message, error) {
	var raw fileMessage
	meta, err := toml.NewDecoder(r).Decode(&raw)
	if err != nil {
		return nil, fmt.Errorf("decode message file: %w", err)
	}
	return build(raw, meta, tokenSrc)
}

func build(raw fileMessage, meta toml.MetaData, tokenSrc io.Reader) (*message.Message, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	m := message.NewMessage()

	if meta.IsDefined("type") {
		typ, err := parseType(raw.Type)
		if err != nil {
			return nil, fmt.Errorf("parse type: %w", err)
		}
		if err = m.SetType(typ); err != nil {
			return nil, err
		}
	}

	if meta.IsDefined("code") {
		code, err := codes.ToCode(strings.TrimSpace(raw.Code))
		if err != nil {
			return nil, fmt.Errorf("parse code: %w", err)
		}
		m.SetCode(code)
	}

	mid := message.GetMID()
	if meta.IsDefined("message_id") {
		v, err := pkgMath.SafeCastTo[int32](raw.MessageID)
		if err != nil {
			return nil, fmt.Errorf("parse message_id: %w: %w", message.ErrInvalidMessageID, err)
		}
		mid = v
	}
	if err := m.SetMessageID(mid); err != nil {
		return nil, err
	}

	if err := setToken(m, raw, meta, tokenSrc); err != nil {
		return nil, err
	}

	if err := setOptions(m, raw, meta); err != nil {
		return nil, err
	}

	switch {
	case meta.IsDefined("payload") && meta.IsDefined("payload_hex"):
		return nil, errors.New("payload and payload_hex are mutually exclusive")
	case meta.IsDefined("payload_hex"):
		payload, err := hex.DecodeString(raw.PayloadHex)
		if err != nil {
			return nil, fmt.Errorf("parse payload_hex: %w", err)
		}
		m.SetPayload(payload)
	default:
		m.SetPayload([]byte(raw.Payload))
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseType(v string) (message.Type, error) {
	v = strings.TrimSpace(v)
	if typ, ok := shortTypes[strings.ToUpper(v)]; ok {
		return typ, nil
	}
	return message.ToType(v)
}

func setToken(m *message.Message, raw fileMessage, meta toml.MetaData, tokenSrc io.Reader) error {
	if meta.IsDefined("token") && meta.IsDefined("token_length") {
		return errors.New("token and token_length are mutually exclusive")
	}
	var token message.Token
	var err error
	switch {
	case meta.IsDefined("token"):
		token, err = hex.DecodeString(raw.Token)
		if err != nil {
			return fmt.Errorf("parse token: %w", err)
		}
	case meta.IsDefined("token_length"):
		token, err = message.GenerateToken(tokenSrc, raw.TokenLength)
		if err != nil {
			return err
		}
	}
	return m.SetToken(token)
}

func setOptions(m *message.Message, raw fileMessage, meta toml.MetaData) error {
	if meta.IsDefined("path") {
		for _, s := range strings.Split(raw.Path, "/") {
			if s == "" {
				continue
			}
			if err := m.AddOptionString(message.URIPath, s); err != nil {
				return fmt.Errorf("parse path: %w", err)
			}
		}
	}
	for _, q := range raw.Queries {
		if err := m.AddOptionString(message.URIQuery, q); err != nil {
			return fmt.Errorf("parse queries: %w", err)
		}
	}
	if meta.IsDefined("content_format") {
		cf, err := parseMediaType(raw.ContentFormat)
		if err != nil {
			return fmt.Errorf("parse content_format: %w", err)
		}
		if err = m.AddOptionUint32(message.ContentFormat, uint32(cf)); err != nil {
			return err
		}
	}
	for i, o := range raw.Options {
		if err := addOption(m, o); err != nil {
			return fmt.Errorf("parse options[%v]: %w", i, err)
		}
	}
	return nil
}

func parseMediaType(v string) (message.MediaType, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseUint(v, 10, 16); err == nil {
		return message.MediaType(n), nil
	}
	return message.ToMediaType(v)
}

func addOption(m *message.Message, o optionEntry) error {
	id, err := message.ToOptionID(strings.TrimSpace(o.ID))
	if err != nil {
		return err
	}
	set := 0
	for _, v := range []bool{o.Value != "", o.Hex != "", o.Uint != 0} {
		if v {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("%v: value, hex and uint are mutually exclusive", id)
	}
	switch {
	case o.Hex != "":
		value, err := hex.DecodeString(o.Hex)
		if err != nil {
			return fmt.Errorf("%v: %w", id, err)
		}
		return m.AddOption(id, value)
	case o.Uint != 0:
		v, err := pkgMath.SafeCastTo[uint32](o.Uint)
		if err != nil {
			return fmt.Errorf("%v: %w", id, err)
		}
		return m.AddOptionUint32(id, v)
	}
	return m.AddOptionString(id, o.Value)
}
