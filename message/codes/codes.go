package codes

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// A Code is an unsigned 8-bit number composed of a 3-bit class (most
// significant bits) and a 5-bit detail (least significant bits),
// written as "c.dd".
type Code uint8

// Code classes recognized by the datagram encoding.
const (
	ClassRequest     uint8 = 0
	ClassSuccess     uint8 = 2
	ClassClientError uint8 = 4
	ClassServerError uint8 = 5
)

const (
	MaxClass  uint8 = 7
	MaxDetail uint8 = 31
)

// Empty and request codes.
const (
	Empty  Code = 0
	GET    Code = 1
	POST   Code = 2
	PUT    Code = 3
	DELETE Code = 4
	FETCH  Code = 5
	PATCH  Code = 6
	IPATCH Code = 7
)

// Response codes.
const (
	Created                 Code = 65
	Deleted                 Code = 66
	Valid                   Code = 67
	Changed                 Code = 68
	Content                 Code = 69
	Continue                Code = 95
	BadRequest              Code = 128
	Unauthorized            Code = 129
	BadOption               Code = 130
	Forbidden               Code = 131
	NotFound                Code = 132
	MethodNotAllowed        Code = 133
	NotAcceptable           Code = 134
	RequestEntityIncomplete Code = 136
	Conflict                Code = 137
	PreconditionFailed      Code = 140
	RequestEntityTooLarge   Code = 141
	UnsupportedMediaType    Code = 143
	UnprocessableEntity     Code = 150
	TooManyRequests         Code = 157
	InternalServerError     Code = 160
	NotImplemented          Code = 161
	BadGateway              Code = 162
	ServiceUnavailable      Code = 163
	GatewayTimeout          Code = 164
	ProxyingNotSupported    Code = 165
	HopLimitReached         Code = 168
)

var (
	ErrInvalidClass  = errors.New("invalid code class")
	ErrInvalidDetail = errors.New("invalid code detail")
)

const _maxCode = 255

var strToCode = map[string]Code{}

func init() {
	for i := 0; i <= _maxCode; i++ {
		c := Code(i)
		strToCode[c.String()] = c
	}
}

// New composes a code from its class and detail.
func New(class, detail uint8) (Code, error) {
	if class > MaxClass {
		return 0, fmt.Errorf("%w: %v", ErrInvalidClass, class)
	}
	if detail > MaxDetail {
		return 0, fmt.Errorf("%w: %v", ErrInvalidDetail, detail)
	}
	return Code(class<<5 | detail), nil
}

// Class returns the top 3 bits of the code.
func (c Code) Class() uint8 {
	return uint8(c) >> 5
}

// Detail returns the low 5 bits of the code.
func (c Code) Detail() uint8 {
	return uint8(c) & 0x1f
}

// Dotted formats the code as "c.dd".
func (c Code) Dotted() string {
	return fmt.Sprintf("%d.%02d", c.Class(), c.Detail())
}

// ValidateClass reports whether class is one the datagram encoding accepts on the wire.
func ValidateClass(class uint8) bool {
	switch class {
	case ClassRequest, ClassSuccess, ClassClientError, ClassServerError:
		return true
	}
	return false
}

func (c Code) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.String())), nil
}

// UnmarshalJSON unmarshals b into the Code.
func (c *Code) UnmarshalJSON(b []byte) error {
	if c == nil {
		return errors.New("nil receiver passed to UnmarshalJSON")
	}
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid code %q: %w", b, err)
	}
	jc, err := ToCode(s)
	if err != nil {
		return err
	}
	*c = jc
	return nil
}

// ToCode parses a code name such as "Content" or its dotted "c.dd" form.
func ToCode(s string) (Code, error) {
	if c, ok := strToCode[s]; ok {
		return c, nil
	}
	class, detail, ok := strings.Cut(s, ".")
	if ok && len(class) == 1 && len(detail) == 2 {
		cl, errC := strconv.ParseUint(class, 10, 8)
		dt, errD := strconv.ParseUint(detail, 10, 8)
		if errC == nil && errD == nil {
			return New(uint8(cl), uint8(dt))
		}
	}
	return 0, fmt.Errorf("invalid code: %q", s)
}
