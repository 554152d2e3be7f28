package message

import (
	"fmt"
	"strconv"
)

// Type represents the message type carried in the datagram header.
type Type uint8

const (
	// Confirmable messages require acknowledgements.
	Confirmable Type = 0
	// NonConfirmable messages do not require acknowledgements.
	NonConfirmable Type = 1
	// Acknowledgement is a message indicating a response to confirmable message.
	Acknowledgement Type = 2
	// Reset indicates a permanent negative acknowledgement.
	Reset Type = 3
)

var typeToString = map[Type]string{
	Confirmable:     "Confirmable",
	NonConfirmable:  "NonConfirmable",
	Acknowledgement: "Acknowledgement",
	Reset:           "Reset",
}

func (t Type) String() string {
	val, ok := typeToString[t]
	if ok {
		return val
	}
	return "Type(" + strconv.FormatInt(int64(t), 10) + ")"
}

// ValidateType reports whether typ fits the 2-bit header field.
func ValidateType(typ Type) bool {
	return typ <= Reset
}

// ToType parses the name produced by Type.String.
func ToType(v string) (Type, error) {
	for t, s := range typeToString {
		if s == v {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidType, v)
}
