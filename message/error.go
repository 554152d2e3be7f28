package message

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this module wraps exactly one of them.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrCorruptMessage  = errors.New("corrupt message")
	ErrOutOfMemory     = errors.New("out of memory")
	// ErrTooSmall is returned when a destination buffer cannot hold the encoded data.
	ErrTooSmall = errors.New("too small bytes buffer")
)

var (
	ErrInvalidTokenLen              = fmt.Errorf("%w: invalid token length", ErrInvalidArgument)
	ErrInvalidType                  = fmt.Errorf("%w: invalid message type", ErrInvalidArgument)
	ErrInvalidMessageID             = fmt.Errorf("%w: invalid message id", ErrInvalidArgument)
	ErrInvalidCode                  = fmt.Errorf("%w: invalid code", ErrInvalidArgument)
	ErrInvalidValueLength           = fmt.Errorf("%w: invalid option value length", ErrInvalidArgument)
	ErrOptionsUnsorted              = fmt.Errorf("%w: options are not sorted by number", ErrInvalidArgument)
	ErrOptionNotFound               = errors.New("option not found")
	ErrInvalidEncoding              = fmt.Errorf("%w: invalid encoding", ErrInvalidArgument)
	ErrOptionTruncated              = fmt.Errorf("%w: option is truncated", ErrCorruptMessage)
	ErrOptionUnexpectedExtendMarker = fmt.Errorf("%w: option contains reserved extend marker", ErrCorruptMessage)
	ErrOptionNumberOverflow         = fmt.Errorf("%w: option number overflows", ErrCorruptMessage)
	ErrInvalidCodeClass             = fmt.Errorf("%w: code class is reserved", ErrCorruptMessage)
	ErrInvalidEmptyMessage          = fmt.Errorf("%w: empty message carries data or is non-confirmable", ErrCorruptMessage)
	ErrInvalidResetMessage          = fmt.Errorf("%w: reset message is not empty", ErrCorruptMessage)
)
