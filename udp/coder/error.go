package coder

import (
	"fmt"

	"github.com/plgd-dev/coapmsg/message"
)

var (
	ErrMessageTruncated            = fmt.Errorf("%w: message is truncated", message.ErrCorruptMessage)
	ErrMessageInvalidVersion       = fmt.Errorf("%w: message has invalid version", message.ErrInvalidArgument)
	ErrMessageInvalidTokenLen      = fmt.Errorf("%w: message has invalid token length", message.ErrCorruptMessage)
	ErrMessageInvalidCodeClass     = fmt.Errorf("%w: message has invalid code class", message.ErrCorruptMessage)
	ErrMessageInvalidPayloadMarker = fmt.Errorf("%w: payload marker expected", message.ErrCorruptMessage)
	ErrMessageMissingPayload       = fmt.Errorf("%w: payload marker without payload", message.ErrCorruptMessage)
)
