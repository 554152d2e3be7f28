package message

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"time"

	pkgRand "github.com/plgd-dev/coapmsg/pkg/rand"
	"go.uber.org/atomic"
)

// MIDGenerator hands out sequential message ids starting at a random offset.
type MIDGenerator struct {
	next atomic.Uint32
}

// NewMIDGenerator creates a generator whose first id follows start.
func NewMIDGenerator(start uint16) *MIDGenerator {
	g := &MIDGenerator{}
	g.next.Store(uint32(start))
	return g
}

// Next returns the next message id. (0 <= mid <= 65535)
func (g *MIDGenerator) Next() int32 {
	return int32(uint16(g.next.Inc()))
}

// seeded at package initialization
var (
	weakRng       = pkgRand.NewRand(time.Now().UnixNano())
	defaultMIDGen = NewMIDGenerator(uint16(RandMID()))
)

// GetMID generates a message id for UDP. (0 <= mid <= 65535)
func GetMID() int32 {
	return defaultMIDGen.Next()
}

func RandMID() int32 {
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		// fallback to cryptographically insecure pseudo-random generator
		return int32(uint16(weakRng.Uint32() >> 16))
	}
	return int32(uint16(binary.BigEndian.Uint32(b)))
}

// ValidateMID validates a message id for UDP. (0 <= mid <= 65535)
func ValidateMID(mid int32) bool {
	return mid >= 0 && mid <= math.MaxUint16
}
