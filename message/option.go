package message

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

const (
	ExtendOptionByteCode   = 13
	ExtendOptionByteAddend = 13
	ExtendOptionWordCode   = 14
	ExtendOptionWordAddend = 269
	ExtendOptionError      = 15
)

// MaxOptionValueLength is the longest value the extended length field can express.
const MaxOptionValueLength = ExtendOptionWordAddend + math.MaxUint16

// OptionID identifies an option in a message.
type OptionID uint16

/*
   +-----+----+---+---+---+----------------+--------+--------+---------+
   | No. | C  | U | N | R | Name           | Format | Length | Default |
   +-----+----+---+---+---+----------------+--------+--------+---------+
   |   1 | x  |   |   | x | If-Match       | opaque | 0-8    | (none)  |
   |   3 | x  | x | - |   | Uri-Host       | string | 1-255  | (see    |
   |     |    |   |   |   |                |        |        | below)  |
   |   4 |    |   |   | x | ETag           | opaque | 1-8    | (none)  |
   |   5 | x  |   |   |   | If-None-Match  | empty  | 0      | (none)  |
   |   7 | x  | x | - |   | Uri-Port       | uint   | 0-2    | (see    |
   |     |    |   |   |   |                |        |        | below)  |
   |   8 |    |   |   | x | Location-Path  | string | 0-255  | (none)  |
   |  11 | x  | x | - | x | Uri-Path       | string | 0-255  | (none)  |
   |  12 |    |   |   |   | Content-Format | uint   | 0-2    | (none)  |
   |  14 |    | x | - |   | Max-Age        | uint   | 0-4    | 60      |
   |  15 | x  | x | - | x | Uri-Query      | string | 0-255  | (none)  |
   |  17 | x  |   |   |   | Accept         | uint   | 0-2    | (none)  |
   |  20 |    |   |   | x | Location-Query | string | 0-255  | (none)  |
   |  23 | x  | x | - | - | Block2         | uint   | 0-3    | (none)  |
   |  27 | x  | x | - | - | Block1         | uint   | 0-3    | (none)  |
   |  28 |    |   | x |   | Size2          | uint   | 0-4    | (none)  |
   |  35 | x  | x | - |   | Proxy-Uri      | string | 1-1034 | (none)  |
   |  39 | x  | x | - |   | Proxy-Scheme   | string | 1-255  | (none)  |
   |  60 |    |   | x |   | Size1          | uint   | 0-4    | (none)  |
   | 258 |    | x | - |   | No-Response    | uint   | 0-1    | 0       |
   +-----+----+---+---+---+----------------+--------+--------+---------+
   C=Critical, U=Unsafe, N=NoCacheKey, R=Repeatable
*/

// Option IDs.
const (
	IfMatch       OptionID = 1
	URIHost       OptionID = 3
	ETag          OptionID = 4
	IfNoneMatch   OptionID = 5
	Observe       OptionID = 6
	URIPort       OptionID = 7
	LocationPath  OptionID = 8
	URIPath       OptionID = 11
	ContentFormat OptionID = 12
	MaxAge        OptionID = 14
	URIQuery      OptionID = 15
	Accept        OptionID = 17
	LocationQuery OptionID = 20
	Block2        OptionID = 23
	Block1        OptionID = 27
	Size2         OptionID = 28
	ProxyURI      OptionID = 35
	ProxyScheme   OptionID = 39
	Size1         OptionID = 60
	NoResponse    OptionID = 258
)

var optionIDToString = map[OptionID]string{
	IfMatch:       "IfMatch",
	URIHost:       "URIHost",
	ETag:          "ETag",
	IfNoneMatch:   "IfNoneMatch",
	Observe:       "Observe",
	URIPort:       "URIPort",
	LocationPath:  "LocationPath",
	URIPath:       "URIPath",
	ContentFormat: "ContentFormat",
	MaxAge:        "MaxAge",
	URIQuery:      "URIQuery",
	Accept:        "Accept",
	LocationQuery: "LocationQuery",
	Block2:        "Block2",
	Block1:        "Block1",
	Size2:         "Size2",
	ProxyURI:      "ProxyURI",
	ProxyScheme:   "ProxyScheme",
	Size1:         "Size1",
	NoResponse:    "NoResponse",
}

func (o OptionID) String() string {
	str, ok := optionIDToString[o]
	if !ok {
		return "Option(" + strconv.FormatInt(int64(o), 10) + ")"
	}
	return str
}

// ToOptionID resolves a well-known option name or a plain decimal number.
func ToOptionID(v string) (OptionID, error) {
	for key, val := range optionIDToString {
		if val == v {
			return key, nil
		}
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: unknown option %q", ErrInvalidArgument, v)
	}
	return OptionID(n), nil
}

// MediaType specifies the content format of a message.
type MediaType uint16

// Content formats.
const (
	TextPlain     MediaType = 0     // text/plain;charset=utf-8
	AppLinkFormat MediaType = 40    // application/link-format
	AppXML        MediaType = 41    // application/xml
	AppOctets     MediaType = 42    // application/octet-stream
	AppExi        MediaType = 47    // application/exi
	AppJSON       MediaType = 50    // application/json
	AppCBOR       MediaType = 60    // application/cbor (RFC 7049)
	AppSenmlJSON  MediaType = 110   // application/senml+json
	AppSenmlCbor  MediaType = 112   // application/senml+cbor
	AppOcfCbor    MediaType = 10000 // application/vnd.ocf+cbor
	AppLwm2mTLV   MediaType = 11542 // application/vnd.oma.lwm2m+tlv
	AppLwm2mJSON  MediaType = 11543 // application/vnd.oma.lwm2m+json
)

var mediaTypeToString = map[MediaType]string{
	TextPlain:     "text/plain;charset=utf-8",
	AppLinkFormat: "application/link-format",
	AppXML:        "application/xml",
	AppOctets:     "application/octet-stream",
	AppExi:        "application/exi",
	AppJSON:       "application/json",
	AppCBOR:       "application/cbor",
	AppSenmlJSON:  "application/senml+json",
	AppSenmlCbor:  "application/senml+cbor",
	AppOcfCbor:    "application/vnd.ocf+cbor",
	AppLwm2mTLV:   "application/vnd.oma.lwm2m+tlv",
	AppLwm2mJSON:  "application/vnd.oma.lwm2m+json",
}

func (c MediaType) String() string {
	str, ok := mediaTypeToString[c]
	if !ok {
		return "unknown media type: 0x" + strconv.FormatInt(int64(c), 16)
	}
	return str
}

func ToMediaType(v string) (MediaType, error) {
	for key, val := range mediaTypeToString {
		if val == v {
			return key, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown media type %q", ErrInvalidArgument, v)
}

// Option is a single numbered value. Value is owned by the option.
type Option struct {
	ID    OptionID
	Value []byte
}

func (o Option) Len() int {
	return len(o.Value)
}

// Clone returns an option with its own copy of the value.
func (o Option) Clone() Option {
	var value []byte
	if len(o.Value) > 0 {
		value = append(make([]byte, 0, len(o.Value)), o.Value...)
	}
	return Option{ID: o.ID, Value: value}
}

func (o Option) String() string {
	return fmt.Sprintf("%v: %x", o.ID, o.Value)
}

// extendOpt splits a delta or length into its nibble code and extended value.
func extendOpt(opt int) (int, int) {
	ext := 0
	if opt >= ExtendOptionByteAddend {
		if opt >= ExtendOptionWordAddend {
			ext = opt - ExtendOptionWordAddend
			opt = ExtendOptionWordCode
		} else {
			ext = opt - ExtendOptionByteAddend
			opt = ExtendOptionByteCode
		}
	}
	return opt, ext
}

// extendOptSize is the number of extended bytes that follow the control byte for a nibble code.
func extendOptSize(code int) int {
	switch code {
	case ExtendOptionByteCode:
		return 1
	case ExtendOptionWordCode:
		return 2
	}
	return 0
}

func marshalOptionHeaderExt(buf []byte, code, ext int) int {
	switch code {
	case ExtendOptionByteCode:
		buf[0] = byte(ext)
		return 1
	case ExtendOptionWordCode:
		binary.BigEndian.PutUint16(buf, uint16(ext))
		return 2
	}
	return 0
}

// Size returns the number of bytes the option occupies on the wire after previousID.
func (o Option) Size(previousID OptionID) (int, error) {
	if o.ID < previousID {
		return -1, fmt.Errorf("%w: %v after %v", ErrOptionsUnsorted, o.ID, previousID)
	}
	if len(o.Value) > MaxOptionValueLength {
		return -1, fmt.Errorf("%w: %v bytes for %v", ErrInvalidValueLength, len(o.Value), o.ID)
	}
	d, _ := extendOpt(int(o.ID - previousID))
	l, _ := extendOpt(len(o.Value))
	return 1 + extendOptSize(d) + extendOptSize(l) + len(o.Value), nil
}

// Marshal encodes the option relative to previousID. When buf is too small it
// returns the required size together with ErrTooSmall.
func (o Option) Marshal(buf []byte, previousID OptionID) (int, error) {
	/*
	     0   1   2   3   4   5   6   7
	   +---------------+---------------+
	   |               |               |
	   |  Option Delta | Option Length |   1 byte
	   |               |               |
	   +---------------+---------------+
	   \                               \
	   /         Option Delta          /   0-2 bytes
	   \          (extended)           \
	   +-------------------------------+
	   \                               \
	   /         Option Length         /   0-2 bytes
	   \          (extended)           \
	   +-------------------------------+
	   \                               \
	   /                               /
	   \                               \
	   /         Option Value          /   0 or more bytes
	   \                               \
	   /                               /
	   \                               \
	   +-------------------------------+
	*/
	size, err := o.Size(previousID)
	if err != nil {
		return -1, err
	}
	if len(buf) < size {
		return size, ErrTooSmall
	}
	d, dx := extendOpt(int(o.ID - previousID))
	l, lx := extendOpt(len(o.Value))

	buf[0] = byte(d<<4) | byte(l)
	n := 1
	n += marshalOptionHeaderExt(buf[n:], d, dx)
	n += marshalOptionHeaderExt(buf[n:], l, lx)
	n += copy(buf[n:], o.Value)
	return n, nil
}

func parseExtOpt(data []byte, opt int) (int, int, error) {
	processed := 0
	switch opt {
	case ExtendOptionByteCode:
		if len(data) < 1 {
			return 0, -1, ErrOptionTruncated
		}
		opt = int(data[0]) + ExtendOptionByteAddend
		processed = 1
	case ExtendOptionWordCode:
		if len(data) < 2 {
			return 0, -1, ErrOptionTruncated
		}
		opt = int(binary.BigEndian.Uint16(data[:2])) + ExtendOptionWordAddend
		processed = 2
	}
	return processed, opt, nil
}

// Unmarshal decodes one option that follows an option numbered previousID.
// The value is copied out of data.
func (o *Option) Unmarshal(data []byte, previousID OptionID) (int, error) {
	if len(data) < 1 {
		return -1, ErrOptionTruncated
	}
	delta := int(data[0] >> 4)
	length := int(data[0] & 0x0f)
	if delta == ExtendOptionError || length == ExtendOptionError {
		return -1, ErrOptionUnexpectedExtendMarker
	}
	data = data[1:]
	processed := 1

	proc, delta, err := parseExtOpt(data, delta)
	if err != nil {
		return -1, err
	}
	processed += proc
	data = data[proc:]
	proc, length, err = parseExtOpt(data, length)
	if err != nil {
		return -1, err
	}
	processed += proc
	data = data[proc:]

	if len(data) < length {
		return -1, ErrOptionTruncated
	}
	id := int(previousID) + delta
	if id > math.MaxUint16 {
		return -1, fmt.Errorf("%w: %v", ErrOptionNumberOverflow, id)
	}
	o.ID = OptionID(id)
	o.Value = nil
	if length > 0 {
		o.Value = append(make([]byte, 0, length), data[:length]...)
	}
	return processed + length, nil
}
