package pool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/golib/memfile"
	multierror "github.com/hashicorp/go-multierror"
	"github.com/plgd-dev/coapmsg/message"
	"github.com/plgd-dev/coapmsg/message/codes"
	pkgMath "github.com/plgd-dev/coapmsg/pkg/math"
)

// ErrStorageExceeded is returned when a message would hold more data than its
// storage budget allows.
var ErrStorageExceeded = fmt.Errorf("%w: message storage budget exceeded", message.ErrOutOfMemory)

type Encoder interface {
	Size(m *message.Message) (int, error)
	Encode(m *message.Message, buf []byte) (int, error)
}

type Decoder interface {
	Decode(buf []byte, m *message.Message) (int, error)
}

// Message wraps message.Message with a request context, a seekable body and
// a storage budget. The payload lives in the body; the wrapped message never
// carries one between calls.
type Message struct {
	// Context context of request.
	ctx  context.Context
	msg  message.Message
	body io.ReadSeeker
	// maxSize bounds token, option values and body together; 0 disables the check.
	maxSize int

	// local vars
	bufferMarshal []byte
}

func NewMessage(ctx context.Context) *Message {
	return &Message{
		ctx:           ctx,
		bufferMarshal: make([]byte, 256),
	}
}

func (r *Message) Context() context.Context {
	return r.ctx
}

func (r *Message) SetContext(ctx context.Context) {
	r.ctx = ctx
}

// MaxSize returns the storage budget in bytes, 0 when unlimited.
func (r *Message) MaxSize() int {
	return r.maxSize
}

// SetMaxSize sets the storage budget. Content already stored is not checked.
func (r *Message) SetMaxSize(maxSize int) {
	r.maxSize = maxSize
}

// SetMessage replaces the content with a copy of m.
func (r *Message) SetMessage(m *message.Message) error {
	r.Reset()
	if err := r.reserve(m.TokenLen() + optionsStorage(m.Options()) + len(m.Payload())); err != nil {
		return err
	}
	if err := m.Clone(&r.msg); err != nil {
		return err
	}
	if len(m.Payload()) > 0 {
		r.body = memfile.New(append([]byte(nil), m.Payload()...))
		r.msg.SetPayload(nil)
	}
	return nil
}

// SetMessageID only 0 to 2^16-1 are valid.
func (r *Message) SetMessageID(mid int32) error {
	return r.msg.SetMessageID(mid)
}

// MessageID returns 0 to 2^16-1.
func (r *Message) MessageID() int32 {
	return r.msg.MessageID()
}

func (r *Message) SetType(typ message.Type) error {
	return r.msg.SetType(typ)
}

func (r *Message) Type() message.Type {
	return r.msg.Type()
}

// Reset clear message for next reuse
func (r *Message) Reset() {
	r.msg.Reset()
	r.body = nil
	if cap(r.bufferMarshal) > 1024 {
		r.bufferMarshal = make([]byte, 256)
	}
}

func (r *Message) Code() codes.Code {
	return r.msg.Code()
}

func (r *Message) SetCode(code codes.Code) {
	r.msg.SetCode(code)
}

func (r *Message) Token() message.Token {
	return r.msg.Token()
}

func (r *Message) SetToken(token message.Token) error {
	if err := r.reserve(len(token) - r.msg.TokenLen()); err != nil {
		return err
	}
	return r.msg.SetToken(token)
}

func (r *Message) Options() message.Options {
	return r.msg.Options()
}

func (r *Message) HasOption(id message.OptionID) bool {
	return r.msg.Options().HasOption(id)
}

func (r *Message) Remove(opt message.OptionID) {
	r.msg.RemoveOption(opt)
}

func (r *Message) AddOptionBytes(opt message.OptionID, value []byte) error {
	if err := r.reserve(len(value)); err != nil {
		return err
	}
	return r.msg.AddOption(opt, value)
}

func (r *Message) AddOptionString(opt message.OptionID, value string) error {
	return r.AddOptionBytes(opt, []byte(value))
}

func (r *Message) AddOptionUint32(opt message.OptionID, value uint32) error {
	var buf [4]byte
	n, err := message.EncodeUint32(buf[:], value)
	if err != nil {
		return err
	}
	return r.AddOptionBytes(opt, buf[:n])
}

// SetOptionBytes replaces every option with the given ID by a single one.
func (r *Message) SetOptionBytes(opt message.OptionID, value []byte) error {
	if err := r.reserve(len(value) - optionsStorage(r.optionsWithID(opt))); err != nil {
		return err
	}
	r.msg.RemoveOption(opt)
	return r.msg.AddOption(opt, value)
}

func (r *Message) SetOptionUint32(opt message.OptionID, value uint32) error {
	var buf [4]byte
	n, err := message.EncodeUint32(buf[:], value)
	if err != nil {
		return err
	}
	return r.SetOptionBytes(opt, buf[:n])
}

// GetOptionBytes gets bytes of the first option with given ID.
func (r *Message) GetOptionBytes(id message.OptionID) ([]byte, error) {
	return r.msg.Options().GetBytes(id)
}

func (r *Message) GetOptionUint32(id message.OptionID) (uint32, error) {
	return r.msg.Options().GetUint32(id)
}

func (r *Message) optionsWithID(id message.OptionID) message.Options {
	opts := r.msg.Options()
	first, last, err := opts.Find(id)
	if err != nil {
		return nil
	}
	return opts[first:last]
}

func (r *Message) Path() (string, error) {
	return r.msg.Options().Path()
}

// SetPath stores the given path within URI-Path options. Empty segments are
// skipped; a segment longer than 255 bytes is rejected with
// message.ErrInvalidValueLength.
func (r *Message) SetPath(p string) error {
	segments := make([]string, 0, strings.Count(p, "/")+1)
	size := 0
	for _, s := range strings.Split(p, "/") {
		if s == "" {
			continue
		}
		if len(s) > maxURIPathLen {
			return fmt.Errorf("cannot set path: %w: segment of %v bytes", message.ErrInvalidValueLength, len(s))
		}
		segments = append(segments, s)
		size += len(s)
	}
	if err := r.reserve(size - optionsStorage(r.optionsWithID(message.URIPath))); err != nil {
		return fmt.Errorf("cannot set path: %w", err)
	}
	r.msg.RemoveOption(message.URIPath)
	for _, s := range segments {
		if err := r.msg.AddOptionString(message.URIPath, s); err != nil {
			return fmt.Errorf("cannot set path: %w", err)
		}
	}
	return nil
}

const maxURIPathLen = 255

func (r *Message) Queries() ([]string, error) {
	return r.msg.Options().Queries()
}

func (r *Message) AddQuery(query string) error {
	return r.AddOptionString(message.URIQuery, query)
}

func (r *Message) ContentFormat() (message.MediaType, error) {
	v, err := r.GetOptionUint32(message.ContentFormat)
	return message.MediaType(v), err
}

func (r *Message) SetContentFormat(contentFormat message.MediaType) error {
	return r.SetOptionUint32(message.ContentFormat, uint32(contentFormat))
}

func (r *Message) BodySize() (int64, error) {
	if r.body == nil {
		return 0, nil
	}
	orig, err := r.body.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	_, err = r.body.Seek(0, io.SeekStart)
	if err != nil {
		return 0, err
	}
	size, err := r.body.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	_, err = r.body.Seek(orig, io.SeekStart)
	if err != nil {
		return 0, err
	}
	return size, nil
}

// SetBody sets the payload source. The body size counts against the storage budget.
func (r *Message) SetBody(s io.ReadSeeker) error {
	prev := r.body
	r.body = s
	if r.maxSize <= 0 {
		return nil
	}
	size, err := r.storageSize()
	if err != nil {
		r.body = prev
		return err
	}
	if size > r.maxSize {
		r.body = prev
		return fmt.Errorf("%w: %v bytes over %v", ErrStorageExceeded, size, r.maxSize)
	}
	return nil
}

// SetPayload copies payload into an in-memory body.
func (r *Message) SetPayload(payload []byte) error {
	if len(payload) == 0 {
		return r.SetBody(nil)
	}
	return r.SetBody(memfile.New(append([]byte(nil), payload...)))
}

func (r *Message) Body() io.ReadSeeker {
	return r.body
}

func (r *Message) ReadBody() ([]byte, error) {
	if r.Body() == nil {
		return nil, nil
	}
	size, err := r.BodySize()
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	_, err = r.Body().Seek(0, io.SeekStart)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, size)
	n, err := io.ReadFull(r.Body(), payload)
	if (errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)) && int64(n) == size {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	return payload[:n], nil
}

func optionsStorage(opts message.Options) int {
	size := 0
	for _, o := range opts {
		size += o.Len()
	}
	return size
}

func (r *Message) storageSize() (int, error) {
	bodySize, err := r.BodySize()
	if err != nil {
		return -1, err
	}
	body, err := pkgMath.SafeCastTo[int](bodySize)
	if err != nil {
		return -1, fmt.Errorf("%w: %w", message.ErrOutOfMemory, err)
	}
	return r.msg.TokenLen() + optionsStorage(r.msg.Options()) + body, nil
}

// reserve fails with ErrStorageExceeded when growing the stored data by n
// bytes would break the budget.
func (r *Message) reserve(n int) error {
	if r.maxSize <= 0 || n <= 0 {
		return nil
	}
	size, err := r.storageSize()
	if err != nil {
		return err
	}
	if size+n > r.maxSize {
		return fmt.Errorf("%w: %v bytes over %v", ErrStorageExceeded, size+n, r.maxSize)
	}
	return nil
}

func (r *Message) String() string {
	buf := r.msg.String()
	if size, err := r.BodySize(); err == nil && size > 0 {
		buf = fmt.Sprintf("%s, BodySize: %v", buf, size)
	}
	return buf
}

func (r *Message) toMessage() (*message.Message, error) {
	payload, err := r.ReadBody()
	if err != nil {
		return nil, err
	}
	m := r.msg
	m.SetPayload(payload)
	return &m, nil
}

// MarshalWithEncoder encodes the message into an internal buffer which is
// valid until the next call or Reset.
func (r *Message) MarshalWithEncoder(encoder Encoder) ([]byte, error) {
	msg, err := r.toMessage()
	if err != nil {
		return nil, err
	}
	size, err := encoder.Size(msg)
	if err != nil {
		return nil, err
	}
	if len(r.bufferMarshal) < size {
		r.bufferMarshal = append(r.bufferMarshal, make([]byte, size-len(r.bufferMarshal))...)
	}
	n, err := encoder.Encode(msg, r.bufferMarshal[:cap(r.bufferMarshal)])
	if err != nil {
		return nil, err
	}
	r.bufferMarshal = r.bufferMarshal[:n]
	return r.bufferMarshal, nil
}

// UnmarshalWithDecoder decodes data into the message. Datagrams larger than
// the storage budget are rejected before decoding.
func (r *Message) UnmarshalWithDecoder(decoder Decoder, data []byte) (int, error) {
	r.body = nil
	if r.maxSize > 0 && len(data) > r.maxSize {
		r.msg.Reset()
		return -1, fmt.Errorf("%w: datagram of %v bytes over %v", ErrStorageExceeded, len(data), r.maxSize)
	}
	n, err := decoder.Decode(data, &r.msg)
	if err != nil {
		return n, err
	}
	if payload := r.msg.Payload(); len(payload) > 0 {
		r.body = memfile.New(payload)
		r.msg.SetPayload(nil)
	}
	return n, nil
}

// IsSeparateMessage reports whether the message is an empty acknowledgement.
func (r *Message) IsSeparateMessage() bool {
	return r.Code() == codes.Empty && r.Token() == nil && r.Type() == message.Acknowledgement && len(r.Options()) == 0 && r.Body() == nil
}

// Clone copies the message into msg. The body is read from the start and
// its position restored afterwards.
func (r *Message) Clone(msg *Message) error {
	msg.Reset()
	if err := r.msg.Clone(&msg.msg); err != nil {
		return err
	}
	if r.Body() == nil {
		return msg.checkStorage()
	}
	buf := bytes.NewBuffer(nil)
	n, err := r.Body().Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	_, err = r.body.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	_, err = io.Copy(buf, r.Body())
	if err != nil {
		var errs *multierror.Error
		errs = multierror.Append(errs, err)
		_, errS := r.Body().Seek(n, io.SeekStart)
		if errS != nil {
			errs = multierror.Append(errs, errS)
		}
		return errs.ErrorOrNil()
	}
	_, err = r.Body().Seek(n, io.SeekStart)
	if err != nil {
		return err
	}
	if buf.Len() > 0 {
		msg.body = memfile.New(buf.Bytes())
	}
	return msg.checkStorage()
}

func (r *Message) checkStorage() error {
	if r.maxSize <= 0 {
		return nil
	}
	size, err := r.storageSize()
	if err != nil {
		return err
	}
	if size > r.maxSize {
		r.Reset()
		return fmt.Errorf("%w: %v bytes over %v", ErrStorageExceeded, size, r.maxSize)
	}
	return nil
}
