package pool_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plgd-dev/coapmsg/message"
	"github.com/plgd-dev/coapmsg/message/codes"
	"github.com/plgd-dev/coapmsg/message/pool"
	"github.com/plgd-dev/coapmsg/udp/coder"
	"github.com/stretchr/testify/require"
)

func TestMessageSetPath(t *testing.T) {
	type args struct {
		p string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
		want    string
	}{
		{
			name:    "Empty",
			args:    args{p: ""},
			wantErr: true,
		},
		{
			name:    "Empty (slash)",
			args:    args{p: "/"},
			wantErr: true,
		},
		{
			name:    "Empty (multiple slashes)",
			args:    args{p: "//////////"},
			wantErr: true,
		},
		{
			name: "Basic path",
			args: args{p: "/a/b/c"},
			want: "/a/b/c",
		},
		{
			name: "Path with duplicate slashes",
			args: args{p: "/a///b//c/"},
			want: "/a/b/c",
		},
		{
			name: "Path without first slash",
			args: args{p: "a/b/c"},
			want: "/a/b/c",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := pool.NewMessage(context.Background())
			err := msg.SetPath(tt.args.p)
			require.NoError(t, err)
			path, err := msg.Path()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, path)
		})
	}
}

func TestMessageSetPathReplaces(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	require.NoError(t, msg.SetPath("/a/b"))
	require.NoError(t, msg.SetPath("/c"))
	path, err := msg.Path()
	require.NoError(t, err)
	require.Equal(t, "/c", path)
}

func TestMessageSetPathSegmentLength(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	require.NoError(t, msg.SetPath("/"+strings.Repeat("a", 255)))
	err := msg.SetPath("/" + strings.Repeat("a", 256))
	require.ErrorIs(t, err, message.ErrInvalidValueLength)
}

func TestMessageAddQuery(t *testing.T) {
	type args struct {
		queries []string
	}
	tests := []struct {
		name    string
		args    args
		wantErr bool
	}{
		{
			name:    "Empty query",
			wantErr: true,
		},
		{
			name: "Single query",
			args: args{
				queries: []string{"a"},
			},
		},
		{
			name: "Multiple queries",
			args: args{
				queries: []string{"ab", "cdef", "ghijklmn"},
			},
		},
		{
			name: "Long query",
			args: args{
				queries: []string{strings.Repeat("q", 4096)},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := pool.NewMessage(context.Background())
			for _, q := range tt.args.queries {
				require.NoError(t, msg.AddQuery(q))
			}
			queries, err := msg.Queries()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.args.queries, queries)
		})
	}
}

func TestMessageContentFormat(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	_, err := msg.ContentFormat()
	require.ErrorIs(t, err, message.ErrOptionNotFound)

	require.NoError(t, msg.SetContentFormat(message.AppJSON))
	require.NoError(t, msg.SetContentFormat(message.AppCBOR))
	cf, err := msg.ContentFormat()
	require.NoError(t, err)
	require.Equal(t, message.AppCBOR, cf)
	require.Len(t, msg.Options(), 1)

	msg.Remove(message.ContentFormat)
	require.False(t, msg.HasOption(message.ContentFormat))
}

func TestMessageStorageBudget(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	msg.SetMaxSize(10)

	require.NoError(t, msg.SetToken(message.Token{1, 2, 3, 4}))
	require.NoError(t, msg.AddOptionString(message.URIQuery, "abc"))
	err := msg.AddOptionString(message.URIQuery, "defg")
	require.ErrorIs(t, err, message.ErrOutOfMemory)
	require.NoError(t, msg.SetPayload([]byte{1, 2, 3}))

	err = msg.SetToken(message.Token{1, 2, 3, 4, 5})
	require.ErrorIs(t, err, pool.ErrStorageExceeded)
	// replacing a value only counts the difference
	require.NoError(t, msg.SetOptionBytes(message.URIQuery, []byte("xyz")))
	require.NoError(t, msg.SetPath("/"))

	err = msg.SetBody(bytes.NewReader(make([]byte, 4)))
	require.ErrorIs(t, err, message.ErrOutOfMemory)
	body, err := msg.ReadBody()
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, body)
}

func TestMessageMarshalUnmarshal(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	require.NoError(t, msg.SetType(message.NonConfirmable))
	msg.SetCode(codes.POST)
	require.NoError(t, msg.SetMessageID(0x1234))
	require.NoError(t, msg.SetToken(message.Token{0xab}))
	require.NoError(t, msg.SetPath("/a"))
	require.NoError(t, msg.SetContentFormat(message.TextPlain))
	require.NoError(t, msg.SetBody(bytes.NewReader([]byte("hi"))))

	data, err := msg.MarshalWithEncoder(coder.DefaultCoder)
	require.NoError(t, err)
	require.Equal(t, []byte{0x51, 0x02, 0x12, 0x34, 0xab, 0xb1, 'a', 0x10, 0xff, 'h', 'i'}, data)

	decoded := pool.NewMessage(context.Background())
	n, err := decoded.UnmarshalWithDecoder(coder.DefaultCoder, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, message.NonConfirmable, decoded.Type())
	require.Equal(t, codes.POST, decoded.Code())
	require.Equal(t, int32(0x1234), decoded.MessageID())
	require.Equal(t, message.Token{0xab}, decoded.Token())
	path, err := decoded.Path()
	require.NoError(t, err)
	require.Equal(t, "/a", path)
	body, err := decoded.ReadBody()
	require.NoError(t, err)
	require.Equal(t, []byte("hi"), body)
	require.Contains(t, decoded.String(), "BodySize: 2")
}

func TestMessageUnmarshalTooLarge(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	msg.SetMaxSize(4)
	_, err := msg.UnmarshalWithDecoder(coder.DefaultCoder, []byte{0x40, 0x01, 0x00, 0x01, 0xff, 0x01})
	require.ErrorIs(t, err, message.ErrOutOfMemory)

	_, err = msg.UnmarshalWithDecoder(coder.DefaultCoder, []byte{0x40, 0x01, 0x00, 0x01, 0xff})
	require.ErrorIs(t, err, message.ErrOutOfMemory)

	n, err := msg.UnmarshalWithDecoder(coder.DefaultCoder, []byte{0x40, 0x01, 0x00, 0x01})
	require.NoError(t, err)
	require.Equal(t, 4, n)
}

func TestMessageUnmarshalCorrupt(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	_, err := msg.UnmarshalWithDecoder(coder.DefaultCoder, []byte{0x40, 0x01, 0x00, 0x01, 0xff})
	require.ErrorIs(t, err, message.ErrCorruptMessage)
	require.Nil(t, msg.Body())
	require.Equal(t, int32(0), msg.MessageID())
}

func TestMessageSetMessage(t *testing.T) {
	src := message.NewMessage()
	src.SetCode(codes.Content)
	require.NoError(t, src.SetType(message.Acknowledgement))
	require.NoError(t, src.AddOptionString(message.ETag, "tag"))
	src.SetPayload([]byte("payload"))

	msg := pool.NewMessage(context.Background())
	require.NoError(t, msg.SetMessage(src))
	require.Equal(t, codes.Content, msg.Code())
	body, err := msg.ReadBody()
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), body)

	msg.SetMaxSize(5)
	require.ErrorIs(t, msg.SetMessage(src), message.ErrOutOfMemory)
}

func TestMessageIsSeparateMessage(t *testing.T) {
	msg := pool.NewMessage(context.Background())
	require.NoError(t, msg.SetType(message.Acknowledgement))
	require.True(t, msg.IsSeparateMessage())
	msg.SetCode(codes.Content)
	require.False(t, msg.IsSeparateMessage())
}

type malFuncSeeker struct{}

func (m malFuncSeeker) Read(p []byte) (n int, err error) {
	return 0, nil
}

func (m malFuncSeeker) Seek(offset int64, whence int) (int64, error) {
	return 0, errors.New("seek error")
}

type malFuncReader struct{}

func (m malFuncReader) Read(p []byte) (n int, err error) {
	return 0, errors.New("read error")
}

func (m malFuncReader) Seek(offset int64, whence int) (int64, error) {
	return 0, nil
}

func TestMessageClone(t *testing.T) {
	original := pool.NewMessage(context.Background())
	require.NoError(t, original.SetMessageID(1))
	require.NoError(t, original.SetType(message.Confirmable))
	original.SetCode(codes.PUT)
	err := original.SetPath("/test")
	require.NoError(t, err)
	require.NoError(t, original.AddQuery("q1"))
	require.NoError(t, original.AddQuery("q2"))
	require.NoError(t, original.SetBody(bytes.NewReader([]byte("test body"))))

	cloned := pool.NewMessage(original.Context())
	err = original.Clone(cloned)
	require.NoError(t, err)

	require.Equal(t, original.MessageID(), cloned.MessageID())
	require.Equal(t, original.Type(), cloned.Type())
	require.Equal(t, original.Code(), cloned.Code())
	originalPath, err := original.Path()
	require.NoError(t, err)
	clonedPath, err := cloned.Path()
	require.NoError(t, err)
	require.Equal(t, originalPath, clonedPath)
	originalQueries, err := original.Queries()
	require.NoError(t, err)
	clonedQueries, err := cloned.Queries()
	require.NoError(t, err)
	require.Equal(t, originalQueries, clonedQueries)
	originalBody, err := original.ReadBody()
	require.NoError(t, err)
	clonedBody, err := cloned.ReadBody()
	require.NoError(t, err)
	require.Equal(t, originalBody, clonedBody)

	small := pool.NewMessage(context.Background())
	small.SetMaxSize(4)
	require.ErrorIs(t, original.Clone(small), pool.ErrStorageExceeded)

	original.SetMaxSize(0)
	require.NoError(t, original.SetBody(malFuncSeeker{}))
	err = original.Clone(cloned)
	require.Error(t, err)
	require.Equal(t, "seek error", err.Error())

	require.NoError(t, original.SetBody(malFuncReader{}))
	err = original.Clone(cloned)
	require.Error(t, err)
	require.Contains(t, err.Error(), "read error")
}
