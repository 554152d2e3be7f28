package message

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMediaTypeString(t *testing.T) {
	for i := 0; i < 12000; i++ {
		func(mt int, s string) {
			if v, err := ToMediaType(s); err == nil {
				require.Equal(t, MediaType(mt), v)
			}
		}(i, MediaType(i).String())
	}
}

func TestOptionIDString(t *testing.T) {
	for i := 0; i < 12000; i++ {
		func(oid int, s string) {
			if v, err := ToOptionID(s); err == nil {
				require.Equal(t, OptionID(oid), v)
			}
		}(i, OptionID(i).String())
	}
	v, err := ToOptionID("2048")
	require.NoError(t, err)
	require.Equal(t, OptionID(2048), v)
	_, err = ToOptionID("NoSuchOption")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestOptionMarshalLengthExtensionFollowsLength(t *testing.T) {
	tests := []struct {
		name   string
		option Option
		prev   OptionID
		header []byte
	}{
		{
			name:   "large number, empty value",
			option: Option{ID: 20},
			header: []byte{0xd0, 0x07},
		},
		{
			name:   "small number, 13 byte value",
			option: Option{ID: 4, Value: bytes.Repeat([]byte{0xaa}, 13)},
			header: []byte{0x4d, 0x00},
		},
		{
			name:   "large number, 12 byte value",
			option: Option{ID: 300, Value: bytes.Repeat([]byte{0xaa}, 12)},
			header: []byte{0xec, 0x00, 0x1f},
		},
		{
			name:   "relative to previous",
			option: Option{ID: 300, Value: []byte{1}},
			prev:   290,
			header: []byte{0xa1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := tt.option.Size(tt.prev)
			require.NoError(t, err)
			require.Equal(t, len(tt.header)+tt.option.Len(), size)

			n, err := tt.option.Marshal(nil, tt.prev)
			require.ErrorIs(t, err, ErrTooSmall)
			require.Equal(t, size, n)

			buf := make([]byte, size)
			n, err = tt.option.Marshal(buf, tt.prev)
			require.NoError(t, err)
			require.Equal(t, size, n)
			require.Equal(t, tt.header, buf[:len(tt.header)])
			require.True(t, bytes.Equal(tt.option.Value, buf[len(tt.header):n]))

			var got Option
			n, err = got.Unmarshal(buf, tt.prev)
			require.NoError(t, err)
			require.Equal(t, size, n)
			require.Equal(t, tt.option, got)
		})
	}
}

func TestOptionClone(t *testing.T) {
	o := Option{ID: ETag, Value: []byte{1, 2, 3}}
	c := o.Clone()
	o.Value[0] = 9
	require.Equal(t, []byte{1, 2, 3}, c.Value)
	require.Nil(t, Option{ID: IfNoneMatch, Value: []byte{}}.Clone().Value)
}
