package message

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetMID(t *testing.T) {
	for i := 0; i < 100; i++ {
		require.True(t, ValidateMID(GetMID()))
	}
}

func TestMIDGeneratorWraps(t *testing.T) {
	g := NewMIDGenerator(math.MaxUint16 - 1)
	require.Equal(t, int32(math.MaxUint16), g.Next())
	require.Equal(t, int32(0), g.Next())
	require.Equal(t, int32(1), g.Next())
}

func TestValidateMID(t *testing.T) {
	require.True(t, ValidateMID(0))
	require.True(t, ValidateMID(math.MaxUint16))
	require.False(t, ValidateMID(-1))
	require.False(t, ValidateMID(math.MaxUint16+1))
}

func TestTypeString(t *testing.T) {
	for _, typ := range []Type{Confirmable, NonConfirmable, Acknowledgement, Reset} {
		v, err := ToType(typ.String())
		require.NoError(t, err)
		require.Equal(t, typ, v)
		require.True(t, ValidateType(typ))
	}
	require.Equal(t, "Type(4)", Type(4).String())
	require.False(t, ValidateType(4))
	_, err := ToType("Type(4)")
	require.ErrorIs(t, err, ErrInvalidType)
}
