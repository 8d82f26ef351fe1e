package frame

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlFrameRoundTrip(t *testing.T) {
	var buf [HeaderSize]byte
	kinds := []Kind{KindShutdownRead, KindShutdownWrite, KindClose}
	for _, kind := range kinds {
		Marshal(Frame{Kind: kind}, buf[:])
		require.Equal(t, Frame{Kind: kind}, Unmarshal(buf[:]), "kind %s", kind)
	}
}

func TestControlFrameEncoding(t *testing.T) {
	var buf [HeaderSize]byte
	Marshal(Frame{Kind: KindShutdownRead}, buf[:])
	assert.Equal(t, uint32(0xDEADBEEF), binary.LittleEndian.Uint32(buf[:]))
	Marshal(Frame{Kind: KindShutdownWrite}, buf[:])
	assert.Equal(t, uint32(0xBEEFDEAD), binary.LittleEndian.Uint32(buf[:]))
	Marshal(Frame{Kind: KindClose}, buf[:])
	assert.Equal(t, uint32(0xDEADDEAD), binary.LittleEndian.Uint32(buf[:]))
}

func TestDataRoundTrip(t *testing.T) {
	var buf [HeaderSize]byte
	for n := 0; n <= MaxChunkSize; n++ {
		Marshal(Data(n), buf[:])
		f := Unmarshal(buf[:])
		require.Equal(t, KindData, f.Kind, "length %d misread as %s", n, f.Kind)
		require.Equal(t, uint32(n), f.Length)
	}
}

func TestUnmarshalIsTotal(t *testing.T) {
	var buf [HeaderSize]byte
	for _, v := range []uint32{MaxChunkSize + 1, 0x12345678, 0xFFFFFFFF, 0xDEADBEEE} {
		binary.LittleEndian.PutUint32(buf[:], v)
		f := Unmarshal(buf[:])
		assert.Equal(t, KindData, f.Kind)
		assert.Equal(t, v, f.Length)
	}
}
