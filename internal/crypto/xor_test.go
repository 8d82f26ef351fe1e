package crypto

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXorRoundTrip(t *testing.T) {
	block := NewXorBlockCrypt([]byte("secret"))
	for _, size := range []int{1, 64, 1500, xorPadSize, xorPadSize*2 + 17} {
		src := make([]byte, size)
		_, _ = rand.Read(src)
		dst := make([]byte, size)
		block.Encrypt(dst, src)
		assert.False(t, bytes.Equal(dst, src), "size %d not obfuscated", size)
		block.Decrypt(dst, dst)
		require.Equal(t, src, dst, "size %d", size)
	}
}

func TestXorKeysDiffer(t *testing.T) {
	a := NewXorBlockCrypt([]byte("one"))
	b := NewXorBlockCrypt([]byte("two"))
	src := bytes.Repeat([]byte{0x42}, 256)
	bufA := make([]byte, len(src))
	bufB := make([]byte, len(src))
	a.Encrypt(bufA, src)
	b.Encrypt(bufB, src)
	assert.NotEqual(t, bufA, bufB)
}
