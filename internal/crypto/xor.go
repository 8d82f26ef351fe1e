package crypto

import (
	"crypto/sha1"

	"github.com/templexxx/xorsimd"
	"golang.org/x/crypto/pbkdf2"
)

var (
	xorKeySalt = []byte{0xFB, 0xFA, 0xFF}
)

const (
	// larger than any datagram kcp hands us, so one pad covers a packet
	xorPadSize = 2048
)

type XOR struct {
	pad []byte
}

func (crypto *XOR) round(dst, src []byte) {
	var (
		n int
	)
	for len(src) > 0 {
		n = len(src)
		if n > xorPadSize {
			n = xorPadSize
		}
		xorsimd.Bytes(dst[:n], src[:n], crypto.pad)
		dst = dst[n:]
		src = src[n:]
	}
}

func (crypto *XOR) Encrypt(dst, src []byte) {
	crypto.round(dst, src)
}

func (crypto *XOR) Decrypt(dst, src []byte) {
	crypto.round(dst, src)
}

func NewXorBlockCrypt(key []byte) *XOR {
	return &XOR{
		pad: pbkdf2.Key(key, xorKeySalt, 4, xorPadSize, sha1.New),
	}
}
