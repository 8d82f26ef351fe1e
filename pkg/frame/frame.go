package frame

import (
	"encoding/binary"
)

// Wire header layout: a single little-endian uint32. Three reserved values
// mark the control frames; every other value is the length of the Data
// payload that immediately follows. MaxChunkSize keeps Data lengths
// disjoint from the reserved range.
const (
	HeaderSize   = 4
	MaxChunkSize = 4096

	headerShutdownRead  uint32 = 0xDEADBEEF
	headerShutdownWrite uint32 = 0xBEEFDEAD
	headerClose         uint32 = 0xDEADDEAD
)

type Kind uint8

const (
	KindData Kind = iota
	KindShutdownRead
	KindShutdownWrite
	KindClose
)

type Frame struct {
	Kind   Kind
	Length uint32
}

func (k Kind) String() string {
	switch k {
	case KindShutdownRead:
		return "shutdown-read"
	case KindShutdownWrite:
		return "shutdown-write"
	case KindClose:
		return "close"
	default:
		return "data"
	}
}

func Data(n int) Frame {
	return Frame{Kind: KindData, Length: uint32(n)}
}

// Marshal writes the 4-byte header into buf.
func Marshal(f Frame, buf []byte) {
	var v uint32
	switch f.Kind {
	case KindShutdownRead:
		v = headerShutdownRead
	case KindShutdownWrite:
		v = headerShutdownWrite
	case KindClose:
		v = headerClose
	default:
		v = f.Length
	}
	binary.LittleEndian.PutUint32(buf, v)
}

// Unmarshal decodes a 4-byte header. It is total: any value that is not a
// reserved sentinel decodes to a Data frame of that length.
func Unmarshal(buf []byte) Frame {
	switch v := binary.LittleEndian.Uint32(buf); v {
	case headerShutdownRead:
		return Frame{Kind: KindShutdownRead}
	case headerShutdownWrite:
		return Frame{Kind: KindShutdownWrite}
	case headerClose:
		return Frame{Kind: KindClose}
	default:
		return Frame{Kind: KindData, Length: v}
	}
}
