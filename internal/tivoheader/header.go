// Package tivoheader synthesizes the ".tivo" container header a TiVo needs
// to treat a plain MPEG stream as a native recording, and renders the TvBus
// details XML that header embeds (spec.md §4.4), following the original
// tool's tivo_header/get_details_xml pair
// (original_source/plugins/video/video.py).
package tivoheader

import (
	"bytes"
	"encoding/binary"
)

// Flag values for the TiVo header's 16-bit flag field: bit 0x20 marks a
// transport-stream payload, mirrored from plugins/video/video.py's use_ts
// check (`ord(flag[7]) & 0x20`).
const (
	flagTS = 45 // 0x2D
	flagPS = 13 // 0x0D
)

// MimeTS and MimePS are the two mimetypes Build recognizes.
const (
	MimeTS = "video/x-tivo-mpeg-ts"
	MimePS = "video/x-tivo-mpeg"
)

func pad(length, align int) int {
	extra := length % align
	if extra == 0 {
		return 0
	}
	return align - extra
}

// Build renders the synthetic header for details (TvBus XML) delivered over
// mime. Layout (spec.md §4.4):
//
//	"TiVo" | u16 version=4 | u16 flags | u16 reserved=0 | u32 totalPaddedLen | u16 chunkCount=2
//	chunk1: u32(len(chunk)+12) | u32 detailsLen | u16 chunkId=1 | u16 0 | chunk bytes
//	chunk2: same with chunkId=2
//	zero padding to align (2*len(chunk)+40) to 1024
//
// chunk is details padded with NULs to a 4-byte boundary plus 4 trailing
// NULs (the original's `'\0' * (pad(ld,4)+4)`).
func Build(details []byte, mime string) []byte {
	flag := uint16(flagPS)
	if mime == MimeTS {
		flag = flagTS
	}

	ld := len(details)
	chunk := make([]byte, 0, ld+pad(ld, 4)+4)
	chunk = append(chunk, details...)
	chunk = append(chunk, make([]byte, pad(ld, 4)+4)...)
	lc := len(chunk)

	blockLen := lc*2 + 40
	padding := pad(blockLen, 1024)
	totalPaddedLen := uint32(padding + blockLen)

	var buf bytes.Buffer
	buf.WriteString("TiVo")
	_ = binary.Write(&buf, binary.BigEndian, uint16(4))
	_ = binary.Write(&buf, binary.BigEndian, flag)
	_ = binary.Write(&buf, binary.BigEndian, uint16(0))
	_ = binary.Write(&buf, binary.BigEndian, totalPaddedLen)
	_ = binary.Write(&buf, binary.BigEndian, uint16(2))

	writeChunk := func(chunkID uint16) {
		_ = binary.Write(&buf, binary.BigEndian, uint32(lc+12))
		_ = binary.Write(&buf, binary.BigEndian, uint32(ld))
		_ = binary.Write(&buf, binary.BigEndian, chunkID)
		_ = binary.Write(&buf, binary.BigEndian, uint16(0))
		buf.Write(chunk)
	}
	writeChunk(1)
	writeChunk(2)
	buf.Write(make([]byte, padding))

	return buf.Bytes()
}

// TotalPaddedLen reports the declared total header length Build writes (the
// 16-byte prelude, both chunks with their 12-byte chunk headers, and the
// zero padding), without re-rendering the header — used by tests and by callers that only
// need to validate §8's "divisible by 1024" invariant.
func TotalPaddedLen(details []byte) int {
	ld := len(details)
	chunk := ld + pad(ld, 4) + 4
	blockLen := chunk*2 + 40
	return blockLen + pad(blockLen, 1024)
}
