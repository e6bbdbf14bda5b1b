/*
LZNT1 decompression, the algorithm NTFS uses for compressed $DATA streams
(spec §4.4 "compression unit").

Reference: MS-XCA §2.5 LZNT1 Algorithm Details.
*/

package fs

import (
	"encoding/binary"
	"encoding/hex"
)

const (
	compressedMask = uint16(1 << 15)
	sizeMask       = uint16(1<<12) - 1
)

func getDisplacement(offset uint16) byte {
	var result byte
	for offset >= 0x10 {
		offset >>= 1
		result++
	}
	return result
}

// LZNT1Decompress inflates one or more LZNT1 blocks packed back to back in
// in, returning the concatenated plaintext. A malformed back-reference
// (one that would read before the start of the output produced so far)
// fails with CorruptRecord rather than panicking on a negative index.
func LZNT1Decompress(in []byte) ([]byte, error) {
	const op = "LZNT1Decompress"
	lznt1Printf("LZNT1Decompress in:\n%s\n", hex.Dump(in))

	i := 0
	out := []byte{}

	for {
		if len(in) < i+2 {
			break
		}
		uncompressedChunkOffset := len(out)
		blockOffset := i

		blockHeader := binary.LittleEndian.Uint16(in[i:])
		i += 2

		size := int(blockHeader & sizeMask)
		blockEnd := blockOffset + size + 3
		if size == 0 {
			break
		}

		if len(in) < i+size {
			return nil, newErr(CorruptRecord, op, nil)
		}

		if blockHeader&compressedMask != 0 {
			for i < blockEnd {
				header := uint8(in[i])
				i++

				for maskIdx := uint8(0); maskIdx < 8 && i < blockEnd; maskIdx++ {
					if header&1 == 0 {
						out = append(out, in[i])
						i++
					} else {
						if i+2 > len(in) {
							return out, newErr(CorruptRecord, op, nil)
						}
						pointer := binary.LittleEndian.Uint16(in[i:])
						i += 2

						displacement := getDisplacement(
							uint16(len(out) - uncompressedChunkOffset - 1))
						symbolOffset := int(pointer>>(12-displacement)) + 1
						symbolLength := int(pointer&(0xFFF>>displacement)) + 2
						startOffset := len(out) - symbolOffset
						for j := 0; j < symbolLength+1; j++ {
							idx := startOffset + j
							if idx < 0 || idx >= len(out) {
								return out, newErr(CorruptRecord, op, nil)
							}
							out = append(out, out[idx])
						}
					}
					header >>= 1
				}
			}
		} else {
			if i+size+1 > len(in) {
				return nil, newErr(CorruptRecord, op, nil)
			}
			out = append(out, in[i:i+size+1]...)
			i += size + 1
		}
	}

	lznt1Printf("decompression out %v\n", len(out))
	return out, nil
}
