package fs

// Run describes one contiguous, possibly sparse, extent of a non-resident
// attribute (spec §3 "Run", §4.2 "Data-Run Decoder"). LCN is the absolute
// logical cluster number the run starts at; it is meaningless (and left at
// zero) when IsSparse is set.
type Run struct {
	Length   int64
	LCN      int64
	IsSparse bool
}

// DecodeRuns parses the compact variable-length run-list encoding
// beginning at data[0] (spec §4.2, §6 "Run list"). clusterSize and
// allocatedSize (in bytes) bound the accounting check: the sum of all run
// lengths, in bytes, must not exceed the attribute's allocated size.
//
// Encoding per run: one header byte (low nibble = byte-length of the
// length field L, high nibble = byte-length of the signed LCN-delta O);
// then L little-endian bytes of length, then O bytes of sign-extended
// delta. A zero O field denotes a sparse run. Terminated by a 0x00 header
// byte.
func DecodeRuns(data []byte, clusterSize int64, allocatedSize int64) ([]Run, error) {
	const op = "DecodeRuns"

	var runs []Run
	var lcn int64
	var totalBytes int64

	offset := 0
	for offset < len(data) {
		header := data[offset]
		if header == 0x00 {
			// Terminator. Accepted even if it is the very last byte
			// of the attribute (spec §8 boundary behavior).
			return runs, nil
		}

		lengthSize := int(header & 0x0F)
		deltaSize := int(header >> 4)
		offset++

		if offset+lengthSize > len(data) {
			return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
		}

		length := decodeLittleEndianUnsigned(data[offset : offset+lengthSize])
		offset += lengthSize

		isSparse := deltaSize == 0
		var delta int64
		if !isSparse {
			if offset+deltaSize > len(data) {
				return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
			}
			delta = decodeSignExtended(data[offset : offset+deltaSize])
			offset += deltaSize
		}

		if length < 0 {
			return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
		}

		totalBytes += length * clusterSize
		if totalBytes > allocatedSize {
			return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
		}

		run := Run{Length: length, IsSparse: isSparse}
		if !isSparse {
			lcn += delta
			if lcn < 0 {
				return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
			}
			run.LCN = lcn
		}

		runs = append(runs, run)
	}

	// Ran off the end of the slice without a terminator byte: the caller
	// handed us a truncated run-list buffer.
	return nil, newErrAt(CorruptRuns, op, int64(offset), nil)
}

func decodeLittleEndianUnsigned(b []byte) int64 {
	var v int64
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | int64(b[i])
	}
	return v
}

func decodeSignExtended(b []byte) int64 {
	var v int64
	for i := len(b) - 1; i >= 0; i-- {
		v = (v << 8) | int64(b[i])
	}
	// Sign-extend based on the top bit of the most significant byte
	// actually present.
	if len(b) > 0 && len(b) < 8 && b[len(b)-1]&0x80 != 0 {
		v |= -1 << (uint(len(b)) * 8)
	}
	return v
}
