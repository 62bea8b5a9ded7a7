package aml

// DecodePkgLength decodes an AML package-length field: a lead byte whose
// top two bits give the count of following length bytes (0-3), and whose
// bottom six (single-byte encoding) or bottom four (multi-byte encoding)
// bits hold the least significant length bits. Returns the decoded length (including the bytes
// the length field itself occupies, per the AML grammar) and the number of
// bytes the encoding consumed.
//
// spec.md §8 requires decode(encode(n)) == n for every n in [0, 2^28-1];
// EncodePkgLength is the inverse used by tests to check that law.
func DecodePkgLength(code []byte) (length uint32, consumed int, err error) {
	if len(code) == 0 {
		return 0, 0, errOutOfBounds
	}

	lead := code[0]
	extraBytes := int(lead >> 6)
	if extraBytes == 0 {
		return uint32(lead & 0x3f), 1, nil
	}

	if len(code) < 1+extraBytes {
		return 0, 0, errOutOfBounds
	}

	length = uint32(lead & 0x0f)
	for i := 0; i < extraBytes; i++ {
		length |= uint32(code[1+i]) << (4 + 8*uint(i))
	}
	return length, 1 + extraBytes, nil
}

// EncodePkgLength encodes length using the minimum number of extra bytes
// the AML package-length grammar allows (0 when length < 0x40, otherwise
// exactly as many as are needed to hold it, up to the 3-extra-byte max
// covering 2^28-1).
func EncodePkgLength(length uint32) []byte {
	switch {
	case length < 0x40:
		return []byte{byte(length)}
	case length < 1<<12:
		return []byte{0x40 | byte(length&0x0f), byte(length >> 4)}
	case length < 1<<20:
		return []byte{
			0x80 | byte(length&0x0f),
			byte(length >> 4),
			byte(length >> 12),
		}
	default:
		return []byte{
			0xc0 | byte(length&0x0f),
			byte(length >> 4),
			byte(length >> 12),
			byte(length >> 20),
		}
	}
}
