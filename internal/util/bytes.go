package util

// CopyBytes returns a fresh copy of src. Callers use it to hand out
// defensive copies of key material without aliasing the original buffer.
func CopyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// WipeBytes best-effort zeroes the provided byte slice in place.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
