// Package sliceops holds byte-order helpers for on-air fields.
package sliceops

// SwapBuf returns a reversed copy of in.
func SwapBuf(in []byte) []byte {
	a := make([]byte, len(in))
	ReverseInto(a, in)
	return a
}

// ReverseInto writes src into dst in reverse order and returns the number
// of bytes written, min(len(dst), len(src)). The overlap of dst and src must
// be exact or empty.
func ReverseInto(dst, src []byte) int {
	n := len(src)
	if len(dst) < n {
		n = len(dst)
	}

	if n > 0 && &dst[0] == &src[0] {
		for i := n/2 - 1; i >= 0; i-- {
			opp := n - 1 - i
			dst[i], dst[opp] = dst[opp], dst[i]
		}
		return n
	}

	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
	return n
}
