package notebook

import "fmt"

// Fingerprint computes the optimistic-locking hash of a cell's kind and
// content. The client computes it on read and the document layer verifies it
// before a write, so the algorithm is a cross-process contract: djb2-xor
// (seed 5381, h = h*33 ^ byte) over kind + NUL + content, folded to 32 bits
// and rendered as lowercase hex. Do not change the seed, the separator, or
// the fold width.
func Fingerprint(kind CellKind, content string) string {
	h := uint32(5381)
	accumulate := func(s string) {
		for i := 0; i < len(s); i++ {
			h = h*33 ^ uint32(s[i])
		}
	}
	accumulate(string(kind))
	h = h * 33 // NUL separator byte: h*33 ^ 0
	accumulate(content)
	return fmt.Sprintf("%x", h)
}
