package sauce

import (
	"crypto/md5"
	"encoding/hex"
)

// Hash returns the 128-bit digest used to key cache entries and query logs.
// Two references with the same digest are treated as the same image.
func Hash(reference string) string {
	sum := md5.Sum([]byte(reference))
	return hex.EncodeToString(sum[:])
}
