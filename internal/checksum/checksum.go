// Package checksum fingerprints note bodies for change detection.
package checksum

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded xxhash64 digest of data.
func Sum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
