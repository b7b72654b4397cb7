package domain

import "strconv"

// PrettySize renders a byte count the way file links show it.
// Division truncates, so 100000 bytes is "0mb".
func PrettySize(size uint64) string {
	switch {
	case size < 100_000:
		return strconv.FormatUint(size/1_000, 10) + "kb"
	case size < 1_000_000_000:
		return strconv.FormatUint(size/1_000_000, 10) + "mb"
	default:
		return strconv.FormatUint(size/1_000_000_000, 10) + "gb"
	}
}
