// Package pagination implements the two wire formats used by listings:
// plain limit/offset pairs and opaque keyset cursors.
package pagination

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ClampLimit normalizes a requested page size into [1, MaxLimit].
// Zero or negative values fall back to the default.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// ClampOffset floors a requested offset at zero.
func ClampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
