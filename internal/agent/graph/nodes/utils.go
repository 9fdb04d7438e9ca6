package nodes

// DefaultMaxRewrites bounds the router→retrieve→grade→rewrite loop. The
// cap guarantees the turn terminates even when every retrieval grades
// not relevant; hitting it forces answer generation with whatever
// context is available.
const DefaultMaxRewrites = 2

// normalizeMaxRewrites returns a sane default when the configured value
// is invalid.
func normalizeMaxRewrites(n int) int {
	if n <= 0 {
		return DefaultMaxRewrites
	}
	return n
}
