package domain

// Zero overwrites a byte slice with zeros so key material does not linger in
// memory after use. Safe to call on nil or empty slices.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
