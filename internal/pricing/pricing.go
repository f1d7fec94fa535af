// Package pricing converts a finalized session length into a price.
package pricing

// SegmentSeconds is the length of one billed segment (15 minutes).
const SegmentSeconds int64 = 15 * 60

// BilledSegments rounds sessionLength up to whole billed segments.
func BilledSegments(sessionLength int64) int64 {
	if sessionLength <= 0 {
		return 0
	}
	return (sessionLength + SegmentSeconds - 1) / SegmentSeconds
}

// Price returns nil while the length is unknown. It is a pure function of its
// inputs so settlement can recompute and verify a checkout amount.
func Price(sessionLength *int64, rate int64) *int64 {
	if sessionLength == nil {
		return nil
	}
	price := BilledSegments(*sessionLength) * rate
	return &price
}
