//go:build !linux && !darwin

package runner

// PeakChildRSS is unavailable on this platform; the report records the
// field as absent.
func PeakChildRSS() *uint64 {
	return nil
}
