package runner

import "golang.org/x/sys/unix"

// PeakChildRSS reads the peak resident set size of waited-for children via
// getrusage. Nil when the reading is unavailable. Linux reports ru_maxrss
// in kilobytes; the result is converted to bytes.
func PeakChildRSS() *uint64 {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &ru); err != nil {
		return nil
	}
	if ru.Maxrss <= 0 {
		return nil
	}
	peak := uint64(ru.Maxrss) * 1024
	return &peak
}
