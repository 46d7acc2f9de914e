package tremote

import "fmt"

// Decimal byte multiples used by the size views.
const (
	KB = 1000
	MB = 1000 * KB
	GB = 1000 * MB
)

// Size formats used by the human and compact views.
const (
	HumanSizeFormat   = "%6.2f"
	CompactSizeFormat = "%3.0f"
)

// FormatSize scales n to the largest unit it exceeds and formats the scaled
// value with format. Values of 1000 bytes or less have no formatted form and
// ok is false; callers must not treat that as zero.
func FormatSize(n float64, format string) (s string, ok bool) {
	switch {
	case n > GB:
		return fmt.Sprintf(format, n/GB) + " GB", true
	case n > MB:
		return fmt.Sprintf(format, n/MB) + " MB", true
	case n > KB:
		return fmt.Sprintf(format, n/KB) + " KB", true
	default:
		return "", false
	}
}

// HumanSize formats n with two decimals in a six-wide field.
func HumanSize(n float64) (string, bool) { return FormatSize(n, HumanSizeFormat) }

// CompactSize formats n as a rounded integer in a three-wide field.
func CompactSize(n float64) (string, bool) { return FormatSize(n, CompactSizeFormat) }

// HumanSpeed formats a transfer rate in thousands per second. There is no
// magnitude scaling.
func HumanSpeed(bps float64) string {
	return fmt.Sprintf("%3f", bps/1000)
}
