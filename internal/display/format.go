package display

import "fmt"

// FormatDuration renders ms as "<h>h <m>m <s>s". Hours are not capped.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := (ms / 1000) % 60
	minutes := (ms / (1000 * 60)) % 60
	hours := ms / (1000 * 60 * 60)
	return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
}
