package insight

import (
	"fmt"
	"math"
)

// FormatDuration renders a lap or sector time for display. Durations of a
// minute or more come out as m:ss.mmm, shorter ones as plain seconds with
// millisecond precision. Missing or non-finite values render as a dash.
func FormatDuration(seconds *float64) string {
	if seconds == nil || math.IsNaN(*seconds) || math.IsInf(*seconds, 0) {
		return "—"
	}
	s := *seconds
	if s >= 60 {
		minutes := int(s) / 60
		return fmt.Sprintf("%d:%06.3f", minutes, s-float64(minutes)*60)
	}
	return fmt.Sprintf("%.3f", s)
}
