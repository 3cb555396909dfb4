// Package timecode converts between second counts and HH:MM:SS text, and
// implements the masked editor used by the start and end time fields.
package timecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Zero is the encoded form of 0 seconds
const Zero = "00:00:00"

// SecondsToText encodes s as HH:MM:SS. Hours grow past two digits when needed.
func SecondsToText(s int64) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s%3600)/60, s%60)
}

// TextToSeconds leniently decodes HH:MM:SS. Segments that fail to parse or are
// missing count as 0, and text without any colon decodes to 0.
func TextToSeconds(t string) int64 {
	if !strings.Contains(t, ":") {
		return 0
	}

	parts := strings.Split(t, ":")
	var fields [3]int64
	for i := 0; i < len(fields) && i < len(parts); i++ {
		v, err := strconv.ParseInt(strings.TrimSpace(parts[i]), 10, 64)
		if err != nil || v < 0 {
			v = 0
		}
		fields[i] = v
	}

	return fields[0]*3600 + fields[1]*60 + fields[2]
}
