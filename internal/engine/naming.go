package engine

import (
	"fmt"
	"strings"
)

var unsafeChars = strings.NewReplacer(
	`\`, "", "/", "", "*", "", "?", "",
	":", "", `"`, "", "<", "", ">", "", "|", "",
)

// Sanitize removes characters that are invalid in file names
func Sanitize(name string) string {
	return unsafeChars.Replace(name)
}

// VideoFileName is "{channel}_{title}_{HHMMSS}_{HHMMSS|END}.mp4"
func VideoFileName(channel, title, start, end string) string {
	startPart := strings.ReplaceAll(start, ":", "")
	endPart := "END"
	if end != "" {
		endPart = strings.ReplaceAll(end, ":", "")
	}
	return Sanitize(fmt.Sprintf("%s_%s_%s_%s.mp4", channel, title, startPart, endPart))
}

// ClipFileName is "{channel}_{title}.mp4"
func ClipFileName(channel, title string) string {
	return Sanitize(fmt.Sprintf("%s_%s.mp4", channel, title))
}
