package util

import "github.com/hauke96/sigolo/v2"

func LogFatalBug(format string, args ...interface{}) {
	sigolo.Fatalb(1, format+" - This is a bug and should never happen", args...)
}

// LogTruncated returns the given text cut to the given number of runes so that huge selectors do not flood the log.
func LogTruncated(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "... [truncated]"
}
