package media

import (
	"math"

	"github.com/dustin/go-humanize"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

// FormatFileSize renders bytes in base-1000 units rounded to at most decimals
// fractional digits, e.g. FormatFileSize(1536000, 2) == "1.54 MB".
func FormatFileSize(bytes int64, decimals int) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	if decimals < 0 {
		decimals = 0
	}

	index := 0
	value := float64(bytes)
	for value >= 1000 && index < len(sizeUnits)-1 {
		value /= 1000
		index++
	}

	// FtoaWithDigits truncates, so round first
	scale := math.Pow(10, float64(decimals))
	value = math.Round(value*scale) / scale

	return humanize.FtoaWithDigits(value, decimals) + " " + sizeUnits[index]
}
