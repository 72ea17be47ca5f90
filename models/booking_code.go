package models

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"
)

const (
	bookingCodePrefix  = "AMB"
	bookingCodeSuffix  = 5
	bookingCodeCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

var bookingCodePattern = regexp.MustCompile(`^AMB[0-9]{6}[0-9A-Z]{5}$`)

// NewBookingCode builds AMB + last six digits of the epoch-millisecond
// timestamp + five random uppercase base-36 characters.
func NewBookingCode(now time.Time, rnd *rand.Rand) string {
	millis := strconv.FormatInt(now.UnixMilli(), 10)
	if len(millis) > 6 {
		millis = millis[len(millis)-6:]
	}
	for len(millis) < 6 {
		millis = "0" + millis
	}

	suffix := make([]byte, bookingCodeSuffix)
	for i := range suffix {
		var n int
		if rnd != nil {
			n = rnd.IntN(len(bookingCodeCharset))
		} else {
			n = rand.IntN(len(bookingCodeCharset))
		}
		suffix[i] = bookingCodeCharset[n]
	}
	return bookingCodePrefix + millis + string(suffix)
}

// ValidBookingCode reports whether code has the booking code shape.
func ValidBookingCode(code string) bool {
	return bookingCodePattern.MatchString(code)
}
