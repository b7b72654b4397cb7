package icq

import (
	"math/rand/v2"
	"strconv"
	"time"
)

// NewRequestID generates a request id: five random digits, a dash, the unix time
func NewRequestID() string {
	return newRequestID(time.Now())
}

func newRequestID(now time.Time) string {
	return strconv.Itoa(10_000+rand.IntN(90_000)) + "-" + strconv.FormatInt(now.Unix(), 10)
}
