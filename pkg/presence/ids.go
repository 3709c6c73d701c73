package presence

import (
	"crypto/rand"
	"fmt"
	"time"
)

// randDigits returns n random decimal digits. Falls back to a timestamp-based
// string if the system entropy source fails.
func randDigits(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		s := fmt.Sprintf("%0*d", n, time.Now().UnixNano())
		return s[len(s)-n:]
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = '0' + b%10
	}
	return string(out)
}

// uniqueDigits draws ids until one is absent from taken. The id space is
// large enough that collisions are retried, not tolerated.
func uniqueDigits(n int, taken func(string) bool) string {
	for {
		id := randDigits(n)
		if !taken(id) {
			return id
		}
	}
}
