package auth

import (
	"fmt"
	"math/rand"
)

// SessionColor picks a uniformly random display color for a login session,
// as a 6-hex-digit RGB string.
func SessionColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}
