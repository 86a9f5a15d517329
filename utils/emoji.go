package utils

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	keycapTen    = "\U0001F51F"
	keycapSuffix = "\uFE0F\u20E3"

	ConfirmEmoji = "✅"
	AbortEmoji   = "❌"
)

// KeycapEmoji returns the keycap emoji for 0 through 10.
func KeycapEmoji(n int) (string, error) {
	if n < 0 || n > 10 {
		return "", fmt.Errorf("no keycap emoji for %d", n)
	}
	if n == 10 {
		return keycapTen, nil
	}
	return strconv.Itoa(n) + keycapSuffix, nil
}

// KeycapToInt converts a keycap emoji back to its number.
func KeycapToInt(emoji string) (int, bool) {
	if emoji == keycapTen {
		return 10, true
	}
	digit, ok := strings.CutSuffix(emoji, keycapSuffix)
	if !ok {
		digit, ok = strings.CutSuffix(emoji, "\u20E3")
		if !ok {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digit)
	if err != nil || n < 0 || n > 9 {
		return 0, false
	}
	return n, true
}
