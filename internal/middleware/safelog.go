package middleware

import "strings"

// MaskSessionID masks a session id for logs; never log the full value.
func MaskSessionID(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + "***"
}
