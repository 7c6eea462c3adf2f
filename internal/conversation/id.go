// Package conversation derives canonical conversation identities.
package conversation

import "strings"

// Delimiter joins the two sorted participant identifiers. Identifiers are
// phone-derived and never contain an underscore, which keeps ids collision
// free.
const Delimiter = "_"

// CanonicalID returns the order-independent conversation key for two
// participants. Every producer (API, websocket clients, webhook ingestion)
// must derive ids through this function; any divergence splits a
// conversation's history in two.
func CanonicalID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + Delimiter + b
}

// Participants splits a canonical id back into its two participants.
func Participants(conversationID string) (string, string, bool) {
	parts := strings.SplitN(conversationID, Delimiter, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
