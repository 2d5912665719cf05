package store

import "strings"

// DeriveMentionID computes the stable, URL-safe mention id for a persona
// name at creation time: lowercase, spaces become underscores. This value
// is stored once and never recomputed; router.ResolveMention still
// normalizes it, in memory, on every lookup.
func DeriveMentionID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
