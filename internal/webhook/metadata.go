package webhook

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// UserIDFromMetadata normalizes the string-typed user id the processor
// round-trips in event metadata. Empty string means absent; a non-numeric
// value is treated as absent rather than an error, since metadata content is
// controlled by whoever created the checkout session.
func UserIDFromMetadata(metadata map[string]string) *snowflake.ID {
	raw := strings.TrimSpace(metadata["user_id"])
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	id := snowflake.ID(parsed)
	return &id
}
