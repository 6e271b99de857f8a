package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed opaque identifier, e.g. "sale-9f3c...".
func New(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
