// Package groups caches WhatsApp group membership snapshots so authorization
// checks do not hit the chat provider on every inbound message.
package groups

import (
	"context"
	"time"

	"github.com/jarbasai/jarbas/pkg/models"
)

// Cache stores time-bounded group membership snapshots.
type Cache interface {
	// Members returns the cached snapshot for the group, or ok=false when no
	// fresh snapshot exists.
	Members(ctx context.Context, groupID string) (models.GroupSnapshot, bool, error)

	// Put replaces the group's snapshot, valid for ttl from now.
	Put(ctx context.Context, snapshot models.GroupSnapshot, ttl time.Duration) error
}

// IsMember reports whether the identity matches any member of the snapshot.
func IsMember(snapshot models.GroupSnapshot, identity string) bool {
	for _, m := range snapshot.Members {
		if m.Matches(identity) {
			return true
		}
	}
	return false
}
