// Package contexts persists per-user conversation history and repairs the
// tool-call pairing damage that history truncation can cause.
package contexts

import (
	"context"

	"github.com/jarbasai/jarbas/pkg/models"
)

// Store persists conversation history keyed by user.
type Store interface {
	// Read returns up to limit of the most recent messages for the user,
	// oldest first, with orphaned tool messages repaired. An unknown user
	// yields an empty history. limit <= 0 means no truncation.
	Read(ctx context.Context, userKey string, limit int) ([]models.Message, error)

	// Save replaces the user's entire stored history.
	Save(ctx context.Context, userKey string, history []models.Message) error
}
