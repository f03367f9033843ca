// Package authz decides whether a sender may talk to the assistant. A sender
// is permitted when they belong to at least one of the authorized WhatsApp
// groups; membership is read through the snapshot cache and refreshed from
// the chat provider on miss.
package authz

import (
	"context"
	"log/slog"
	"time"

	"github.com/jarbasai/jarbas/internal/groups"
	"github.com/jarbasai/jarbas/pkg/models"
)

// ParticipantLister fetches the current member list of a group from the chat
// provider.
type ParticipantLister interface {
	GroupParticipants(ctx context.Context, groupID string) ([]models.GroupMember, error)
}

// Gate authorizes senders against a fixed set of group IDs.
type Gate struct {
	cache    groups.Cache
	provider ParticipantLister
	groupIDs []string
	ttl      time.Duration
	logger   *slog.Logger
}

// NewGate creates an authorization gate. An empty groupIDs list denies
// everyone.
func NewGate(cache groups.Cache, provider ParticipantLister, groupIDs []string, ttl time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		cache:    cache,
		provider: provider,
		groupIDs: groupIDs,
		ttl:      ttl,
		logger:   logger.With("component", "authz"),
	}
}

// Permit reports whether the sender belongs to any authorized group. Groups
// are checked in configuration order and the check short-circuits on the
// first match. A provider failure for one group is logged and does not block
// the remaining groups; if every group fails or misses, the sender is denied.
func (g *Gate) Permit(ctx context.Context, senderID string) bool {
	if senderID == "" {
		return false
	}

	for _, groupID := range g.groupIDs {
		snapshot, ok, err := g.cache.Members(ctx, groupID)
		if err != nil {
			g.logger.Warn("membership cache read failed", "group_id", groupID, "error", err)
			ok = false
		}
		if !ok {
			snapshot, err = g.refresh(ctx, groupID)
			if err != nil {
				g.logger.Warn("membership refresh failed", "group_id", groupID, "error", err)
				continue
			}
		}
		if groups.IsMember(snapshot, senderID) {
			return true
		}
	}
	return false
}

func (g *Gate) refresh(ctx context.Context, groupID string) (models.GroupSnapshot, error) {
	members, err := g.provider.GroupParticipants(ctx, groupID)
	if err != nil {
		return models.GroupSnapshot{}, err
	}

	snapshot := models.GroupSnapshot{GroupID: groupID, Members: members}
	if err := g.cache.Put(ctx, snapshot, g.ttl); err != nil {
		// The fetched snapshot is still valid for this decision.
		g.logger.Warn("membership cache write failed", "group_id", groupID, "error", err)
	}
	return snapshot, nil
}
