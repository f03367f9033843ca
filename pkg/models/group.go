package models

import (
	"strings"
	"time"
)

// WhatsAppUserSuffix is the JID domain for individual WhatsApp accounts.
const WhatsAppUserSuffix = "@s.whatsapp.net"

// GroupSuffix is the JID domain for WhatsApp group conversations.
const GroupSuffix = "@g.us"

// GroupMember is one participant of a group as reported by the chat provider.
// LID is the privacy-preserving secondary identity some providers attach.
type GroupMember struct {
	ID    string `json:"id" bson:"id"`
	LID   string `json:"lid,omitempty" bson:"lid,omitempty"`
	Admin string `json:"admin,omitempty" bson:"admin,omitempty"`
}

// Matches reports whether the given identity refers to this member. The
// comparison tolerates bare phone numbers vs. full JIDs in either direction
// and also checks the secondary LID identity when present.
func (m GroupMember) Matches(identity string) bool {
	if identity == "" {
		return false
	}
	candidates := []string{identity, identity + WhatsAppUserSuffix, strings.TrimSuffix(identity, WhatsAppUserSuffix)}
	for _, c := range candidates {
		if c == m.ID || (m.LID != "" && c == m.LID) {
			return true
		}
	}
	return false
}

// GroupSnapshot is a point-in-time, time-bounded copy of a group's member
// set. Snapshots are replaced whole; they are never mutated in place.
type GroupSnapshot struct {
	GroupID    string        `json:"group_id" bson:"group_id"`
	GroupName  string        `json:"group_name,omitempty" bson:"group_name,omitempty"`
	Members    []GroupMember `json:"members" bson:"members"`
	CapturedAt time.Time     `json:"captured_at" bson:"captured_at"`
	ExpiresAt  time.Time     `json:"expires_at" bson:"expires_at"`
}

// Expired reports whether the snapshot is stale at the given instant.
func (s GroupSnapshot) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// IsGroupJID reports whether a chat identity names a group conversation.
func IsGroupJID(jid string) bool {
	return strings.HasSuffix(jid, GroupSuffix)
}
