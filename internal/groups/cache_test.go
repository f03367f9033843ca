package groups

import (
	"context"
	"testing"
	"time"

	"github.com/jarbasai/jarbas/pkg/models"
)

func TestMemoryCachePutAndMembers(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	snapshot := models.GroupSnapshot{
		GroupID:   "123@g.us",
		GroupName: "Mentoria",
		Members: []models.GroupMember{
			{ID: "5511999999999@s.whatsapp.net"},
		},
	}
	if err := cache.Put(ctx, snapshot, time.Hour); err != nil {
		t.Fatal(err)
	}

	got, ok, err := cache.Members(ctx, "123@g.us")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("fresh snapshot reported as miss")
	}
	if got.GroupName != "Mentoria" || len(got.Members) != 1 {
		t.Errorf("unexpected snapshot: %+v", got)
	}
	if got.ExpiresAt.Before(got.CapturedAt) {
		t.Error("snapshot expires before capture time")
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok, err := cache.Members(ctx, "missing@g.us")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unknown group reported as hit")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	snapshot := models.GroupSnapshot{GroupID: "123@g.us"}
	if err := cache.Put(ctx, snapshot, time.Hour); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(59 * time.Minute)
	if _, ok, _ := cache.Members(ctx, "123@g.us"); !ok {
		t.Error("snapshot expired early")
	}

	clock = clock.Add(2 * time.Minute)
	if _, ok, _ := cache.Members(ctx, "123@g.us"); ok {
		t.Error("stale snapshot served after TTL")
	}
}

func TestIsMemberNormalizesIdentities(t *testing.T) {
	snapshot := models.GroupSnapshot{
		GroupID: "123@g.us",
		Members: []models.GroupMember{
			{ID: "5511999999999@s.whatsapp.net", LID: "98765@lid"},
			{ID: "5521888888888@s.whatsapp.net"},
		},
	}

	cases := []struct {
		identity string
		want     bool
	}{
		{"5511999999999@s.whatsapp.net", true},
		{"5511999999999", true},
		{"98765@lid", true},
		{"5521888888888", true},
		{"5500000000000", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsMember(snapshot, tc.identity); got != tc.want {
			t.Errorf("IsMember(%q) = %v, want %v", tc.identity, got, tc.want)
		}
	}
}
