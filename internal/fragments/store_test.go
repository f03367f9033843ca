package fragments

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreAppendDrainOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, "user-1", fmt.Sprintf("part-%d", i)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	got, err := store.Drain(ctx, "user-1")
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("drained %d fragments, want 5", len(got))
	}
	for i, f := range got {
		want := fmt.Sprintf("part-%d", i)
		if f != want {
			t.Errorf("fragment %d = %q, want %q", i, f, want)
		}
	}
}

func TestMemoryStoreDrainEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	got, err := store.Drain(ctx, "nobody")
	if err != nil {
		t.Fatalf("Drain failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("drained %d fragments from empty buffer", len(got))
	}
}

func TestMemoryStoreDrainIsDestructive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Append(ctx, "user-1", "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Drain(ctx, "user-1"); err != nil {
		t.Fatal(err)
	}

	got, err := store.Drain(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("second drain returned %d fragments, want 0", len(got))
	}
}

func TestMemoryStoreUsersAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Append(ctx, "user-a", "from a"); err != nil {
		t.Fatal(err)
	}
	if err := store.Append(ctx, "user-b", "from b"); err != nil {
		t.Fatal(err)
	}

	got, err := store.Drain(ctx, "user-a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "from a" {
		t.Errorf("user-a drained %v", got)
	}

	got, err = store.Drain(ctx, "user-b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "from b" {
		t.Errorf("user-b drained %v", got)
	}
}

func TestMemoryStoreConcurrentDrainNoDoubleDelivery(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const total = 200
	for i := 0; i < total; i++ {
		if err := store.Append(ctx, "user-1", fmt.Sprintf("f-%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := store.Drain(ctx, "user-1")
			if err != nil {
				t.Errorf("Drain failed: %v", err)
				return
			}
			mu.Lock()
			for _, f := range got {
				seen[f]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("delivered %d distinct fragments, want %d", len(seen), total)
	}
	for f, n := range seen {
		if n != 1 {
			t.Errorf("fragment %q delivered %d times", f, n)
		}
	}
}
