package dedup

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UsmanKarim08/flipping-lead-gen/internal/models"
)

func parsedListing(source, listingID, title string, price float64) *models.ParsedListing {
	return &models.ParsedListing{
		RawListing: models.RawListing{
			Source:    source,
			Title:     title,
			ListingID: listingID,
			FetchedAt: time.Now(),
		},
		Price:    price,
		HasPrice: true,
		Item: &models.CatalogItem{
			ID: "dexcom_g6", Aliases: []string{"Dexcom G6"},
			Resale: 90, Policy: models.PolicyFixedMaxBuy, MaxBuy: 35,
		},
	}
}

func TestKeyStableIDTakesPriority(t *testing.T) {
	a := parsedListing("newyork", "guid-1", "Dexcom G6 $30", 30)
	b := parsedListing("newyork", "guid-1", "totally different title $99", 99)
	if Key(a) != Key(b) {
		t.Error("listings with the same stable ID should share a key")
	}

	c := parsedListing("newjersey", "guid-1", "Dexcom G6 $30", 30)
	if Key(a) == Key(c) {
		t.Error("same listing ID on different sources should not collide")
	}
}

func TestKeyFallback(t *testing.T) {
	a := parsedListing("newyork", "", "Dexcom G6 sensors 3 pack sealed", 30)
	b := parsedListing("newyork", "", "Dexcom G6 sensors 3 pack sealed", 30)
	if Key(a) != Key(b) {
		t.Error("identical fallback listings should share a key")
	}

	// Price participates in the fallback key.
	c := parsedListing("newyork", "", "Dexcom G6 sensors 3 pack sealed", 32)
	if Key(a) == Key(c) {
		t.Error("different prices should produce different fallback keys")
	}

	// Only the first 20 characters of the title participate, a documented
	// fallback limitation: edits past the prefix do not re-key.
	d := parsedListing("newyork", "", "Dexcom G6 sensors 3 pack sealed NEW IN BOX", 30)
	if Key(a) != Key(d) {
		t.Error("titles sharing a 20-char prefix should share a fallback key")
	}
}

func TestMemoryStoreCheckAndSet(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	fresh, err := s.CheckAndSet("k1")
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if !fresh {
		t.Error("first CheckAndSet should report fresh")
	}

	fresh, err = s.CheckAndSet("k1")
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if fresh {
		t.Error("second CheckAndSet should report duplicate")
	}

	fresh, _ = s.CheckAndSet("k2")
	if !fresh {
		t.Error("different key should be fresh")
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	current := time.Now()
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return current }
	defer s.Close()

	if fresh, _ := s.CheckAndSet("k1"); !fresh {
		t.Fatal("first CheckAndSet should be fresh")
	}
	if fresh, _ := s.CheckAndSet("k1"); fresh {
		t.Fatal("repeat within TTL should be duplicate")
	}

	// Advance past the TTL: the key expires and alerts again.
	current = current.Add(2 * time.Hour)
	if fresh, _ := s.CheckAndSet("k1"); !fresh {
		t.Error("expired key should be fresh again")
	}

	current = current.Add(3 * time.Hour)
	removed, err := s.Purge()
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d keys, want 1", removed)
	}
	if s.Len() != 0 {
		t.Errorf("Len() after purge = %d, want 0", s.Len())
	}
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	current := time.Now()
	s := NewMemoryStore(0)
	s.now = func() time.Time { return current }
	defer s.Close()

	s.CheckAndSet("k1")
	current = current.Add(1000 * time.Hour)
	if fresh, _ := s.CheckAndSet("k1"); fresh {
		t.Error("zero-TTL keys must never expire")
	}
	if removed, _ := s.Purge(); removed != 0 {
		t.Errorf("Purge removed %d zero-TTL keys, want 0", removed)
	}
}

func TestMemoryStoreConcurrentCheckAndSet(t *testing.T) {
	s := NewMemoryStore(0)
	defer s.Close()

	const goroutines = 64
	var freshCount int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			fresh, err := s.CheckAndSet("contested")
			if err != nil {
				t.Errorf("CheckAndSet failed: %v", err)
				return
			}
			if fresh {
				atomic.AddInt64(&freshCount, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if freshCount != 1 {
		t.Errorf("%d goroutines won the check-and-set, want exactly 1", freshCount)
	}
}

func TestSQLiteStoreCheckAndSet(t *testing.T) {
	s, err := NewSQLiteStore(":memory:", 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer s.Close()

	fresh, err := s.CheckAndSet("k1")
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if !fresh {
		t.Error("first CheckAndSet should report fresh")
	}

	fresh, err = s.CheckAndSet("k1")
	if err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}
	if fresh {
		t.Error("second CheckAndSet should report duplicate")
	}

	if fresh, _ := s.CheckAndSet("k2"); !fresh {
		t.Error("different key should be fresh")
	}
	if n, _ := s.Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}

func TestSQLiteStoreTTL(t *testing.T) {
	current := time.Now()
	s, err := NewSQLiteStore(":memory:", time.Hour)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	s.now = func() time.Time { return current }
	defer s.Close()

	if fresh, _ := s.CheckAndSet("k1"); !fresh {
		t.Fatal("first CheckAndSet should be fresh")
	}
	if fresh, _ := s.CheckAndSet("k1"); fresh {
		t.Fatal("repeat within TTL should be duplicate")
	}

	current = current.Add(2 * time.Hour)
	if fresh, _ := s.CheckAndSet("k1"); !fresh {
		t.Error("expired key should be fresh again")
	}

	current = current.Add(3 * time.Hour)
	removed, err := s.Purge()
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Purge removed %d keys, want 1", removed)
	}
}

func TestSQLiteStorePersistsAcrossOpens(t *testing.T) {
	path := t.TempDir() + "/dedup.db"

	s, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	if fresh, _ := s.CheckAndSet("persisted"); !fresh {
		t.Fatal("first CheckAndSet should be fresh")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLiteStore(path, 0)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if fresh, _ := reopened.CheckAndSet("persisted"); fresh {
		t.Error("key recorded before restart should still be a duplicate")
	}

	var _ Store = reopened // both stores satisfy the interface
}

func TestStoreInterfaceKeyFlow(t *testing.T) {
	var s Store = NewMemoryStore(0)
	defer s.Close()

	listing := parsedListing("newyork", "", "Dexcom G6 sensors $30", 30)

	tests := []struct {
		name      string
		wantFresh bool
	}{
		{"first submission alerts", true},
		{"identical resubmission is suppressed", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, err := s.CheckAndSet(Key(listing))
			if err != nil {
				t.Fatalf("CheckAndSet failed: %v", err)
			}
			if fresh != tt.wantFresh {
				t.Errorf("fresh = %v, want %v", fresh, tt.wantFresh)
			}
		})
	}
}

func BenchmarkMemoryStoreCheckAndSet(b *testing.B) {
	s := NewMemoryStore(0)
	defer s.Close()
	for i := 0; i < b.N; i++ {
		s.CheckAndSet(fmt.Sprintf("key-%d", i))
	}
}
