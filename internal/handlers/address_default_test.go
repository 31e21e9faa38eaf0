package handlers

import (
	"sync"
	"testing"
	"time"

	"storefront/internal/models"
)

func addr(id string, isDefault bool) models.Address {
	return models.Address{ID: id, Title: id, Detail: "somewhere", IsDefault: isDefault, CreatedAt: time.Now()}
}

func assertInvariant(t *testing.T, addresses []models.Address) {
	t.Helper()
	count := defaultAddressCount(addresses)
	if len(addresses) == 0 {
		if count != 0 {
			t.Fatalf("expected 0 defaults for empty set, got %d", count)
		}
		return
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 default among %d addresses, got %d", len(addresses), count)
	}
}

func TestFirstAddressAlwaysDefault(t *testing.T) {
	// The caller's explicit isDefault=false is overridden for the first
	// address.
	planned := planAddressCreate(nil, addr("A", false))
	if !planned[0].IsDefault {
		t.Fatal("expected first address to be forced default")
	}
	assertInvariant(t, planned)
}

func TestCreateSequenceKeepsFirstDefault(t *testing.T) {
	var addresses []models.Address
	for _, id := range []string{"A", "B", "C"} {
		addresses = planAddressCreate(addresses, addr(id, false))
		assertInvariant(t, addresses)
	}

	if !addresses[0].IsDefault {
		t.Fatal("expected A to stay default")
	}
	for _, a := range addresses[1:] {
		if a.IsDefault {
			t.Fatalf("expected %s to be non-default", a.ID)
		}
	}
}

func TestExplicitDefaultDemotesSiblings(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))
	addresses = planAddressCreate(addresses, addr("B", true))

	assertInvariant(t, addresses)
	if addresses[0].IsDefault {
		t.Fatal("expected A to be demoted")
	}
	if !addresses[1].IsDefault {
		t.Fatal("expected B to be the default")
	}
}

func TestDeleteDefaultPromotesEarliestRemaining(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))
	addresses = planAddressCreate(addresses, addr("B", false))
	addresses = planAddressCreate(addresses, addr("C", false))

	planned, found := planAddressDelete(addresses, "A")
	if !found {
		t.Fatal("expected A to be found")
	}
	assertInvariant(t, planned)
	if !planned[0].IsDefault || planned[0].ID != "B" {
		t.Fatalf("expected B promoted, got %+v", planned)
	}
}

func TestDeleteNonDefaultLeavesDefaultAlone(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))
	addresses = planAddressCreate(addresses, addr("B", false))

	planned, found := planAddressDelete(addresses, "B")
	if !found {
		t.Fatal("expected B to be found")
	}
	assertInvariant(t, planned)
	if planned[0].ID != "A" || !planned[0].IsDefault {
		t.Fatalf("expected A to stay default, got %+v", planned)
	}
}

func TestDeleteLastAddressLeavesZeroDefaults(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))

	planned, found := planAddressDelete(addresses, "A")
	if !found {
		t.Fatal("expected A to be found")
	}
	if len(planned) != 0 {
		t.Fatalf("expected empty set, got %d", len(planned))
	}
	assertInvariant(t, planned)
}

func TestDeleteUnknownAddress(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))

	planned, found := planAddressDelete(addresses, "missing")
	if found {
		t.Fatal("expected missing id to report not found")
	}
	if len(planned) != 1 {
		t.Fatal("expected set to be unmodified")
	}
}

func TestDeleteAllInOrder(t *testing.T) {
	var addresses []models.Address
	for _, id := range []string{"A", "B", "C"} {
		addresses = planAddressCreate(addresses, addr(id, false))
	}

	for _, id := range []string{"A", "C", "B"} {
		var found bool
		addresses, found = planAddressDelete(addresses, id)
		if !found {
			t.Fatalf("expected %s to be found", id)
		}
		assertInvariant(t, addresses)
	}
	if len(addresses) != 0 {
		t.Fatalf("expected empty set, got %d", len(addresses))
	}
}

func TestUpdateSetDefaultMovesFlag(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))
	addresses = planAddressCreate(addresses, addr("B", false))

	updated := addr("B", true)
	planned, index := planAddressUpdate(addresses, "B", updated)
	if index != 1 {
		t.Fatalf("expected index 1, got %d", index)
	}
	assertInvariant(t, planned)
	if !planned[1].IsDefault || planned[0].IsDefault {
		t.Fatalf("expected default to move to B, got %+v", planned)
	}
}

func TestUpdateCannotClearSoleDefault(t *testing.T) {
	addresses := planAddressCreate(nil, addr("A", false))
	addresses = planAddressCreate(addresses, addr("B", false))

	planned, index := planAddressUpdate(addresses, "A", addr("A", false))
	if index != 0 {
		t.Fatalf("expected index 0, got %d", index)
	}
	assertInvariant(t, planned)
	if !planned[0].IsDefault {
		t.Fatal("expected A to remain default")
	}
}

/* =========================
   CONCURRENCY
========================= */

// addressDoc mimics the user document: the address slice plus the version
// the conditional update matches on. casStore applies writes the way
// commitAddresses does against Mongo: compare version, swap slice,
// increment.
type addressDoc struct {
	mu        sync.Mutex
	version   int64
	addresses []models.Address
}

func (d *addressDoc) load() (int64, []models.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	snapshot := make([]models.Address, len(d.addresses))
	copy(snapshot, d.addresses)
	return d.version, snapshot
}

func (d *addressDoc) compareAndSwap(version int64, planned []models.Address) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.version != version {
		return false
	}
	d.addresses = planned
	d.version++
	return true
}

func TestConcurrentDefaultDeletion(t *testing.T) {
	for run := 0; run < 100; run++ {
		doc := &addressDoc{
			addresses: []models.Address{addr("A", true), addr("B", false)},
		}

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				version, snapshot := doc.load()
				planned, found := planAddressDelete(snapshot, "A")
				if !found {
					// The other request already deleted A; nothing to
					// commit.
					return
				}
				// A losing CAS is the conflict the handler surfaces as
				// 409; it must not be retried into a second delete here.
				doc.compareAndSwap(version, planned)
			}()
		}
		wg.Wait()

		_, final := doc.load()
		if len(final) != 1 || final[0].ID != "B" {
			t.Fatalf("run %d: expected only B to remain, got %+v", run, final)
		}
		if !final[0].IsDefault {
			t.Fatalf("run %d: expected B to be promoted to default", run)
		}
		assertInvariant(t, final)
	}
}
