package registry_test

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"badgeregistry/ledger"
	"badgeregistry/model"
	"badgeregistry/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	issuer = "x509::CN=issuer,OU=client::CN=ca.org1.example.com"
	alice  = "x509::CN=alice,OU=client::CN=ca.org1.example.com"
	bob    = "x509::CN=bob,OU=client::CN=ca.org1.example.com"
	carol  = "x509::CN=carol,OU=client::CN=ca.org1.example.com"
)

func newRegistry(t *testing.T) *ledger.Memory {
	t.Helper()
	mem := ledger.NewMemory()
	err := mem.Update(func(tx *ledger.Tx) error {
		_, err := registry.New(tx).Create(issuer)
		return err
	})
	require.NoError(t, err)
	return mem
}

func issue(mem *ledger.Memory, caller, name, description, recipient string) (uint64, error) {
	var id uint64
	err := mem.Update(func(tx *ledger.Tx) error {
		var err error
		id, err = registry.New(tx).IssueBadge(caller, name, description, recipient)
		return err
	})
	return id, err
}

func transfer(mem *ledger.Memory, caller string, badgeID uint64, newOwner string) error {
	return mem.Update(func(tx *ledger.Tx) error {
		return registry.New(tx).TransferBadge(caller, badgeID, newOwner)
	})
}

func getBadge(t *testing.T, mem *ledger.Memory, badgeID uint64) *model.BadgeRecord {
	t.Helper()
	var badge *model.BadgeRecord
	err := mem.View(func(tx *ledger.Tx) error {
		var err error
		badge, err = registry.New(tx).GetBadge(badgeID)
		return err
	})
	require.NoError(t, err)
	return badge
}

func badgeCount(t *testing.T, mem *ledger.Memory) uint64 {
	t.Helper()
	var count uint64
	err := mem.View(func(tx *ledger.Tx) error {
		var err error
		count, err = registry.New(tx).GetBadgeCount()
		return err
	})
	require.NoError(t, err)
	return count
}

func TestCreate(t *testing.T) {
	mem := newRegistry(t)

	err := mem.View(func(tx *ledger.Tx) error {
		reg := registry.New(tx)
		gotIssuer, err := reg.GetIssuer()
		require.NoError(t, err)
		assert.Equal(t, issuer, gotIssuer)

		count, err := reg.GetBadgeCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(0), count)
		return nil
	})
	require.NoError(t, err)
	assert.Empty(t, mem.Events())
}

func TestCreate_IssuerIsFixed(t *testing.T) {
	mem := newRegistry(t)

	err := mem.Update(func(tx *ledger.Tx) error {
		_, err := registry.New(tx).Create(alice)
		return err
	})
	require.ErrorIs(t, err, registry.ErrAlreadyInitialized)

	err = mem.View(func(tx *ledger.Tx) error {
		gotIssuer, err := registry.New(tx).GetIssuer()
		assert.Equal(t, issuer, gotIssuer)
		return err
	})
	require.NoError(t, err)
}

func TestCreate_EmptyCaller(t *testing.T) {
	mem := ledger.NewMemory()
	err := mem.Update(func(tx *ledger.Tx) error {
		_, err := registry.New(tx).Create("  ")
		return err
	})
	require.ErrorIs(t, err, registry.ErrInvalidArgument)
}

func TestNotInitialized(t *testing.T) {
	mem := ledger.NewMemory()

	_, err := issue(mem, issuer, "Rust-101", "Completed module", alice)
	require.ErrorIs(t, err, registry.ErrNotInitialized)

	err = mem.View(func(tx *ledger.Tx) error {
		reg := registry.New(tx)
		_, err := reg.GetIssuer()
		assert.ErrorIs(t, err, registry.ErrNotInitialized)

		count, err := reg.GetBadgeCount()
		assert.NoError(t, err)
		assert.Equal(t, uint64(0), count)
		return nil
	})
	require.NoError(t, err)
}

func TestIssueAndTransferScenario(t *testing.T) {
	mem := newRegistry(t)

	// Issuer issues the first badge to alice.
	id, err := issue(mem, issuer, "Rust-101", "Completed module", alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	badge := getBadge(t, mem, 1)
	assert.Equal(t, "Rust-101", badge.Name)
	assert.Equal(t, "Completed module", badge.Description)
	assert.Equal(t, alice, badge.Owner)
	assert.Equal(t, uint64(1), badgeCount(t, mem))

	events := mem.Events()
	require.Len(t, events, 1)
	assert.Equal(t, registry.EventBadgeIssued, events[0].Name)
	assert.JSONEq(t, fmt.Sprintf(`{"badgeId":1,"recipient":%q}`, alice), string(events[0].Payload))

	// Alice transfers to bob.
	require.NoError(t, transfer(mem, alice, 1, bob))
	assert.Equal(t, bob, getBadge(t, mem, 1).Owner)

	events = mem.EventsSince(1)
	require.Len(t, events, 1)
	assert.Equal(t, registry.EventBadgeTransferred, events[0].Name)
	var transferred model.BadgeTransferredEvent
	require.NoError(t, json.Unmarshal(events[0].Payload, &transferred))
	assert.Equal(t, model.BadgeTransferredEvent{BadgeID: 1, NewOwner: bob}, transferred)

	// Carol is not the issuer.
	_, err = issue(mem, carol, "Go-101", "Completed module", carol)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.Equal(t, uint64(1), badgeCount(t, mem))
	assert.Len(t, mem.Events(), 2)

	// Alice no longer owns badge 1.
	err = transfer(mem, alice, 1, carol)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.Equal(t, bob, getBadge(t, mem, 1).Owner)
	assert.Len(t, mem.Events(), 2)

	// Only bob can move it on now.
	require.NoError(t, transfer(mem, bob, 1, carol))
	badge = getBadge(t, mem, 1)
	assert.Equal(t, carol, badge.Owner)
	assert.Equal(t, "Rust-101", badge.Name)
	assert.Equal(t, "Completed module", badge.Description)
}

func TestIssueBadge_SequentialIdentifiers(t *testing.T) {
	mem := newRegistry(t)

	recipients := []string{alice, bob, carol, alice, bob}
	for i, recipient := range recipients {
		id, err := issue(mem, issuer, fmt.Sprintf("badge-%d", i+1), "", recipient)
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), id)
	}

	count := badgeCount(t, mem)
	assert.Equal(t, uint64(len(recipients)), count)
	for id := uint64(1); id <= count; id++ {
		badge := getBadge(t, mem, id)
		assert.Equal(t, id, badge.ID)
		assert.Equal(t, recipients[id-1], badge.Owner)
	}
	assert.Len(t, mem.Events(), len(recipients))
}

func TestIssueBadge_IssuerCanIssueToSelf(t *testing.T) {
	mem := newRegistry(t)

	id, err := issue(mem, issuer, "Self", "", issuer)
	require.NoError(t, err)
	require.NoError(t, transfer(mem, issuer, id, alice))

	_, err = issue(mem, alice, "Nope", "", alice)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestIssueBadge_InvalidArguments(t *testing.T) {
	tests := []struct {
		name        string
		badgeName   string
		description string
		recipient   string
	}{
		{name: "empty name", badgeName: "", recipient: alice},
		{name: "blank name", badgeName: "   ", recipient: alice},
		{name: "name too long", badgeName: strings.Repeat("n", 257), recipient: alice},
		{name: "description too long", badgeName: "ok", description: strings.Repeat("d", 1025), recipient: alice},
		{name: "empty recipient", badgeName: "ok", recipient: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := newRegistry(t)
			_, err := issue(mem, issuer, tt.badgeName, tt.description, tt.recipient)
			require.ErrorIs(t, err, registry.ErrInvalidArgument)
			assert.Equal(t, uint64(0), badgeCount(t, mem))
			assert.Empty(t, mem.Events())
		})
	}
}

func TestIssueBadge_UnauthorizedBeforeValidation(t *testing.T) {
	mem := newRegistry(t)
	_, err := issue(mem, carol, "", "", "")
	require.ErrorIs(t, err, registry.ErrUnauthorized)
}

func TestTransferBadge_NotFound(t *testing.T) {
	mem := newRegistry(t)
	_, err := issue(mem, issuer, "Rust-101", "", alice)
	require.NoError(t, err)

	for _, id := range []uint64{0, 2, 99} {
		err := transfer(mem, alice, id, bob)
		assert.ErrorIs(t, err, registry.ErrNotFound, "badge %d", id)
	}
	assert.Len(t, mem.Events(), 1)
}

func TestTransferBadge_EmptyNewOwner(t *testing.T) {
	mem := newRegistry(t)
	_, err := issue(mem, issuer, "Rust-101", "", alice)
	require.NoError(t, err)

	err = transfer(mem, alice, 1, "")
	require.ErrorIs(t, err, registry.ErrInvalidArgument)
	assert.Equal(t, alice, getBadge(t, mem, 1).Owner)
}

func TestTransferBadge_IssuerHasNoOverride(t *testing.T) {
	mem := newRegistry(t)
	_, err := issue(mem, issuer, "Rust-101", "", alice)
	require.NoError(t, err)

	err = transfer(mem, issuer, 1, bob)
	require.ErrorIs(t, err, registry.ErrUnauthorized)
	assert.Equal(t, alice, getBadge(t, mem, 1).Owner)
}

func TestGetBadge_NotFound(t *testing.T) {
	mem := newRegistry(t)

	err := mem.View(func(tx *ledger.Tx) error {
		reg := registry.New(tx)
		_, err := reg.GetBadge(1)
		assert.ErrorIs(t, err, registry.ErrNotFound)

		exists, err := reg.BadgeExists(1)
		assert.NoError(t, err)
		assert.False(t, exists)

		exists, err = reg.BadgeExists(0)
		assert.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentIssuance(t *testing.T) {
	mem := newRegistry(t)

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	ids := make(chan uint64, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				id, err := issue(mem, issuer, fmt.Sprintf("w%d-%d", w, i), "", alice)
				if !assert.NoError(t, err) {
					return
				}
				ids <- id
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool)
	for id := range ids {
		assert.False(t, seen[id], "identifier %d issued twice", id)
		seen[id] = true
	}
	total := uint64(workers * perWorker)
	assert.Equal(t, total, badgeCount(t, mem))
	for id := uint64(1); id <= total; id++ {
		assert.True(t, seen[id], "identifier %d missing", id)
	}
	assert.Len(t, mem.Events(), int(total))
}

func TestConcurrentTransfersSingleWinner(t *testing.T) {
	mem := newRegistry(t)
	_, err := issue(mem, issuer, "Rust-101", "", alice)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, target := range []string{bob, carol} {
		wg.Add(1)
		go func(target string) {
			defer wg.Done()
			results <- transfer(mem, alice, 1, target)
		}(target)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, registry.ErrUnauthorized)
		rejected++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)
	assert.Contains(t, []string{bob, carol}, getBadge(t, mem, 1).Owner)
	assert.Len(t, mem.Events(), 2)
}

// failingLedger wraps a ledger transaction and fails SetEvent.
type failingLedger struct {
	*ledger.Tx
}

func (f failingLedger) SetEvent(string, []byte) error {
	return fmt.Errorf("event bus unavailable")
}

func TestIssueBadge_EventFailureRollsBack(t *testing.T) {
	mem := newRegistry(t)

	err := mem.Update(func(tx *ledger.Tx) error {
		_, err := registry.New(failingLedger{tx}).IssueBadge(issuer, "Rust-101", "", alice)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BadgeIssued")

	assert.Equal(t, uint64(0), badgeCount(t, mem))
	assert.Empty(t, mem.Events())
	err = mem.View(func(tx *ledger.Tx) error {
		exists, err := registry.New(tx).BadgeExists(1)
		assert.False(t, exists)
		return err
	})
	require.NoError(t, err)
}
