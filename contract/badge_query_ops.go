package contract

import (
	"encoding/json"
	"fmt"
	"sort"

	"badgeregistry/model"
	"badgeregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---

// GetBadge returns the badge stored under badgeID.
func (s *BadgeRegistryContract) GetBadge(ctx contractapi.TransactionContextInterface, badgeID uint64) (*model.BadgeRecord, error) {
	logger.Debugf("GetBadge: Querying badge %d", badgeID)
	badge, err := registry.New(ctx.GetStub()).GetBadge(badgeID)
	if err != nil {
		return nil, fmt.Errorf("GetBadge: %w", err)
	}
	return badge, nil
}

// BadgeExists reports whether badgeID has been issued.
func (s *BadgeRegistryContract) BadgeExists(ctx contractapi.TransactionContextInterface, badgeID uint64) (bool, error) {
	exists, err := registry.New(ctx.GetStub()).BadgeExists(badgeID)
	if err != nil {
		return false, fmt.Errorf("BadgeExists: %w", err)
	}
	return exists, nil
}

// GetBadgeCount returns the identifier of the most recently issued badge.
func (s *BadgeRegistryContract) GetBadgeCount(ctx contractapi.TransactionContextInterface) (uint64, error) {
	count, err := registry.New(ctx.GetStub()).GetBadgeCount()
	if err != nil {
		return 0, fmt.Errorf("GetBadgeCount: %w", err)
	}
	return count, nil
}

// GetIssuer returns the identity allowed to issue badges.
func (s *BadgeRegistryContract) GetIssuer(ctx contractapi.TransactionContextInterface) (string, error) {
	issuer, err := registry.New(ctx.GetStub()).GetIssuer()
	if err != nil {
		return "", fmt.Errorf("GetIssuer: %w", err)
	}
	return issuer, nil
}

// GetRegistryState returns the issuer and badge count together.
func (s *BadgeRegistryContract) GetRegistryState(ctx contractapi.TransactionContextInterface) (*model.RegistryState, error) {
	state, err := registry.New(ctx.GetStub()).State()
	if err != nil {
		return nil, fmt.Errorf("GetRegistryState: %w", err)
	}
	return state, nil
}

// GetCallerIdentity returns the identity string the registry sees for the
// invoker, i.e. the value others should use as recipient or newOwner.
func (s *BadgeRegistryContract) GetCallerIdentity(ctx contractapi.TransactionContextInterface) (*model.CallerIdentity, error) {
	caller, err := NewIdentityManager(ctx).GetCallerIdentity()
	if err != nil {
		return nil, fmt.Errorf("GetCallerIdentity: %w", err)
	}
	return caller, nil
}

// GetBadgeHistory returns the committed states of one badge, oldest first.
func (s *BadgeRegistryContract) GetBadgeHistory(ctx contractapi.TransactionContextInterface, badgeID uint64) ([]model.HistoryEntry, error) {
	logger.Debugf("GetBadgeHistory: Querying history for badge %d", badgeID)
	reg := registry.New(ctx.GetStub())
	exists, err := reg.BadgeExists(badgeID)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeHistory: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("GetBadgeHistory: %w: badge %d does not exist", registry.ErrNotFound, badgeID)
	}
	badgeKey, err := reg.BadgeKey(badgeID)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeHistory: %w", err)
	}

	historyIter, err := ctx.GetStub().GetHistoryForKey(badgeKey)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeHistory: failed to get history for badge %d: %w", badgeID, err)
	}
	defer historyIter.Close()

	entries := []model.HistoryEntry{}
	for historyIter.HasNext() {
		historyItem, iterErr := historyIter.Next()
		if iterErr != nil {
			logger.Warningf("GetBadgeHistory: Error iterating history for badge %d: %v. Skipping entry.", badgeID, iterErr)
			continue
		}
		if historyItem.IsDelete {
			continue
		}
		var past model.BadgeRecord
		if err := json.Unmarshal(historyItem.Value, &past); err != nil {
			logger.Warningf("GetBadgeHistory: Failed to unmarshal history entry %s for badge %d: %v. Skipping entry.", historyItem.TxId, badgeID, err)
			continue
		}
		entries = append(entries, model.HistoryEntry{
			TxID:      historyItem.TxId,
			Timestamp: historyItem.Timestamp.AsTime(),
			Owner:     past.Owner,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	for i := range entries {
		entries[i].Action = "TRANSFERRED"
	}
	if len(entries) > 0 {
		entries[0].Action = "ISSUED"
	}
	return entries, nil
}
