package contract

import (
	"errors"
	"fmt"

	"badgeregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

func (s *BadgeRegistryContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	im := NewIdentityManager(ctx)
	fullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's FullID: %w", err)
	}
	mspID, err := im.GetCurrentMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's MSPID: %w", err)
	}
	return &actorInfo{fullID: fullID, mspID: mspID}, nil
}

// reject records a failed transaction and prefixes err with the operation name.
func (s *BadgeRegistryContract) reject(ctx contractapi.TransactionContextInterface, op string, err error) error {
	reason := rejectionReason(err)
	s.metrics.IncrementRejected(op, reason)
	logger.Infof("%s rejected for '%s' (%s): %v", op, MustGetCallerFullID(ctx), reason, err)
	return fmt.Errorf("%s: %w", op, err)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, registry.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, registry.ErrNotFound):
		return "not_found"
	case errors.Is(err, registry.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, registry.ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, registry.ErrAlreadyInitialized):
		return "already_initialized"
	default:
		return "internal"
	}
}
