package contract

import (
	"time"

	"badgeregistry/metrics"
	"badgeregistry/model"
	"badgeregistry/registry"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("badgeregistry.badgecontract")

// BadgeRegistryContract exposes the badge registry as chaincode transactions.
// @contract:BadgeRegistryContract
type BadgeRegistryContract struct {
	contractapi.Contract
	metrics *metrics.Metrics
}

// New creates the contract. A nil Metrics disables instrumentation.
func New(m *metrics.Metrics) *BadgeRegistryContract {
	return &BadgeRegistryContract{metrics: m}
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	mspID  string
}

// InitRegistry creates the registry and makes the invoker its issuer.
// It must be the first transaction submitted after deployment.
func (s *BadgeRegistryContract) InitRegistry(ctx contractapi.TransactionContextInterface) (*model.RegistryState, error) {
	const op = "InitRegistry"
	defer s.metrics.ObserveTransaction(op, time.Now())

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return nil, s.reject(ctx, op, err)
	}
	logger.Infof("Chaincode Call: InitRegistry by '%s' (MSP: %s)", actor.fullID, actor.mspID)

	state, err := registry.New(ctx.GetStub()).Create(actor.fullID)
	if err != nil {
		return nil, s.reject(ctx, op, err)
	}
	return state, nil
}

// IssueBadge mints a new badge for recipient and returns its identifier.
// Only the issuer may call it.
func (s *BadgeRegistryContract) IssueBadge(ctx contractapi.TransactionContextInterface, name string, description string, recipient string) (uint64, error) {
	const op = "IssueBadge"
	defer s.metrics.ObserveTransaction(op, time.Now())

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return 0, s.reject(ctx, op, err)
	}
	recipient = NormalizeIdentity(recipient)
	logger.Infof("Chaincode Call: IssueBadge '%s' to '%s' by '%s'", name, recipient, actor.fullID)

	badgeID, err := registry.New(ctx.GetStub()).IssueBadge(actor.fullID, name, description, recipient)
	if err != nil {
		return 0, s.reject(ctx, op, err)
	}
	s.metrics.IncrementIssued()
	return badgeID, nil
}

// TransferBadge hands an owned badge to newOwner.
func (s *BadgeRegistryContract) TransferBadge(ctx contractapi.TransactionContextInterface, badgeID uint64, newOwner string) error {
	const op = "TransferBadge"
	defer s.metrics.ObserveTransaction(op, time.Now())

	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return s.reject(ctx, op, err)
	}
	newOwner = NormalizeIdentity(newOwner)
	logger.Infof("Chaincode Call: TransferBadge %d to '%s' by '%s'", badgeID, newOwner, actor.fullID)

	if err := registry.New(ctx.GetStub()).TransferBadge(actor.fullID, badgeID, newOwner); err != nil {
		return s.reject(ctx, op, err)
	}
	s.metrics.IncrementTransferred()
	return nil
}
