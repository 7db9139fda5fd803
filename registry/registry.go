// Package registry implements the badge issuance and ownership state machine.
//
// A BadgeRegistry is a thin view over a Ledger: every call reads and writes
// through it, so the registry itself holds no state and can be rebuilt per
// transaction. Caller identity is always passed in explicitly.
package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"badgeregistry/model"

	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("badgeregistry.registry")

// Object types for composite keys, also stored as 'objectType' in documents.
const (
	BadgeObjectType    = "Badge"
	RegistryObjectType = "RegistryState"
)

// Event names emitted on successful mutations.
const (
	EventBadgeIssued      = "BadgeIssued"
	EventBadgeTransferred = "BadgeTransferred"
)

const (
	maxNameLength        = 256
	maxDescriptionLength = 1024
	maxIdentityLength    = 2048 // X.509 ids carry full subject and issuer DNs
)

// Ledger is the subset of the chaincode stub the registry needs.
// shim.ChaincodeStubInterface satisfies it.
type Ledger interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	CreateCompositeKey(objectType string, attributes []string) (string, error)
	SetEvent(name string, payload []byte) error
}

// BadgeRegistry enforces issuance and transfer rules over a Ledger.
type BadgeRegistry struct {
	ledger Ledger
}

// New creates a BadgeRegistry backed by the given ledger.
func New(ledger Ledger) *BadgeRegistry {
	return &BadgeRegistry{ledger: ledger}
}

// Create fixes the issuer to caller and starts the badge counter at zero.
// It can succeed only once per ledger.
func (r *BadgeRegistry) Create(caller string) (*model.RegistryState, error) {
	if err := validateIdentity(caller, "caller"); err != nil {
		return nil, err
	}
	existing, err := r.readState()
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: issuer is already '%s'", ErrAlreadyInitialized, existing.Issuer)
	}

	state := &model.RegistryState{ObjectType: RegistryObjectType, Issuer: caller, BadgeCount: 0}
	if err := r.writeState(state); err != nil {
		return nil, err
	}
	logger.Infof("Registry created with issuer '%s'", caller)
	return state, nil
}

// IssueBadge mints the next badge for recipient. Only the issuer may call it.
func (r *BadgeRegistry) IssueBadge(caller, name, description, recipient string) (uint64, error) {
	state, err := r.State()
	if err != nil {
		return 0, err
	}
	if caller != state.Issuer {
		return 0, fmt.Errorf("%w: caller '%s' is not the issuer", ErrUnauthorized, caller)
	}
	if err := validateRequiredString(name, "name", maxNameLength); err != nil {
		return 0, err
	}
	if err := validateOptionalString(description, "description", maxDescriptionLength); err != nil {
		return 0, err
	}
	if err := validateIdentity(recipient, "recipient"); err != nil {
		return 0, err
	}

	badgeID := state.BadgeCount + 1
	badge := &model.BadgeRecord{
		ObjectType:  BadgeObjectType,
		ID:          badgeID,
		Name:        name,
		Description: description,
		Owner:       recipient,
	}
	if err := r.writeBadge(badge); err != nil {
		return 0, err
	}
	state.BadgeCount = badgeID
	if err := r.writeState(state); err != nil {
		return 0, err
	}
	if err := r.emit(EventBadgeIssued, model.BadgeIssuedEvent{BadgeID: badgeID, Recipient: recipient}); err != nil {
		return 0, err
	}

	logger.Infof("Badge %d ('%s') issued to '%s'", badgeID, name, recipient)
	return badgeID, nil
}

// TransferBadge hands badgeID to newOwner. Only the current owner may call it.
func (r *BadgeRegistry) TransferBadge(caller string, badgeID uint64, newOwner string) error {
	badge, err := r.GetBadge(badgeID)
	if err != nil {
		return err
	}
	if caller != badge.Owner {
		return fmt.Errorf("%w: caller '%s' does not own badge %d", ErrUnauthorized, caller, badgeID)
	}
	if err := validateIdentity(newOwner, "newOwner"); err != nil {
		return err
	}

	previousOwner := badge.Owner
	badge.Owner = newOwner
	if err := r.writeBadge(badge); err != nil {
		return err
	}
	if err := r.emit(EventBadgeTransferred, model.BadgeTransferredEvent{BadgeID: badgeID, NewOwner: newOwner}); err != nil {
		return err
	}

	logger.Infof("Badge %d transferred from '%s' to '%s'", badgeID, previousOwner, newOwner)
	return nil
}

// GetBadge returns the record stored under badgeID, or ErrNotFound.
func (r *BadgeRegistry) GetBadge(badgeID uint64) (*model.BadgeRecord, error) {
	if badgeID == 0 {
		return nil, fmt.Errorf("%w: badge identifiers start at 1", ErrNotFound)
	}
	key, err := r.BadgeKey(badgeID)
	if err != nil {
		return nil, err
	}
	badgeBytes, err := r.ledger.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge %d from ledger: %w", badgeID, err)
	}
	if badgeBytes == nil {
		return nil, fmt.Errorf("%w: badge %d does not exist", ErrNotFound, badgeID)
	}

	var badge model.BadgeRecord
	if err := json.Unmarshal(badgeBytes, &badge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badge %d: %w", badgeID, err)
	}
	return &badge, nil
}

// BadgeExists reports whether badgeID has been issued.
func (r *BadgeRegistry) BadgeExists(badgeID uint64) (bool, error) {
	if badgeID == 0 {
		return false, nil
	}
	key, err := r.BadgeKey(badgeID)
	if err != nil {
		return false, err
	}
	badgeBytes, err := r.ledger.GetState(key)
	if err != nil {
		return false, fmt.Errorf("failed to read badge %d from ledger: %w", badgeID, err)
	}
	return badgeBytes != nil, nil
}

// GetBadgeCount returns the number of issued badges. A registry that was never
// created reports zero.
func (r *BadgeRegistry) GetBadgeCount() (uint64, error) {
	state, err := r.readState()
	if err != nil {
		return 0, err
	}
	if state == nil {
		return 0, nil
	}
	return state.BadgeCount, nil
}

// GetIssuer returns the identity fixed at creation.
func (r *BadgeRegistry) GetIssuer() (string, error) {
	state, err := r.State()
	if err != nil {
		return "", err
	}
	return state.Issuer, nil
}

// State returns the registry-wide state, or ErrNotInitialized.
func (r *BadgeRegistry) State() (*model.RegistryState, error) {
	state, err := r.readState()
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrNotInitialized
	}
	return state, nil
}

// BadgeKey returns the ledger key a badge is stored under.
func (r *BadgeRegistry) BadgeKey(badgeID uint64) (string, error) {
	key, err := r.ledger.CreateCompositeKey(BadgeObjectType, []string{strconv.FormatUint(badgeID, 10)})
	if err != nil {
		return "", fmt.Errorf("failed to create composite key for badge %d: %w", badgeID, err)
	}
	return key, nil
}

func (r *BadgeRegistry) stateKey() (string, error) {
	key, err := r.ledger.CreateCompositeKey(RegistryObjectType, []string{})
	if err != nil {
		return "", fmt.Errorf("failed to create registry state key: %w", err)
	}
	return key, nil
}

func (r *BadgeRegistry) readState() (*model.RegistryState, error) {
	key, err := r.stateKey()
	if err != nil {
		return nil, err
	}
	stateBytes, err := r.ledger.GetState(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry state: %w", err)
	}
	if stateBytes == nil {
		return nil, nil
	}
	var state model.RegistryState
	if err := json.Unmarshal(stateBytes, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry state: %w", err)
	}
	return &state, nil
}

func (r *BadgeRegistry) writeState(state *model.RegistryState) error {
	key, err := r.stateKey()
	if err != nil {
		return err
	}
	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal registry state: %w", err)
	}
	if err := r.ledger.PutState(key, stateBytes); err != nil {
		return fmt.Errorf("failed to save registry state: %w", err)
	}
	return nil
}

func (r *BadgeRegistry) writeBadge(badge *model.BadgeRecord) error {
	key, err := r.BadgeKey(badge.ID)
	if err != nil {
		return err
	}
	badgeBytes, err := json.Marshal(badge)
	if err != nil {
		return fmt.Errorf("failed to marshal badge %d: %w", badge.ID, err)
	}
	if err := r.ledger.PutState(key, badgeBytes); err != nil {
		return fmt.Errorf("failed to save badge %d to ledger: %w", badge.ID, err)
	}
	return nil
}

// emit sends a notification. Errors are returned so the transaction aborts.
func (r *BadgeRegistry) emit(eventName string, payload interface{}) error {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventName, err)
	}
	if err := r.ledger.SetEvent(eventName, eventBytes); err != nil {
		return fmt.Errorf("failed to set %s event: %w", eventName, err)
	}
	return nil
}

func validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidArgument, field)
	}
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, max)
	}
	return nil
}

func validateOptionalString(input, field string, max int) error {
	if len(input) > max {
		return fmt.Errorf("%w: %s exceeds max length %d", ErrInvalidArgument, field, max)
	}
	return nil
}

func validateIdentity(id, field string) error {
	return validateRequiredString(id, field, maxIdentityLength)
}
