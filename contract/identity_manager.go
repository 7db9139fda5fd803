package contract

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"badgeregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("badgeregistry.identitymanager")

const x509Prefix = "x509::"

// IdentityManager resolves the transaction invoker into the identity string
// the registry uses for issuer and owner checks.
type IdentityManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewIdentityManager creates a new instance of IdentityManager.
func NewIdentityManager(ctx contractapi.TransactionContextInterface) *IdentityManager {
	return &IdentityManager{Ctx: ctx}
}

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, x509Prefix) || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// NormalizeIdentity returns the decoded "x509::<subject>::<issuer>" form of an
// identity. The client identity library reports ids base64 encoded; clients
// may pass either form as a recipient.
func NormalizeIdentity(id string) string {
	trimmed := strings.TrimSpace(id)
	if strings.HasPrefix(trimmed, x509Prefix) {
		return trimmed
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err == nil && strings.HasPrefix(string(decoded), x509Prefix) {
		return string(decoded)
	}
	return trimmed
}

// GetCurrentIdentityFullID retrieves the normalized X.509 ID of the current transactor.
func (im *IdentityManager) GetCurrentIdentityFullID() (string, error) {
	clientIdentity := im.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return NormalizeIdentity(id), nil
}

// GetCurrentMSPID returns the MSP of the current transactor.
func (im *IdentityManager) GetCurrentMSPID() (string, error) {
	clientIdentity := im.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	mspID, err := clientIdentity.GetMSPID()
	if err != nil {
		return "", fmt.Errorf("failed to get client MSPID: %w", err)
	}
	return mspID, nil
}

// GetCallerIdentity bundles the invoker's id and MSP.
func (im *IdentityManager) GetCallerIdentity() (*model.CallerIdentity, error) {
	fullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, err
	}
	mspID, err := im.GetCurrentMSPID()
	if err != nil {
		return nil, err
	}
	return &model.CallerIdentity{ID: fullID, MSPID: mspID}, nil
}

// MustGetCallerFullID is a utility to get the caller's ID, returning a placeholder on error.
// Useful for logging when a full error return isn't desired.
func MustGetCallerFullID(ctx contractapi.TransactionContextInterface) string {
	id, err := NewIdentityManager(ctx).GetCurrentIdentityFullID()
	if err != nil {
		idLogger.Errorf("MustGetCallerFullID: %v. Returning placeholder.", err)
		return "ERROR_GETTING_CALLER_ID"
	}
	return id
}
