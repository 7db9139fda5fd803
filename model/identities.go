// File: model/identities.go
package model

// CallerIdentity describes the invoker of a transaction.
type CallerIdentity struct {
	ID    string `json:"id"`    // Full X.509 identity string, used as owner/recipient
	MSPID string `json:"mspId"` // MSP ID of the invoker's organization
}
