package model

import "time"

// BadgeRecord is a single issued badge as stored on the ledger.
type BadgeRecord struct {
	ObjectType  string `json:"objectType"` // "Badge"
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       string `json:"owner"` // Identity of the current holder
}

// RegistryState holds the registry-wide fields fixed or advanced by issuance.
type RegistryState struct {
	ObjectType string `json:"objectType"` // "RegistryState"
	Issuer     string `json:"issuer"`     // Fixed at creation, never changes
	BadgeCount uint64 `json:"badgeCount"` // Identifier of the most recently issued badge
}

// BadgeIssuedEvent is the payload of the BadgeIssued notification.
type BadgeIssuedEvent struct {
	BadgeID   uint64 `json:"badgeId"`
	Recipient string `json:"recipient"`
}

// BadgeTransferredEvent is the payload of the BadgeTransferred notification.
type BadgeTransferredEvent struct {
	BadgeID  uint64 `json:"badgeId"`
	NewOwner string `json:"newOwner"`
}

// HistoryEntry represents one committed state of a badge.
type HistoryEntry struct {
	TxID      string    `json:"txId"`
	Timestamp time.Time `json:"timestamp"`
	Owner     string    `json:"owner"`
	Action    string    `json:"action"` // ISSUED or TRANSFERRED
}
