package models

import (
	"time"

	"github.com/google/uuid"
)

type Budget struct {
	ID                  uuid.UUID
	EncryptedBlob       []byte
	EncryptedBlobDigest []byte
	ModifiedAt          time.Time
	Categories          []Category
	Entries             []Entry
}

// AccessKey is the stored truth behind a budget access token.
type AccessKey struct {
	KeyID     uuid.UUID
	BudgetID  uuid.UUID
	PublicKey []byte
	ReadOnly  bool
}

// AcceptKey lets an invitee prove possession of an invitation.
type AcceptKey struct {
	KeyID      uuid.UUID
	BudgetID   uuid.UUID
	PublicKey  []byte
	Expiration time.Time
	ReadOnly   bool
}

// Invitation is relayed to the recipient as-is. Everything except the ids,
// the sender key and the recipient email is ciphertext.
type Invitation struct {
	ID                               uuid.UUID
	RecipientEmail                   string
	SenderPublicKey                  []byte
	EncryptionKeyEncrypted           []byte
	AcceptPrivateKeyEncrypted        []byte
	BudgetInfoEncrypted              []byte
	SenderInfoEncrypted              []byte
	AcceptKeyInfoEncrypted           []byte
	AcceptKeyIDEncrypted             []byte
	ShareInfoSymmetricKeyEncrypted   []byte
	RecipientPublicKeyIDUsedBySender uuid.UUID
	RecipientPublicKeyIDUsedByServer uuid.UUID
	AcceptKeyID                      uuid.UUID
	BudgetID                         uuid.UUID
	CreatedAt                        time.Time
}
