package models

import (
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID                  uuid.UUID
	BudgetID            uuid.UUID
	CategoryID          uuid.NullUUID
	EncryptedBlob       []byte
	EncryptedBlobDigest []byte
	ModifiedAt          time.Time
}

type Category struct {
	ID                  uuid.UUID
	BudgetID            uuid.UUID
	EncryptedBlob       []byte
	EncryptedBlobDigest []byte
	ModifiedAt          time.Time
}

// NewCategory is a category submitted together with a new budget. TempID is
// chosen by the client so it can match the generated ids to its plaintext.
type NewCategory struct {
	TempID        int32
	EncryptedBlob []byte
}

// CreatedCategory maps a client TempID to the stored category id.
type CreatedCategory struct {
	TempID     int32
	CategoryID uuid.UUID
}
