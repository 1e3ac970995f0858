package token

import (
	"time"

	"github.com/google/uuid"
)

// AccessClaims prove control of a budget access key.
type AccessClaims struct {
	KeyID      uuid.UUID `json:"key_id"`
	BudgetID   uuid.UUID `json:"budget_id"`
	Expiration int64     `json:"expiration"`
}

func (c AccessClaims) ExpiresAt() time.Time { return time.Unix(c.Expiration, 0) }

// AcceptClaims prove possession of an invitation's accept private key.
type AcceptClaims struct {
	InvitationID uuid.UUID `json:"iid"`
	KeyID        uuid.UUID `json:"kid"`
	BudgetID     uuid.UUID `json:"bid"`
	Expiration   int64     `json:"exp"`
}

func (c AcceptClaims) ExpiresAt() time.Time { return time.Unix(c.Expiration, 0) }

// InviteSenderClaims prove that the bearer created an invitation.
type InviteSenderClaims struct {
	InviteID   uuid.UUID `json:"invite_id"`
	Expiration int64     `json:"expiration"`
}

func (c InviteSenderClaims) ExpiresAt() time.Time { return time.Unix(c.Expiration, 0) }

type (
	AccessToken       = Token[AccessClaims]
	AcceptToken       = Token[AcceptClaims]
	InviteSenderToken = Token[InviteSenderClaims]
)
