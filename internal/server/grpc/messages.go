package grpc

import (
	"time"

	"github.com/google/uuid"
)

// Bytes fields travel as base64 strings and ids as canonical UUID strings.

type Empty struct{}

type PingResponse struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Email                string `json:"email"`
	AuthString           []byte `json:"auth_string"`
	PublicKey            []byte `json:"public_key"`
	EncryptedKeystore    []byte `json:"encrypted_keystore"`
	EncryptedPreferences []byte `json:"encrypted_preferences"`
}

type RegisterResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	PublicKeyID uuid.UUID `json:"public_key_id"`
}

type ObtainNonceRequest struct {
	Email string `json:"email"`
}

type ObtainNonceResponse struct {
	Nonce int32 `json:"nonce"`
}

type SignInRequest struct {
	Email      string `json:"email"`
	AuthString []byte `json:"auth_string"`
	Nonce      int32  `json:"nonce"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type VerifyCreationRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type GetUserPublicKeyRequest struct {
	Email string `json:"email"`
}

type PublicKeyResponse struct {
	PublicKeyID uuid.UUID `json:"public_key_id"`
	PublicKey   []byte    `json:"public_key,omitempty"`
}

type RotatePublicKeyRequest struct {
	PublicKey             []byte    `json:"public_key"`
	ExpectedPreviousKeyID uuid.UUID `json:"expected_previous_key_id"`
}

// EditBlobRequest replaces an encrypted blob. ExpectedDigest is the digest
// of the blob the client last read.
type EditBlobRequest struct {
	EncryptedBlob  []byte `json:"encrypted_blob"`
	ExpectedDigest []byte `json:"expected_digest"`
}

type EditBlobResponse struct {
	Digest []byte `json:"digest"`
}

type NewCategory struct {
	TempID        int32  `json:"temp_id"`
	EncryptedBlob []byte `json:"encrypted_blob"`
}

type CreateBudgetRequest struct {
	EncryptedBlob   []byte        `json:"encrypted_blob"`
	Categories      []NewCategory `json:"categories"`
	AccessPublicKey []byte        `json:"access_public_key"`
}

type CreatedCategory struct {
	TempID     int32     `json:"temp_id"`
	CategoryID uuid.UUID `json:"category_id"`
}

type CreateBudgetResponse struct {
	BudgetID    uuid.UUID         `json:"budget_id"`
	AccessKeyID uuid.UUID         `json:"access_key_id"`
	Categories  []CreatedCategory `json:"categories"`
	ModifiedAt  time.Time         `json:"modified_at"`
}

type Category struct {
	ID            uuid.UUID `json:"id"`
	EncryptedBlob []byte    `json:"encrypted_blob"`
	Digest        []byte    `json:"digest"`
	ModifiedAt    time.Time `json:"modified_at"`
}

type Entry struct {
	ID            uuid.UUID     `json:"id"`
	CategoryID    uuid.NullUUID `json:"category_id"`
	EncryptedBlob []byte        `json:"encrypted_blob"`
	Digest        []byte        `json:"digest"`
	ModifiedAt    time.Time     `json:"modified_at"`
}

type Budget struct {
	ID            uuid.UUID  `json:"id"`
	EncryptedBlob []byte     `json:"encrypted_blob"`
	Digest        []byte     `json:"digest"`
	ModifiedAt    time.Time  `json:"modified_at"`
	Categories    []Category `json:"categories"`
	Entries       []Entry    `json:"entries"`
}

type BudgetResponse struct {
	Budget *Budget `json:"budget"`
}

type BudgetsResponse struct {
	Budgets []*Budget `json:"budgets"`
}

type CreateEntryRequest struct {
	EncryptedBlob []byte        `json:"encrypted_blob"`
	CategoryID    uuid.NullUUID `json:"category_id"`
}

type EntryResponse struct {
	Entry *Entry `json:"entry"`
}

type CreateEntryAndCategoryRequest struct {
	EntryEncryptedBlob    []byte `json:"entry_encrypted_blob"`
	CategoryEncryptedBlob []byte `json:"category_encrypted_blob"`
}

type EntryAndCategoryResponse struct {
	Entry    *Entry    `json:"entry"`
	Category *Category `json:"category"`
}

type EditItemRequest struct {
	ID             uuid.UUID `json:"id"`
	EncryptedBlob  []byte    `json:"encrypted_blob"`
	ExpectedDigest []byte    `json:"expected_digest"`
}

type DeleteItemRequest struct {
	ID uuid.UUID `json:"id"`
}

type CreateCategoryRequest struct {
	EncryptedBlob []byte `json:"encrypted_blob"`
}

type CategoryResponse struct {
	Category *Category `json:"category"`
}

type InviteUserRequest struct {
	RecipientEmail                   string    `json:"recipient_email"`
	SenderPublicKey                  []byte    `json:"sender_public_key"`
	EncryptionKeyEncrypted           []byte    `json:"encryption_key_encrypted"`
	BudgetInfoEncrypted              []byte    `json:"budget_info_encrypted"`
	SenderInfoEncrypted              []byte    `json:"sender_info_encrypted"`
	ShareInfoSymmetricKeyEncrypted   []byte    `json:"share_info_symmetric_key_encrypted"`
	RecipientPublicKeyIDUsedBySender uuid.UUID `json:"recipient_public_key_id_used_by_sender"`
	Expiration                       time.Time `json:"expiration"`
	ReadOnly                         bool      `json:"read_only"`
}

type InviteUserResponse struct {
	InvitationID uuid.UUID `json:"invitation_id"`
}

type AcceptInvitationRequest struct {
	AccessPublicKey []byte `json:"access_public_key"`
}

type AcceptInvitationResponse struct {
	AccessKeyID uuid.UUID `json:"access_key_id"`
	BudgetID    uuid.UUID `json:"budget_id"`
	ReadOnly    bool      `json:"read_only"`
	Budget      *Budget   `json:"budget"`
}

// PendingInvitation is everything the recipient needs to decide on and
// accept an invitation.
type PendingInvitation struct {
	ID                               uuid.UUID `json:"id"`
	BudgetID                         uuid.UUID `json:"budget_id"`
	SenderPublicKey                  []byte    `json:"sender_public_key"`
	EncryptionKeyEncrypted           []byte    `json:"encryption_key_encrypted"`
	AcceptPrivateKeyEncrypted        []byte    `json:"accept_private_key_encrypted"`
	BudgetInfoEncrypted              []byte    `json:"budget_info_encrypted"`
	SenderInfoEncrypted              []byte    `json:"sender_info_encrypted"`
	AcceptKeyInfoEncrypted           []byte    `json:"accept_key_info_encrypted"`
	AcceptKeyIDEncrypted             []byte    `json:"accept_key_id_encrypted"`
	ShareInfoSymmetricKeyEncrypted   []byte    `json:"share_info_symmetric_key_encrypted"`
	RecipientPublicKeyIDUsedBySender uuid.UUID `json:"recipient_public_key_id_used_by_sender"`
	RecipientPublicKeyIDUsedByServer uuid.UUID `json:"recipient_public_key_id_used_by_server"`
	CreatedAt                        time.Time `json:"created_at"`
}

type PendingInvitationsResponse struct {
	Invitations []*PendingInvitation `json:"invitations"`
}
