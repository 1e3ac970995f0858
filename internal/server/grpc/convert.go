package grpc

import "github.com/dmitrijs2005/budgetkeeper/internal/server/models"

func categoryFromModel(c *models.Category) *Category {
	return &Category{
		ID:            c.ID,
		EncryptedBlob: c.EncryptedBlob,
		Digest:        c.EncryptedBlobDigest,
		ModifiedAt:    c.ModifiedAt,
	}
}

func entryFromModel(e *models.Entry) *Entry {
	return &Entry{
		ID:            e.ID,
		CategoryID:    e.CategoryID,
		EncryptedBlob: e.EncryptedBlob,
		Digest:        e.EncryptedBlobDigest,
		ModifiedAt:    e.ModifiedAt,
	}
}

func budgetFromModel(b *models.Budget) *Budget {
	if b == nil {
		return nil
	}
	out := &Budget{
		ID:            b.ID,
		EncryptedBlob: b.EncryptedBlob,
		Digest:        b.EncryptedBlobDigest,
		ModifiedAt:    b.ModifiedAt,
		Categories:    make([]Category, 0, len(b.Categories)),
		Entries:       make([]Entry, 0, len(b.Entries)),
	}
	for i := range b.Categories {
		out.Categories = append(out.Categories, *categoryFromModel(&b.Categories[i]))
	}
	for i := range b.Entries {
		out.Entries = append(out.Entries, *entryFromModel(&b.Entries[i]))
	}
	return out
}

func invitationFromModel(inv *models.Invitation) *PendingInvitation {
	return &PendingInvitation{
		ID:                               inv.ID,
		BudgetID:                         inv.BudgetID,
		SenderPublicKey:                  inv.SenderPublicKey,
		EncryptionKeyEncrypted:           inv.EncryptionKeyEncrypted,
		AcceptPrivateKeyEncrypted:        inv.AcceptPrivateKeyEncrypted,
		BudgetInfoEncrypted:              inv.BudgetInfoEncrypted,
		SenderInfoEncrypted:              inv.SenderInfoEncrypted,
		AcceptKeyInfoEncrypted:           inv.AcceptKeyInfoEncrypted,
		AcceptKeyIDEncrypted:             inv.AcceptKeyIDEncrypted,
		ShareInfoSymmetricKeyEncrypted:   inv.ShareInfoSymmetricKeyEncrypted,
		RecipientPublicKeyIDUsedBySender: inv.RecipientPublicKeyIDUsedBySender,
		RecipientPublicKeyIDUsedByServer: inv.RecipientPublicKeyIDUsedByServer,
		CreatedAt:                        inv.CreatedAt,
	}
}
