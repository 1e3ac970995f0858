package grpc

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/common"
	"github.com/dmitrijs2005/budgetkeeper/internal/server/services"
)

func (s *GRPCServer) InviteUser(ctx context.Context, req *InviteUserRequest) (*InviteUserResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := capabilityToken(ctx, common.BudgetAccessTokenHeaderName)
	if err != nil {
		return nil, err
	}

	invID, err := s.invitations.InviteUser(ctx, id, tok, services.Invitation{
		RecipientEmail:                   req.RecipientEmail,
		SenderPublicKey:                  req.SenderPublicKey,
		EncryptionKeyEncrypted:           req.EncryptionKeyEncrypted,
		BudgetInfoEncrypted:              req.BudgetInfoEncrypted,
		SenderInfoEncrypted:              req.SenderInfoEncrypted,
		ShareInfoSymmetricKeyEncrypted:   req.ShareInfoSymmetricKeyEncrypted,
		RecipientPublicKeyIDUsedBySender: req.RecipientPublicKeyIDUsedBySender,
		Expiration:                       req.Expiration,
		ReadOnly:                         req.ReadOnly,
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &InviteUserResponse{InvitationID: invID}, nil
}

func (s *GRPCServer) RetractInvitation(ctx context.Context, req *Empty) (*Empty, error) {
	tok, err := capabilityToken(ctx, common.BudgetInviteSenderTokenHeaderName)
	if err != nil {
		return nil, err
	}
	if err := s.invitations.RetractInvitation(ctx, tok); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) AcceptInvitation(ctx context.Context, req *AcceptInvitationRequest) (*AcceptInvitationResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := capabilityToken(ctx, common.BudgetAcceptTokenHeaderName)
	if err != nil {
		return nil, err
	}

	accepted, err := s.invitations.AcceptInvitation(ctx, id, tok, req.AccessPublicKey)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &AcceptInvitationResponse{
		AccessKeyID: accepted.AccessKeyID,
		BudgetID:    accepted.BudgetID,
		ReadOnly:    accepted.ReadOnly,
		Budget:      budgetFromModel(accepted.Budget),
	}, nil
}

func (s *GRPCServer) DeclineInvitation(ctx context.Context, req *Empty) (*Empty, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := capabilityToken(ctx, common.BudgetAcceptTokenHeaderName)
	if err != nil {
		return nil, err
	}
	if err := s.invitations.DeclineInvitation(ctx, id, tok); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) ListPendingInvitations(ctx context.Context, req *Empty) (*PendingInvitationsResponse, error) {
	id, err := identityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.invitations.ListPendingInvitations(ctx, id)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp := &PendingInvitationsResponse{Invitations: make([]*PendingInvitation, 0, len(list))}
	for _, inv := range list {
		resp.Invitations = append(resp.Invitations, invitationFromModel(inv))
	}
	return resp, nil
}
