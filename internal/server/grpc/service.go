package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const ServiceName = "budgetkeeper.v1.BudgetKeeper"

// BudgetKeeperServer is the RPC surface registered with ServiceDesc.
type BudgetKeeperServer interface {
	Ping(context.Context, *Empty) (*PingResponse, error)

	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	ObtainNonce(context.Context, *ObtainNonceRequest) (*ObtainNonceResponse, error)
	SignIn(context.Context, *SignInRequest) (*Empty, error)
	VerifyCreation(context.Context, *VerifyCreationRequest) (*Empty, error)
	VerifyOTP(context.Context, *VerifyOTPRequest) (*TokenPairResponse, error)
	RefreshToken(context.Context, *RefreshTokenRequest) (*TokenPairResponse, error)
	Logout(context.Context, *LogoutRequest) (*Empty, error)
	GetUserPublicKey(context.Context, *GetUserPublicKeyRequest) (*PublicKeyResponse, error)
	RotatePublicKey(context.Context, *RotatePublicKeyRequest) (*PublicKeyResponse, error)
	EditKeystore(context.Context, *EditBlobRequest) (*EditBlobResponse, error)
	EditPreferences(context.Context, *EditBlobRequest) (*EditBlobResponse, error)
	DeleteUser(context.Context, *Empty) (*Empty, error)

	CreateBudget(context.Context, *CreateBudgetRequest) (*CreateBudgetResponse, error)
	GetBudget(context.Context, *Empty) (*BudgetResponse, error)
	GetMultipleBudgets(context.Context, *Empty) (*BudgetsResponse, error)
	EditBudget(context.Context, *EditBlobRequest) (*EditBlobResponse, error)
	LeaveBudget(context.Context, *Empty) (*Empty, error)

	CreateEntry(context.Context, *CreateEntryRequest) (*EntryResponse, error)
	CreateEntryAndCategory(context.Context, *CreateEntryAndCategoryRequest) (*EntryAndCategoryResponse, error)
	EditEntry(context.Context, *EditItemRequest) (*EditBlobResponse, error)
	DeleteEntry(context.Context, *DeleteItemRequest) (*Empty, error)
	CreateCategory(context.Context, *CreateCategoryRequest) (*CategoryResponse, error)
	EditCategory(context.Context, *EditItemRequest) (*EditBlobResponse, error)
	DeleteCategory(context.Context, *DeleteItemRequest) (*Empty, error)

	InviteUser(context.Context, *InviteUserRequest) (*InviteUserResponse, error)
	RetractInvitation(context.Context, *Empty) (*Empty, error)
	AcceptInvitation(context.Context, *AcceptInvitationRequest) (*AcceptInvitationResponse, error)
	DeclineInvitation(context.Context, *Empty) (*Empty, error)
	ListPendingInvitations(context.Context, *Empty) (*PendingInvitationsResponse, error)
}

// unary builds a method descriptor the same way protoc-gen-go-grpc does,
// with the request type supplied as a type parameter.
func unary[Req, Resp any](name string, call func(BudgetKeeperServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(BudgetKeeperServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(BudgetKeeperServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the path a client invokes for method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BudgetKeeperServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", BudgetKeeperServer.Ping),

		unary("Register", BudgetKeeperServer.Register),
		unary("ObtainNonce", BudgetKeeperServer.ObtainNonce),
		unary("SignIn", BudgetKeeperServer.SignIn),
		unary("VerifyCreation", BudgetKeeperServer.VerifyCreation),
		unary("VerifyOTP", BudgetKeeperServer.VerifyOTP),
		unary("RefreshToken", BudgetKeeperServer.RefreshToken),
		unary("Logout", BudgetKeeperServer.Logout),
		unary("GetUserPublicKey", BudgetKeeperServer.GetUserPublicKey),
		unary("RotatePublicKey", BudgetKeeperServer.RotatePublicKey),
		unary("EditKeystore", BudgetKeeperServer.EditKeystore),
		unary("EditPreferences", BudgetKeeperServer.EditPreferences),
		unary("DeleteUser", BudgetKeeperServer.DeleteUser),

		unary("CreateBudget", BudgetKeeperServer.CreateBudget),
		unary("GetBudget", BudgetKeeperServer.GetBudget),
		unary("GetMultipleBudgets", BudgetKeeperServer.GetMultipleBudgets),
		unary("EditBudget", BudgetKeeperServer.EditBudget),
		unary("LeaveBudget", BudgetKeeperServer.LeaveBudget),

		unary("CreateEntry", BudgetKeeperServer.CreateEntry),
		unary("CreateEntryAndCategory", BudgetKeeperServer.CreateEntryAndCategory),
		unary("EditEntry", BudgetKeeperServer.EditEntry),
		unary("DeleteEntry", BudgetKeeperServer.DeleteEntry),
		unary("CreateCategory", BudgetKeeperServer.CreateCategory),
		unary("EditCategory", BudgetKeeperServer.EditCategory),
		unary("DeleteCategory", BudgetKeeperServer.DeleteCategory),

		unary("InviteUser", BudgetKeeperServer.InviteUser),
		unary("RetractInvitation", BudgetKeeperServer.RetractInvitation),
		unary("AcceptInvitation", BudgetKeeperServer.AcceptInvitation),
		unary("DeclineInvitation", BudgetKeeperServer.DeclineInvitation),
		unary("ListPendingInvitations", BudgetKeeperServer.ListPendingInvitations),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "budgetkeeper.v1",
}
