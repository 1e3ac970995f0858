package common

// AccessTokenHeaderName is the gRPC metadata key carrying the user session
// token.
const AccessTokenHeaderName = "access_token"

// Metadata keys carrying capability tokens. Tokens never travel in the
// request body.
const (
	BudgetAccessTokenHeaderName       = "budget_access_token"
	BudgetAcceptTokenHeaderName       = "budget_accept_token"
	BudgetInviteSenderTokenHeaderName = "budget_invite_sender_token"
)
