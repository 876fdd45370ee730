package ports

import "context"

// AdminVerifier checks the out-of-band administrative credential presented
// with force-cancel calls. Validation happens before any other precondition.
type AdminVerifier interface {
	Verify(code string) error
}

// PaymentGateway is the external payment collaborator. ConfirmPayment gates
// the approved -> paid transition; RequestRefund is fire-and-forget from the
// core's perspective and its failures never roll back committed state.
type PaymentGateway interface {
	ConfirmPayment(ctx context.Context, requestID string, amount float64) error
	RequestRefund(ctx context.Context, requestID string, amount float64) error
}
