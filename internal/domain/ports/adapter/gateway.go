package adapter

import "context"

// QueryOutcome is the closed set a raw provider response collapses into at
// the parse boundary. Downstream logic never sees provider result codes.
type QueryOutcome int

const (
	OutcomePending QueryOutcome = iota // ambiguous, in-flight, or transport trouble
	OutcomeSuccess
	OutcomeFailed
)

// Result codes the provider documents as terminal. Everything else,
// transport errors included, reads as "still pending".
const (
	CodeSuccess           = "0"
	CodeInsufficientFunds = "1"
	CodeCancelledByUser   = "1032"
)

// OutcomeForCode collapses a raw provider result code into the closed
// outcome set. Both the webhook callback and the status query run through
// this one mapping.
func OutcomeForCode(code, desc string) StatusResult {
	res := StatusResult{Code: code, Description: desc}
	switch code {
	case CodeSuccess:
		res.Outcome = OutcomeSuccess
	case CodeCancelledByUser, CodeInsufficientFunds:
		res.Outcome = OutcomeFailed
	default:
		res.Outcome = OutcomePending
	}
	return res
}

// StatusResult carries the parsed outcome of one status query. Code and
// Description keep the provider's own wording for logs and operator
// diagnostics; they are never shown to buyers.
type StatusResult struct {
	Outcome     QueryOutcome
	Code        string
	Description string
	Receipt     string // provider receipt number, when present on success
}

// PushGateway is the port for push-payment providers.
type PushGateway interface {
	Name() string

	// Authenticate exchanges service credentials for a short-lived bearer
	// token. No retry at this layer; callers decide.
	Authenticate(ctx context.Context) (string, error)

	// InitiatePush asks the provider to prompt the payer's device and returns
	// the provider tracking id used to correlate callbacks and queries.
	InitiatePush(ctx context.Context, phone string, amount int64, reference, description string) (string, error)

	// QueryStatus polls a previously initiated payment. A single failed query
	// attempt maps to OutcomePending, never to a hard failure.
	QueryStatus(ctx context.Context, trackingID string) (StatusResult, error)
}
