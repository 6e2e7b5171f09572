package domain

type CtxKey string

const (
	// KeyRequestID is the gin context key holding the per-request correlation id.
	KeyRequestID CtxKey = "RequestID"
)
