package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextUserKey    ctxKey = "userID"
	ContextCompanyKey ctxKey = "companyID"
)

func UserIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if userID, ok := ctx.Value(ContextUserKey).(int64); ok {
		return userID
	}
	return 0
}

func CompanyIDFromContext(ctx context.Context) int64 {
	if ctx == nil {
		return 0
	}
	if companyID, ok := ctx.Value(ContextCompanyKey).(int64); ok {
		return companyID
	}
	return 0
}

// ContextWithActor stores the authenticated user and their company.
func ContextWithActor(ctx context.Context, userID, companyID int64) context.Context {
	ctx = context.WithValue(ctx, ContextUserKey, userID)
	return context.WithValue(ctx, ContextCompanyKey, companyID)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
