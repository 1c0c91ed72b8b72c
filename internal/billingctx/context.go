// Package billingctx carries the authenticated billing identity in a context.
package billingctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type contextKey string

const (
	customerIDKey contextKey = "billing_customer_id"
	adminKey      contextKey = "billing_admin"
)

// WithCustomerID binds the authenticated customer to the context.
func WithCustomerID(ctx context.Context, id snowflake.ID) context.Context {
	return context.WithValue(ctx, customerIDKey, id)
}

// CustomerIDFromContext returns the authenticated customer, if any.
func CustomerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	id, ok := ctx.Value(customerIDKey).(snowflake.ID)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// WithAdmin marks the context as carrying an admin credential.
func WithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminKey, true)
}

// IsAdmin reports whether the context carries an admin credential.
func IsAdmin(ctx context.Context) bool {
	admin, ok := ctx.Value(adminKey).(bool)
	return ok && admin
}
