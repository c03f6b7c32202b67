package mongo

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// WithTimeout bounds ctx by timeout unless it is a transaction session, which
// cannot be wrapped without losing the session.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

var duplicateIndexRegex = regexp.MustCompile(`index: (\S+) dup key`)

// DuplicateKeyIndex returns the name of the unique index a duplicate key
// error hit, or "" when err is not a duplicate key error.
func DuplicateKeyIndex(err error) string {
	if !mongo.IsDuplicateKeyError(err) {
		return ""
	}
	if m := duplicateIndexRegex.FindStringSubmatch(err.Error()); len(m) == 2 {
		return m[1]
	}
	return ""
}
