package port

import "context"

// DirectoryResolver resolves a human identity between its stable identifier
// and its e-mail address
type DirectoryResolver interface {
	ResolveID(ctx context.Context, email string) (int64, error)
	ResolveEmail(ctx context.Context, userID int64) (string, error)
}

// Notifier sends a templated message to a list of recipients. The engine
// treats delivery as fire-and-forget: a failure is logged by the caller and
// never rolled back into a state change.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, bodyHTML string) error
}
