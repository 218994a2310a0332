package assessment

import "context"

// Store is the persistence interface for assessments.
type Store interface {
	Get(ctx context.Context, id string) (*Assessment, bool, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*Assessment, bool, error)
	Put(ctx context.Context, a *Assessment) error
}
