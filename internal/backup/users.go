package backup

import "context"

// UserResolver maps a user id found in an archive to a user of this site.
// ok false means the user does not exist here.
type UserResolver interface {
	ResolveUser(ctx context.Context, oldID int64) (newID int64, ok bool, err error)
}

// IdentityResolver keeps ids unchanged. Used when archives move between
// deployments that share one user directory.
type IdentityResolver struct{}

func (IdentityResolver) ResolveUser(_ context.Context, oldID int64) (int64, bool, error) {
	return oldID, oldID > 0, nil
}

// MapResolver resolves through a fixed table and rejects everything else.
type MapResolver map[int64]int64

func (m MapResolver) ResolveUser(_ context.Context, oldID int64) (int64, bool, error) {
	id, ok := m[oldID]
	return id, ok, nil
}
