package repository

import (
	"context"

	"github.com/tst4ckr/streamio-magnet-resolver/pkg/magnet"
	"github.com/tst4ckr/streamio-magnet-resolver/pkg/snapshot"
)

// snapshotStoreAdapter adapts a *snapshot.Store to the SnapshotSource
// interface this package depends on, translating between the two
// packages' identical but independently-typed Options structs.
type snapshotStoreAdapter struct {
	store *snapshot.Store
}

// WrapSnapshotStore adapts store for use as a Repository snapshot tier.
func WrapSnapshotStore(store *snapshot.Store) SnapshotSource {
	return snapshotStoreAdapter{store: store}
}

func (a snapshotStoreAdapter) Name() string {
	return a.store.Name()
}

func (a snapshotStoreAdapter) ByContentID(ctx context.Context, contentID string, opts SnapshotOptions) ([]*magnet.Descriptor, error) {
	return a.store.ByContentID(ctx, contentID, snapshot.Options{Season: opts.Season, Episode: opts.Episode})
}
