package realm

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
)

type Repository interface {
	Save(ctx context.Context, r Realm) error
	FindByID(ctx context.Context, id kernel.RealmID) (*Realm, error)
	FindByName(ctx context.Context, name string) (*Realm, error)
	FindAllWithStats(ctx context.Context) ([]*RealmWithStats, error)
	Stats(ctx context.Context, id kernel.RealmID) (*Stats, error)
	Dependencies(ctx context.Context, id kernel.RealmID) (Dependencies, error)
	ToggleStatus(ctx context.Context, id kernel.RealmID) (*Realm, error)
	Delete(ctx context.Context, id kernel.RealmID) error
}
