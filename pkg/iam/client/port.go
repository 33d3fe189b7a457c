package client

import (
	"context"

	"github.com/Abraxas-365/authbuilder/pkg/kernel"
	"github.com/Abraxas-365/authbuilder/pkg/notifx"
)

type Repository interface {
	Save(ctx context.Context, c Client) error
	FindByID(ctx context.Context, id kernel.ClientID) (*Client, error)
	FindByPublicID(ctx context.Context, publicID string) (*Client, error)
	FindByNameInRealm(ctx context.Context, realmID kernel.RealmID, name string) (*Client, error)
	// FindAll lists clients newest first, optionally restricted to one realm.
	FindAll(ctx context.Context, realmID *kernel.RealmID) ([]*Client, error)
	ToggleStatus(ctx context.Context, id kernel.ClientID) (*Client, error)
	UpdateSecret(ctx context.Context, id kernel.ClientID, secret string) (*Client, error)
	Stats(ctx context.Context, realmID *kernel.RealmID) (*Stats, error)
	Delete(ctx context.Context, id kernel.ClientID) error
}

// SMTPTester dials a delivery profile without sending mail.
type SMTPTester interface {
	TestConnection(ctx context.Context, profile notifx.DeliveryProfile) error
}
