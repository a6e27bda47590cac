package accounts

import (
	"context"

	"github.com/nexusledger/nexusledger/internal/platform/kv"
)

const collectionName = "accounts"

// Repository is the persistence contract for chart of accounts records.
type Repository interface {
	ListByCompany(ctx context.Context, companyID string) ([]Account, error)
	Get(ctx context.Context, companyID, code string) (Account, error)
	Upsert(ctx context.Context, account Account) error
	Delete(ctx context.Context, companyID, code string) error
	SeedCompany(ctx context.Context, accounts []Account) error
}

type repository struct {
	coll *kv.Collection[Account]
}

// NewRepository binds the accounts collection to a kv store.
func NewRepository(store kv.Store) Repository {
	coll := kv.NewCollection(store, collectionName, func(a Account) string {
		return a.CompanyID + ":" + a.Code
	})
	return &repository{coll: coll}
}

func (r *repository) ListByCompany(ctx context.Context, companyID string) ([]Account, error) {
	return r.coll.Find(ctx, func(a Account) bool { return a.CompanyID == companyID })
}

func (r *repository) Get(ctx context.Context, companyID, code string) (Account, error) {
	return r.coll.Get(ctx, companyID+":"+code)
}

func (r *repository) Upsert(ctx context.Context, account Account) error {
	return r.coll.Upsert(ctx, account)
}

func (r *repository) Delete(ctx context.Context, companyID, code string) error {
	return r.coll.Delete(ctx, companyID+":"+code)
}

func (r *repository) SeedCompany(ctx context.Context, accounts []Account) error {
	return r.coll.InsertMany(ctx, accounts)
}
