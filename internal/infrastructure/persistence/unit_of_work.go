package persistence

import (
	"context"

	"github.com/magpieiq/backend/internal/application/ingest"
	"github.com/magpieiq/backend/internal/domain/commerce"
	"gorm.io/gorm"
)

// GormUnitOfWork implements ingest.UnitOfWork using GORM transactions.
type GormUnitOfWork struct {
	db *gorm.DB
}

// NewGormUnitOfWork creates a new GormUnitOfWork.
func NewGormUnitOfWork(db *gorm.DB) *GormUnitOfWork {
	return &GormUnitOfWork{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(repos ingest.TransactionalRepositories) error) error {
	return storeError(u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	}))
}

// gormTransactionalRepositories provides access to the commerce repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) ProductRepo() commerce.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) OrderRepo() commerce.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

var (
	_ ingest.UnitOfWork                = (*GormUnitOfWork)(nil)
	_ ingest.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
