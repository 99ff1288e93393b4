package ingest

import (
	"context"

	"github.com/magpieiq/backend/internal/domain/commerce"
)

// UnitOfWork provides transactional access to the commerce repositories.
// Every repository handed to fn shares one database transaction, committed
// when fn returns nil and rolled back otherwise.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the repositories scoped to the current transaction.
type TransactionalRepositories interface {
	ProductRepo() commerce.ProductRepository
	OrderRepo() commerce.OrderRepository
}

// StoreProbe reports whether the store is reachable.
type StoreProbe interface {
	Ping(ctx context.Context) error
}

// NoOpUnitOfWork runs fn against plain repositories without a transaction.
// Useful in tests where atomicity is not under examination.
type NoOpUnitOfWork struct {
	productRepo commerce.ProductRepository
	orderRepo   commerce.OrderRepository
}

// NewNoOpUnitOfWork creates a NoOpUnitOfWork with the given repositories.
func NewNoOpUnitOfWork(productRepo commerce.ProductRepository, orderRepo commerce.OrderRepository) *NoOpUnitOfWork {
	return &NoOpUnitOfWork{productRepo: productRepo, orderRepo: orderRepo}
}

// Execute runs fn directly.
func (u *NoOpUnitOfWork) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(u)
}

func (u *NoOpUnitOfWork) ProductRepo() commerce.ProductRepository { return u.productRepo }

func (u *NoOpUnitOfWork) OrderRepo() commerce.OrderRepository { return u.orderRepo }

var (
	_ UnitOfWork                = (*NoOpUnitOfWork)(nil)
	_ TransactionalRepositories = (*NoOpUnitOfWork)(nil)
)
