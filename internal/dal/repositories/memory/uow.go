package memory

import (
	"context"
	"errors"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
)

var ErrTxStarted = errors.New("transaction already started")

// UnitOfWork is a store-wide transaction.
type UnitOfWork struct {
	store       *Store
	tx          *journal
	orderRepo   *OrderRepository
	productRepo *ProductRepository
	outboxRepo  *OutboxRepository
}

// NewUnitOfWork creates a unit of work over store.
func NewUnitOfWork(store *Store) *UnitOfWork {
	return &UnitOfWork{
		store:       store,
		orderRepo:   NewOrderRepository(store),
		productRepo: NewProductRepository(store),
		outboxRepo:  NewOutboxRepository(store),
	}
}

func (u *UnitOfWork) OrderRepository() iorderrepo.IOrderRepository {
	return u.orderRepo
}

func (u *UnitOfWork) ProductRepository() iproductrepo.IProductRepository {
	return u.productRepo
}

func (u *UnitOfWork) OutboxRepository() ioutboxrepo.IOutboxRepository {
	return u.outboxRepo
}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxStarted
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u.store.mu.Lock()
	u.tx = &journal{}

	sess := session{store: u.store, tx: u.tx}
	u.orderRepo = &OrderRepository{sess: sess}
	u.productRepo = &ProductRepository{sess: sess}
	u.outboxRepo = &OutboxRepository{sess: sess}

	return nil
}

func (u *UnitOfWork) Commit(_ context.Context) error {
	if u.tx == nil {
		return nil
	}

	u.tx = nil
	u.store.mu.Unlock()

	return nil
}

func (u *UnitOfWork) Rollback(_ context.Context) error {
	if u.tx == nil {
		return nil
	}

	for i := len(u.tx.undo) - 1; i >= 0; i-- {
		u.tx.undo[i]()
	}
	u.tx = nil
	u.store.mu.Unlock()

	return nil
}
