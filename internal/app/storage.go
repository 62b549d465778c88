package app

import (
	"fmt"

	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/icustomerrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iproductrepo"
	"github.com/corray333/backend-labs/shop/internal/dal/interfaces/iuow"
	"github.com/corray333/backend-labs/shop/internal/dal/postgres"
	customerrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/customer/postgres"
	"github.com/corray333/backend-labs/shop/internal/dal/repositories/memory"
	orderrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/order/postgres"
	outboxrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/outbox/postgres"
	productrepo "github.com/corray333/backend-labs/shop/internal/dal/repositories/product/postgres"
	"github.com/corray333/backend-labs/shop/internal/dal/uow"
	"github.com/spf13/viper"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
)

// storage is the set of repositories backed by one driver.
type storage struct {
	customers icustomerrepo.ICustomerRepository
	products  iproductrepo.IProductRepository
	orders    iorderrepo.IOrderRepository
	outbox    ioutboxrepo.IOutboxRepository
	uow       iuow.Factory
	close     func()
}

// mustNewStorage opens the store selected by storage.driver.
func mustNewStorage() *storage {
	switch driver := viper.GetString("storage.driver"); driver {
	case driverPostgres:
		client := postgres.MustNewClient()
		pool := client.Pool()

		return &storage{
			customers: customerrepo.NewCustomerRepository(pool),
			products:  productrepo.NewProductRepository(pool),
			orders:    orderrepo.NewOrderRepository(pool),
			outbox:    outboxrepo.NewOutboxRepository(pool),
			uow:       func() iuow.IUnitOfWork { return uow.NewUnitOfWork(client) },
			close:     client.Close,
		}
	case driverMemory, "":
		store := memory.NewStore()

		return &storage{
			customers: memory.NewCustomerRepository(store),
			products:  memory.NewProductRepository(store),
			orders:    memory.NewOrderRepository(store),
			outbox:    memory.NewOutboxRepository(store),
			uow:       func() iuow.IUnitOfWork { return memory.NewUnitOfWork(store) },
			close:     func() {},
		}
	default:
		panic(fmt.Sprintf("unknown storage driver %q", driver))
	}
}
