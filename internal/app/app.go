package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/shop/internal/cache"
	"github.com/corray333/backend-labs/shop/internal/dal/providers/recommendation"
	"github.com/corray333/backend-labs/shop/internal/dal/providers/shipping"
	"github.com/corray333/backend-labs/shop/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/shop/internal/otel"
	"github.com/corray333/backend-labs/shop/internal/service/models/currency"
	"github.com/corray333/backend-labs/shop/internal/service/services/customersvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/inventorysvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/productsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/recommendationsvc"
	"github.com/corray333/backend-labs/shop/internal/service/services/trackingsvc"
	graphqltransport "github.com/corray333/backend-labs/shop/internal/transport/graphql"
	grpctransport "github.com/corray333/backend-labs/shop/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/shop/internal/transport/http"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/customers"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/orders"
	"github.com/corray333/backend-labs/shop/internal/transport/http/v1/products"
	"github.com/corray333/backend-labs/shop/internal/worker/cachesweep"
	outboxworker "github.com/corray333/backend-labs/shop/internal/worker/outbox"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// App represents the application.
type App struct {
	storage        *storage
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	outboxWorker   *outboxworker.Worker
	sweepWorker    *cachesweep.Worker
	rabbitMqClient *rabbitmq.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	store := mustNewStorage()
	responseCache := cache.New(viper.GetDuration("cache.ttl.default"))

	shippingProvider := shipping.NewMockProvider()
	recommendationProvider := recommendation.NewMockProvider(store.products)

	ledger := inventorysvc.MustNewLedger(
		inventorysvc.WithProductRepository(store.products),
		inventorysvc.WithCache(responseCache),
	)

	customerSvc := customersvc.MustNewCustomerService(
		customersvc.WithCustomerRepository(store.customers),
		customersvc.WithCache(responseCache, viper.GetDuration("cache.ttl.default")),
	)

	productSvc := productsvc.MustNewProductService(
		productsvc.WithProductRepository(store.products),
		productsvc.WithLedger(ledger),
		productsvc.WithCache(responseCache, viper.GetDuration("cache.ttl.default")),
		productsvc.WithDefaultCurrency(mustParseCurrency(viper.GetString("catalog.currency"))),
	)

	app := &App{
		storage:        store,
		otelController: otelController,
		sweepWorker:    cachesweep.NewWorker(responseCache),
	}

	var events ordersvc.EventsConfig
	if viper.GetBool("rabbitmq.enabled") {
		app.rabbitMqClient = rabbitmq.MustNewClient()
		app.rabbitMqClient.MustDeclareTopology(viper.GetString("rabbitmq.exchange"), viper.GetString("rabbitmq.queue"))
		app.outboxWorker = outboxworker.NewWorker(store.outbox, app.rabbitMqClient)
		events = ordersvc.EventsConfig{
			Exchange:   viper.GetString("rabbitmq.exchange"),
			MaxRetries: viper.GetInt("rabbitmq.outbox.max_retries"),
		}
	}

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithCustomerRepository(store.customers),
		ordersvc.WithOrderRepository(store.orders),
		ordersvc.WithProductRepository(store.products),
		ordersvc.WithLedger(ledger),
		ordersvc.WithUnitOfWork(store.uow),
		ordersvc.WithShippingProvider(shippingProvider),
		ordersvc.WithCache(responseCache, viper.GetDuration("cache.ttl.default")),
		ordersvc.WithEvents(events),
	)

	trackingSvc := trackingsvc.MustNewTrackingService(
		trackingsvc.WithOrderRepository(store.orders),
		trackingsvc.WithShippingProvider(shippingProvider),
		trackingsvc.WithCache(responseCache, viper.GetDuration("cache.ttl.tracking")),
	)

	recommendationSvc := recommendationsvc.MustNewRecommendationService(
		recommendationsvc.WithCustomerRepository(store.customers),
		recommendationsvc.WithOrderRepository(store.orders),
		recommendationsvc.WithProductRepository(store.products),
		recommendationsvc.WithProvider(recommendationProvider),
		recommendationsvc.WithCache(responseCache, viper.GetDuration("cache.ttl.recommendations")),
		recommendationsvc.WithTimeout(viper.GetDuration("providers.recommendation.timeout")),
	)

	schema := graphqltransport.MustNewSchema(
		graphqltransport.WithCustomerService(customerSvc),
		graphqltransport.WithProductService(productSvc),
		graphqltransport.WithOrderService(orderSvc),
		graphqltransport.WithTrackingService(trackingSvc),
		graphqltransport.WithRecommendationService(recommendationSvc),
		graphqltransport.WithBatchWait(viper.GetDuration("graphql.batch_wait")),
	)

	app.httpTransport = httptransport.NewHTTPTransport(
		httptransport.WithAPI(
			customers.NewHandler(customerSvc, orderSvc, recommendationSvc),
			products.NewHandler(productSvc, recommendationSvc),
			orders.NewHandler(orderSvc, trackingSvc),
		),
		httptransport.WithGraphQL(graphqltransport.NewHandler(schema)),
	)
	app.httpTransport.RegisterRoutes()

	if viper.GetBool("server.grpc.enabled") {
		app.grpcTransport = grpctransport.NewGRPCTransport()
	}

	return app
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var transports errgroup.Group
	transports.Go(func() error {
		if err := a.httpTransport.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)

			return err
		}

		return nil
	})
	if a.grpcTransport != nil {
		transports.Go(func() error {
			if err := a.grpcTransport.Run(); err != nil {
				slog.Error("gRPC server error", "error", err)

				return err
			}

			return nil
		})
	}

	go a.sweepWorker.Start(ctx)
	if a.outboxWorker != nil {
		go func() {
			slog.Info("Starting outbox worker")
			a.outboxWorker.Start(ctx)
		}()
	}

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()

	if err := transports.Wait(); err != nil {
		slog.Error("Transport exited with error", "error", err)
	}
}

// gracefulShutdown stops components in reverse dependency order: transports,
// workers, broker, storage and tracing.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.grpcTransport != nil {
		a.grpcTransport.MarkNotServing()
	}

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if a.grpcTransport != nil {
		if err := a.grpcTransport.Shutdown(ctx); err != nil {
			slog.Error("gRPC server shutdown error", "error", err)
		} else {
			slog.Info("gRPC server stopped gracefully")
		}
	}

	a.sweepWorker.Stop()
	if a.outboxWorker != nil {
		a.outboxWorker.Stop()
		slog.Info("Outbox worker stopped gracefully")
	}

	if a.rabbitMqClient != nil {
		if err := a.rabbitMqClient.Close(); err != nil {
			slog.Error("RabbitMQ connection close error", "error", err)
		} else {
			slog.Info("RabbitMQ connection closed gracefully")
		}
	}

	a.storage.close()
	slog.Info("Storage closed")

	if err := a.otelController.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider shutdown error", "error", err)
	} else {
		slog.Info("Otel trace provider shut down gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}

func mustParseCurrency(s string) currency.Currency {
	c, err := currency.ParseCurrency(s)
	if err != nil {
		panic("catalog.currency: " + err.Error())
	}

	return c
}
