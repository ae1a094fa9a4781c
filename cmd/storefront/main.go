package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/cart"
	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/events"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/logger"
	"github.com/fjod/go_storefront/internal/order"
	"github.com/fjod/go_storefront/internal/theme"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (overrides "+config.EnvConfigFile+")")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogPretty)

	// inbound traceparent headers reach the access log; outbound catalog calls carry them on
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped with error")
	}
	log.Info().Msg("server exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close storage")
		}
	}()

	var busOpts []events.Option
	busOpts = append(busOpts, events.WithLogger(log))
	if store.relay != nil {
		busOpts = append(busOpts, events.WithRelay(store.relay))
	}
	bus := events.NewBus(busOpts...)

	catalogClient, err := catalog.New(catalog.Config{
		BaseURL:     cfg.CatalogURL,
		Timeout:     cfg.RequestTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}, catalog.WithLogger(log))
	if err != nil {
		return err
	}

	cartStore := cart.NewStore(store.backend, bus, cart.WithLogger(log))
	hydrator := cart.NewHydrator(cartStore, catalogClient,
		cart.WithConcurrency(cfg.HydrateConcurrency),
		cart.WithHydratorLogger(log))

	builderOpts := []order.Option{order.WithLogger(log)}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		pub := order.NewKafkaPublisher(cfg.OrdersTopic, brokers...)
		defer pub.Close()
		builderOpts = append(builderOpts, order.WithPublisher(pub))
		log.Info().Strs("brokers", brokers).Str("topic", cfg.OrdersTopic).Msg("publishing order events")
	}
	builder := order.NewBuilder(catalogClient, cartStore, builderOpts...)

	themeStore := theme.NewStore(store.backend, bus, theme.WithLogger(log))

	router := h.NewRouter(h.Deps{
		Catalog:  catalogClient,
		Cart:     cartStore,
		Hydrator: hydrator,
		Orders:   builder,
		Theme:    themeStore,
	}, log, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // cart event streams stay open
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := bus.Run(gctx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("event relay: %w", err)
		}
		return nil
	})

	if store.watcher != nil {
		g.Go(func() error {
			return store.watcher.Watch(gctx, func(key string) {
				deliverStorageChange(bus, cartStore.Key(), key)
			})
		})
	}

	g.Go(func() error {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", string(cfg.StorageBackend)).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// deliverStorageChange turns a key written by another process into the matching event.
func deliverStorageChange(bus *events.Bus, cartKey, key string) {
	var kind events.Kind
	switch key {
	case cartKey:
		kind = events.CartUpdated
	case theme.DefaultKey:
		kind = events.ThemeUpdated
	default:
		return
	}
	bus.Deliver(events.Event{Kind: kind, Origin: "storage:" + key, At: time.Now()})
}
