package di

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	goredis "github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	domain "github.com/storefront/api/internal/domain"
	"github.com/storefront/api/internal/platform/auth"
	"github.com/storefront/api/internal/platform/config"
	pfirestore "github.com/storefront/api/internal/platform/firestore"
	"github.com/storefront/api/internal/platform/idempotency"
	"github.com/storefront/api/internal/platform/jobs"
	"github.com/storefront/api/internal/platform/observability"
	ppostgres "github.com/storefront/api/internal/platform/postgres"
	"github.com/storefront/api/internal/repositories"
	firestorerepo "github.com/storefront/api/internal/repositories/firestore"
	"github.com/storefront/api/internal/repositories/memory"
	postgresrepo "github.com/storefront/api/internal/repositories/postgres"
	redisrepo "github.com/storefront/api/internal/repositories/redis"
	"github.com/storefront/api/internal/services"
)

const dependencyProbeTimeout = 2 * time.Second

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders    services.OrderService
	Carts     services.CartService
	Inventory services.InventoryService
	Counters  services.CounterService
	System    services.SystemService
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config        config.Config
	Repositories  repositories.Registry
	Services      Services
	Authenticator *auth.Authenticator
	Idempotency   idempotency.Store
	Events        services.EventPublisher

	closers []func(context.Context) error
}

// Option customises NewContainer.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	clock    func() time.Time
	build    services.BuildInfo
	registry repositories.Registry
	events   services.EventPublisher
	verifier auth.TokenVerifier
}

// WithLogger sets the base logger for service event logs.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock overrides the time source shared by services and repositories.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithBuildInfo supplies build metadata reported by the system service.
func WithBuildInfo(build services.BuildInfo) Option {
	return func(o *options) {
		o.build = build
	}
}

// WithRegistry bypasses the configured storage backend. Tests use it with the memory registry.
func WithRegistry(reg repositories.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// WithEventPublisher bypasses the configured event driver.
func WithEventPublisher(publisher services.EventPublisher) Option {
	return func(o *options) {
		o.events = publisher
	}
}

// WithTokenVerifier bypasses Firebase/HMAC verifier selection.
func WithTokenVerifier(verifier auth.TokenVerifier) Option {
	return func(o *options) {
		o.verifier = verifier
	}
}

// NewContainer constructs the runtime dependencies from cfg. On error every resource opened so
// far is released.
func NewContainer(ctx context.Context, cfg config.Config, opts ...Option) (_ *Container, err error) {
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	c := &Container{Config: cfg}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	base, provider, err := c.openRegistry(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	overlay := &registry{Registry: base}
	checks := []repositories.DependencyCheck{{
		Name:    backendName(cfg, o),
		Timeout: dependencyProbeTimeout,
		Check:   registryCheck(base),
	}}

	var redisClient *goredis.Client
	if url := strings.TrimSpace(cfg.Redis.URL); url != "" {
		redisOpts, err := goredis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("redis: parse url: %w", err)
		}
		redisClient = goredis.NewClient(redisOpts)
		c.closers = append(c.closers, func(context.Context) error { return redisClient.Close() })

		carts, err := redisrepo.NewCartStore(redisClient, redisrepo.WithTTL(cfg.Redis.CartTTL), redisrepo.WithClock(o.clock))
		if err != nil {
			return nil, err
		}
		overlay.carts = carts
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: dependencyProbeTimeout,
			Check:   func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	switch {
	case redisClient != nil:
		c.Idempotency = idempotency.NewRedisStore(redisClient)
	case provider != nil:
		c.Idempotency = idempotency.NewFirestoreStore(provider)
	default:
		c.Idempotency = idempotency.NewMemoryStore()
	}

	events, eventCheck, err := c.openEvents(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	c.Events = events
	if eventCheck != nil {
		checks = append(checks, *eventCheck)
	}

	health, err := repositories.NewDependencyHealthRepository(checks, repositories.WithDependencyClock(o.clock))
	if err != nil {
		return nil, err
	}
	overlay.health = health
	c.Repositories = overlay

	authn, err := newAuthenticator(ctx, cfg, o)
	if err != nil {
		return nil, err
	}
	c.Authenticator = authn

	svc, err := buildServices(cfg, overlay, events, o)
	if err != nil {
		return nil, err
	}
	c.Services = svc
	return c, nil
}

// Close releases resources in reverse order of acquisition.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func (c *Container) openRegistry(ctx context.Context, cfg config.Config, o options) (repositories.Registry, *pfirestore.Provider, error) {
	if o.registry != nil {
		return o.registry, nil, nil
	}

	switch cfg.Storage.Backend {
	case config.StorageBackendFirestore:
		provider := pfirestore.NewProvider(cfg.Firestore)
		if _, err := provider.Client(ctx); err != nil {
			return nil, nil, fmt.Errorf("firestore: %w", err)
		}
		reg, err := firestorerepo.NewRegistry(provider, o.clock)
		if err != nil {
			_ = provider.Close(ctx)
			return nil, nil, err
		}
		c.closers = append(c.closers, reg.Close)
		return reg, provider, nil
	case config.StorageBackendPostgres:
		pool, err := ppostgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		if err := ppostgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		reg, err := postgresrepo.NewRegistry(pool, o.clock)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		c.closers = append(c.closers, reg.Close)
		return reg, nil, nil
	case config.StorageBackendMemory, "":
		reg, err := memory.NewRegistry(memory.WithClock(o.clock))
		if err != nil {
			return nil, nil, err
		}
		if path := strings.TrimSpace(cfg.Storage.SeedFile); path != "" {
			products, err := memory.LoadSeedFile(path)
			if err != nil {
				return nil, nil, err
			}
			reg.Seed(products...)
			o.logger.Info("memory catalogue seeded", zap.String("file", path), zap.Int("products", len(products)))
		}
		return reg, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

func (c *Container) openEvents(ctx context.Context, cfg config.Config, o options) (services.EventPublisher, *repositories.DependencyCheck, error) {
	if o.events != nil {
		return o.events, nil, nil
	}

	switch cfg.Events.Driver {
	case config.EventsDriverPubSub:
		client, err := pubsub.NewClient(ctx, cfg.Events.PubSubProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub: %w", err)
		}
		topic := client.Topic(cfg.Events.PubSubOrderTopic)
		publisher, err := jobs.NewPubSubOrderPublisher(topic)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		c.closers = append(c.closers, func(context.Context) error {
			publisher.Stop()
			return client.Close()
		})
		check := &repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: dependencyProbeTimeout,
			Check: func(ctx context.Context) error {
				ok, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("topic %s does not exist", cfg.Events.PubSubOrderTopic)
				}
				return nil
			},
		}
		return publisher, check, nil
	case config.EventsDriverKafka:
		publisher, err := jobs.NewKafkaOrderPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaOrderTopic)
		if err != nil {
			return nil, nil, err
		}
		c.closers = append(c.closers, func(context.Context) error { return publisher.Close() })
		brokers := append([]string(nil), cfg.Events.KafkaBrokers...)
		check := &repositories.DependencyCheck{
			Name:    "kafka",
			Timeout: dependencyProbeTimeout,
			Check: func(ctx context.Context) error {
				var lastErr error
				for _, broker := range brokers {
					conn, err := kafka.DialContext(ctx, "tcp", broker)
					if err != nil {
						lastErr = err
						continue
					}
					return conn.Close()
				}
				return lastErr
			},
		}
		return publisher, check, nil
	case config.EventsDriverNone, "":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported events driver %q", cfg.Events.Driver)
	}
}

func newAuthenticator(ctx context.Context, cfg config.Config, o options) (*auth.Authenticator, error) {
	verifier := o.verifier
	switch {
	case verifier != nil:
	case strings.TrimSpace(cfg.Firebase.ProjectID) != "":
		firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		verifier = firebaseVerifier
	case cfg.Auth.JWTSecret != "":
		hmacVerifier, err := auth.NewHMACTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
		if err != nil {
			return nil, err
		}
		verifier = hmacVerifier
	default:
		return nil, errors.New("auth: set API_FIREBASE_PROJECT_ID or API_AUTH_JWT_SECRET")
	}
	return auth.NewAuthenticator(verifier), nil
}

func buildServices(cfg config.Config, reg repositories.Registry, events services.EventPublisher, o options) (Services, error) {
	logger := observability.EventLogger(o.logger.Named("services"))

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Inventory: reg.Inventory(),
		Events:    events,
		Clock:     o.clock,
		Logger:    logger,
	})
	if err != nil {
		return Services{}, err
	}

	counters, err := services.NewCounterService(services.CounterServiceDeps{
		Repository: reg.Counters(),
		Clock:      o.clock,
		Location:   cfg.Orders.Location(),
		Prefix:     cfg.Orders.NumberPrefix,
	})
	if err != nil {
		return Services{}, err
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:    reg.Orders(),
		Products:  reg.Products(),
		Carts:     reg.Carts(),
		Inventory: inventory,
		Counters:  counters,
		Events:    events,
		Pricing: domain.PricingRules{
			TaxRateBasisPoints:    int64(cfg.Orders.TaxRateBasisPoints),
			FreeShippingThreshold: int64(cfg.Orders.FreeShippingThreshold),
			FlatShippingFee:       int64(cfg.Orders.FlatShippingFee),
		},
		MaxLineQuantity: cfg.Orders.MaxLineQuantity,
		Clock:           o.clock,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, err
	}

	carts, err := services.NewCartService(services.CartServiceDeps{
		Carts:       reg.Carts(),
		Products:    reg.Products(),
		MaxQuantity: cfg.Orders.MaxLineQuantity,
		Clock:       o.clock,
		Logger:      logger,
	})
	if err != nil {
		return Services{}, err
	}

	build := o.build
	if build.Environment == "" {
		build.Environment = cfg.Environment
	}
	system, err := services.NewSystemService(services.SystemServiceDeps{
		HealthRepository: reg.Health(),
		Clock:            o.clock,
		Build:            build,
		Timeout:          2 * dependencyProbeTimeout,
		Critical:         []string{backendName(cfg, o)},
	})
	if err != nil {
		return Services{}, err
	}

	return Services{
		Orders:    orders,
		Carts:     carts,
		Inventory: inventory,
		Counters:  counters,
		System:    system,
	}, nil
}

// registry overlays the Redis cart store and the aggregated health checks on a storage backend.
type registry struct {
	repositories.Registry
	carts  repositories.CartRepository
	health repositories.HealthRepository
}

func (r *registry) Carts() repositories.CartRepository {
	if r.carts != nil {
		return r.carts
	}
	return r.Registry.Carts()
}

func (r *registry) Health() repositories.HealthRepository {
	if r.health != nil {
		return r.health
	}
	return r.Registry.Health()
}

func backendName(cfg config.Config, o options) string {
	if o.registry != nil || cfg.Storage.Backend == "" {
		return "storage"
	}
	return cfg.Storage.Backend
}

// registryCheck folds a backend's own health report into a single probe.
func registryCheck(reg repositories.Registry) func(context.Context) error {
	return func(ctx context.Context) error {
		report, err := reg.Health().Collect(ctx)
		if err != nil {
			return err
		}
		if report.Status == domain.HealthStatusOK {
			return nil
		}
		failures := make([]string, 0, len(report.Checks))
		for name, check := range report.Checks {
			if check.Error != "" {
				failures = append(failures, name+": "+check.Error)
			}
		}
		sort.Strings(failures)
		if len(failures) == 0 {
			return fmt.Errorf("status %s", report.Status)
		}
		return errors.New(strings.Join(failures, "; "))
	}
}
