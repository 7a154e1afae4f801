package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hirewire/notifykit/pkg/channel"
	"github.com/hirewire/notifykit/pkg/channel/email"
	"github.com/hirewire/notifykit/pkg/channel/push"
	"github.com/hirewire/notifykit/pkg/channel/sms"
	"github.com/hirewire/notifykit/pkg/config"
	"github.com/hirewire/notifykit/pkg/dispatch"
	"github.com/hirewire/notifykit/pkg/httpserver"
	"github.com/hirewire/notifykit/pkg/ledger"
	"github.com/hirewire/notifykit/pkg/logger"
	"github.com/hirewire/notifykit/pkg/notify"
	"github.com/hirewire/notifykit/pkg/pg"
	"github.com/hirewire/notifykit/pkg/prefs"
	"github.com/hirewire/notifykit/pkg/redis"
	"github.com/hirewire/notifykit/pkg/rules"
)

type appConfig struct {
	Environment   string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":8080"`
	WebhookSecret string `env:"DELIVERY_WEBHOOK_SECRET"`

	// RulesFile optionally seeds the rule set from a YAML snapshot at boot.
	RulesFile string `env:"RULES_FILE"`

	// DigestTickInterval controls how often the scheduler wakes up.
	DigestTickInterval time.Duration `env:"DIGEST_TICK_INTERVAL" envDefault:"30s"`
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var appCfg appConfig
	config.MustLoad(&appCfg)

	logOpt := logger.WithDevelopment("notifyd")
	if appCfg.Environment == "production" {
		logOpt = logger.WithProduction("notifyd")
	}
	log := logger.New(logOpt)
	slog.SetDefault(log)

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("postgres connect: %w", err)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	defer redisClient.Close()

	ruleService, err := rules.NewService(rules.NewPGStorage(pool), rules.WithServiceLogger(log))
	if err != nil {
		return err
	}
	if appCfg.RulesFile != "" {
		if err := seedRules(ctx, ruleService, appCfg.RulesFile); err != nil {
			return fmt.Errorf("seed rules: %w", err)
		}
	}

	prefService, err := prefs.NewService(prefs.NewPGStorage(pool), prefs.WithServiceLogger(log))
	if err != nil {
		return err
	}

	ledgerStorage := ledger.NewPGStorage(pool)

	var emailCfg email.Config
	config.MustLoad(&emailCfg)
	var smsCfg sms.Config
	config.MustLoad(&smsCfg)
	var pushCfg push.Config
	config.MustLoad(&pushCfg)

	registry := channel.NewRegistry(
		email.NewAdapter(emailCfg),
		sms.NewAdapter(smsCfg),
		push.NewAdapter(pushCfg),
	)

	dispatcher, err := dispatch.NewDispatcher(
		registry,
		ledgerStorage,
		prefService.Resolver(),
		newContactDirectory(pool),
		dispatch.WithDispatcherLogger(log),
		dispatch.WithBucketStore(dispatch.NewRedisBucketStore(redisClient)),
	)
	if err != nil {
		return err
	}

	engine, err := notify.NewEngine(ruleService, prefService, dispatcher, ledgerStorage,
		notify.WithEngineLogger(log))
	if err != nil {
		return err
	}

	scheduler := dispatch.NewScheduler(dispatcher,
		dispatch.WithTickInterval(appCfg.DigestTickInterval),
		dispatch.WithSchedulerLogger(log),
	)

	router := notify.Router(engine, notify.RouterOptions{
		WebhookSecret: appCfg.WebhookSecret,
		Logger:        log,
	})
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	router.Get("/readyz", httpserver.HealthCheckHandler(ctx, log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))

	srv := httpserver.New(
		httpserver.WithAddr(appCfg.HTTPAddr),
		httpserver.WithLogger(log),
		httpserver.WithShutdownTimeout(10*time.Second),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := scheduler.Run(ctx)
		if err != nil && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return srv.Run(ctx, router)
	})
	return g.Wait()
}

// seedRules loads a YAML rule snapshot and upserts every rule, letting
// deployments version their default rule set in the repo.
func seedRules(ctx context.Context, svc *rules.Service, path string) error {
	snap, err := rules.LoadSnapshotFile(path)
	if err != nil {
		return err
	}
	for _, rule := range snap.Rules() {
		if _, err := svc.Upsert(ctx, rule); err != nil {
			return err
		}
	}
	return nil
}
