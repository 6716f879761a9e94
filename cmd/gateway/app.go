package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	api "github.com/mind-engage/college-erp/internal/api/http"
	"github.com/mind-engage/college-erp/internal/auth"
	"github.com/mind-engage/college-erp/internal/cache"
	"github.com/mind-engage/college-erp/internal/config"
	"github.com/mind-engage/college-erp/internal/enrollment"
	"github.com/mind-engage/college-erp/internal/notify"
	"github.com/mind-engage/college-erp/internal/quiz"
	"github.com/mind-engage/college-erp/internal/rbac"
	syncx "github.com/mind-engage/college-erp/internal/sync"
)

type app struct {
	cfg config.Config
	log logrus.FieldLogger
	db  *sqlx.DB

	authSvc *auth.AuthService
	users   *auth.UserStore
	roster  enrollment.Roster
	inbox   *notify.Store
	events  *syncx.EventRepo
	catalog *quiz.Catalog
	tracker *quiz.Tracker

	ready   map[string]api.Pinger
	closers []func() error
}

// newApp wires every component over dbh. Redis and RabbitMQ are optional and
// only dialled when configured.
func newApp(ctx context.Context, cfg config.Config, log logrus.FieldLogger, dbh *sqlx.DB, opts ...quiz.ServiceOption) (*app, error) {
	a := &app{
		cfg:     cfg,
		log:     log,
		db:      dbh,
		authSvc: auth.NewAuthService(cfg.AuthHMACSecret, cfg.TokenTTL),
		users:   auth.NewUserStore(dbh),
		roster:  enrollment.NewSQLDirectory(dbh),
		inbox:   notify.NewStore(dbh),
		events:  syncx.NewEventRepo(dbh, string(cfg.Mode)),
		ready:   map[string]api.Pinger{"db": dbh},
	}

	var store quiz.Store = quiz.NewSQLStore(dbh, a.events)
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(cache.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.ready["redis"] = api.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		store = cache.NewQuizStore(store, rdb, cfg.QuizCacheTTL, log)
		log.WithField("addr", cfg.RedisAddr).Info("quiz cache enabled")
	}

	emitters := notify.Multi{a.inbox}
	if cfg.AMQPURL != "" {
		pub, err := notify.NewAMQPEmitter(cfg.AMQPURL, cfg.NotifyQueue)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		emitters = append(emitters, pub)
		log.WithField("queue", cfg.NotifyQueue).Info("notification queue enabled")
	}

	opts = append([]quiz.ServiceOption{quiz.WithLogger(log)}, opts...)
	a.catalog = quiz.NewCatalog(store, a.roster, emitters, opts...)
	a.tracker = quiz.NewTracker(store, a.roster, emitters, opts...)

	if err := a.ensureAdmin(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) ensureAdmin(ctx context.Context) error {
	if a.cfg.AdminUser == "" || a.cfg.AdminPassHash == "" {
		return nil
	}
	_, err := a.users.ByUsername(ctx, a.cfg.AdminUser)
	if err == nil {
		return nil
	}
	if !errors.Is(err, auth.ErrUserNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}
	if _, err := a.users.CreateWithHash(ctx, a.cfg.AdminUser, a.cfg.AdminPassHash, rbac.RoleAdmin); err != nil && !errors.Is(err, auth.ErrUserExists) {
		return fmt.Errorf("create admin: %w", err)
	}
	a.log.WithField("username", a.cfg.AdminUser).Info("bootstrap admin created")
	return nil
}

// Close releases the optional connections in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
