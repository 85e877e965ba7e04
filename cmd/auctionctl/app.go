package main

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/deposit-auction-client/internal/api"
	"github.com/DoyleJ11/deposit-auction-client/internal/authbus"
	"github.com/DoyleJ11/deposit-auction-client/internal/config"
	"github.com/DoyleJ11/deposit-auction-client/internal/credstore"
	"github.com/DoyleJ11/deposit-auction-client/internal/logging"
	"github.com/DoyleJ11/deposit-auction-client/internal/session"
	"github.com/DoyleJ11/deposit-auction-client/internal/token"
	"github.com/DoyleJ11/deposit-auction-client/internal/transport"
)

// app is everything one command invocation needs. The session is only
// started by commands that hold a live connection.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *credstore.Store
	bus    *authbus.Bus
	guard  *token.Guard
	api    *api.Client
	sess   *session.Session
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := credstore.Open(cfg.CredentialDSN)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	store, err := credstore.New(ctx, db)
	if err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
		return nil, err
	}

	bus := authbus.New(ctx)
	guard := token.NewGuard(store, bus, nil, logger)
	return &app{
		cfg:    cfg,
		logger: logger,
		store:  store,
		bus:    bus,
		guard:  guard,
		api:    api.New(cfg.APIURL, guard, logger),
	}, nil
}

func (a *app) startSession(ctx context.Context) *session.Session {
	a.sess = session.New(ctx, a.cfg.Session(), session.Deps{
		Dialer:      transport.NewWebsocketDialer(a.cfg.WSURL, a.logger),
		Credentials: a.guard,
		Changes:     a.bus,
		Logger:      a.logger,
	})
	return a.sess
}

func (a *app) Close() error {
	var err error
	if a.sess != nil {
		err = multierr.Append(err, a.sess.Close())
	}
	a.bus.Close()
	err = multierr.Append(err, a.store.Close())
	if serr := a.logger.Sync(); serr != nil {
		a.logger.Debug("sync logger", zap.Error(serr))
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
