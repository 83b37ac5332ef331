package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"storefront-admin/apiclient"
	"storefront-admin/config"
	"storefront-admin/logger"
	"storefront-admin/service"
	"storefront-admin/storage"
)

// app is the wired set of stores shared by every command.
type app struct {
	cfg     config.Config
	log     *logrus.Logger
	storage storage.Storage

	session    *service.Session
	categories *service.CategoryStore
	products   *service.ProductStore
	cart       *service.Cart
	feed       *service.Feed
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	st, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	client := apiclient.New(apiclient.Config{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Logger:  log,
	})
	session := service.NewSession(ctx, client, st, log)
	client.SetTokenSource(session)

	feed := service.NewFeed(log, 50)
	a := &app{
		cfg:        cfg,
		log:        log,
		storage:    st,
		session:    session,
		categories: service.NewCategoryStore(client, feed, log),
		products:   service.NewProductStore(client, feed, log),
		cart:       service.NewCart(ctx, st, log),
		feed:       feed,
	}
	log.WithFields(logrus.Fields{
		"api":           cfg.APIBaseURL,
		"storage":       cfg.Storage.Driver,
		"authenticated": session.IsAuthenticated(),
	}).Debug("application ready")
	return a, nil
}

func (a *app) Close() error {
	if err := a.storage.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}
	return nil
}
