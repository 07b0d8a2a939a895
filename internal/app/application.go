package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"tutorlink/internal/auth"
	"tutorlink/internal/channel"
	"tutorlink/internal/config"
	"tutorlink/internal/connection"
	"tutorlink/internal/lifecycle"
	"tutorlink/internal/notify"
	"tutorlink/internal/registry"
	"tutorlink/internal/rest"
	"tutorlink/pkg/logging"
)

// Application wires all client components together. Construction follows
// dependency order: auth → REST → connection → registry → channel →
// lifecycle → notifications.
type Application struct {
	config    *config.Config
	logger    zerolog.Logger
	auth      auth.Store
	rest      *rest.Client
	conn      *connection.Manager
	registry  *registry.Registry
	channel   *channel.Channel
	lifecycle *lifecycle.Controller
	store     *notify.Store
	relay     *notify.Relay
}

type options struct {
	auth    auth.Store
	alerter notify.Alerter
}

// Option overrides a default collaborator during construction. Used by
// tests to substitute fakes.
type Option func(*options)

// WithAuthStore replaces the file-backed credential store.
func WithAuthStore(store auth.Store) Option {
	return func(o *options) { o.auth = store }
}

// WithAlerter replaces the default log-based notification alerter.
func WithAlerter(alerter notify.Alerter) Option {
	return func(o *options) { o.alerter = alerter }
}

// New builds a fully wired application from cfg. Nothing touches the
// network during construction; only the local notification cache is opened.
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logging.Init(cfg.Log)
	logger := logging.L()

	authStore := o.auth
	if authStore == nil {
		authStore = auth.NewFileStore(cfg.Auth.CredentialsPath)
	}

	restClient := rest.NewClient(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout}, authStore, logger)
	conn := connection.NewManager(cfg.WebSocket, authStore, logger)
	reg := registry.NewRegistry(logger)
	ch := channel.NewChannel(conn, reg, restClient, logger)
	ctrl := lifecycle.NewController(restClient, cfg.Room.ExpiryWindow, logger)

	store, err := notify.OpenStore(cfg.Cache.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification cache: %w", err)
	}
	relay := notify.NewRelay(conn, restClient, store, o.alerter, logger)

	return &Application{
		config:    cfg,
		logger:    logger,
		auth:      authStore,
		rest:      restClient,
		conn:      conn,
		registry:  reg,
		channel:   ch,
		lifecycle: ctrl,
		store:     store,
		relay:     relay,
	}, nil
}

// Start opens the websocket connection and brings the notification feed
// online. Safe to call again after a Disconnect.
func (app *Application) Start(ctx context.Context) error {
	user, err := app.auth.User()
	if err != nil {
		return fmt.Errorf("no authenticated user: %w", err)
	}
	if err := app.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := app.relay.Start(ctx, user.UserID); err != nil {
		return fmt.Errorf("failed to start notification relay: %w", err)
	}
	app.logger.Info().Msg("application started")
	return nil
}

// Channel exposes the chat surface.
func (app *Application) Channel() *channel.Channel { return app.channel }

// Lifecycle exposes the room status surface.
func (app *Application) Lifecycle() *lifecycle.Controller { return app.lifecycle }

// Notifications exposes the notification feed.
func (app *Application) Notifications() *notify.Relay { return app.relay }

// Connection exposes the underlying connection manager, mainly so callers
// can observe state transitions.
func (app *Application) Connection() *connection.Manager { return app.conn }

// Rooms exposes the REST room listing for surfaces that render a room
// picker before joining anything.
func (app *Application) Rooms() *rest.Client { return app.rest }

// Dispose tears everything down in reverse dependency order. Idempotent.
func (app *Application) Dispose() {
	app.conn.Dispose()
	if err := app.store.Close(); err != nil {
		app.logger.Warn().Err(err).Msg("notification cache close failed")
	}
	app.logger.Info().Msg("application disposed")
}
