// Package app assembles the single client context object: credential store,
// session cache, guard, router, views and the local HTTP surface.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/brunogervazio/ezcoins-web/internal/config"
	"github.com/brunogervazio/ezcoins-web/internal/credential"
	"github.com/brunogervazio/ezcoins-web/internal/guard"
	"github.com/brunogervazio/ezcoins-web/internal/handler"
	"github.com/brunogervazio/ezcoins-web/internal/middleware"
	"github.com/brunogervazio/ezcoins-web/internal/remote"
	"github.com/brunogervazio/ezcoins-web/internal/router"
	"github.com/brunogervazio/ezcoins-web/internal/session"
	"github.com/brunogervazio/ezcoins-web/internal/view"
)

// Client is the running ez.coins client. There is one per process.
type Client struct {
	Credentials *credential.Store
	Cache       *session.Cache
	Remote      *remote.Client
	Guard       *guard.Guard
	Router      *router.Router
	Controller  *view.Controller
	Header      *view.Header
	LoginView   *view.LoginView

	cfg    *config.Config
	logger *slog.Logger
	engine *gin.Engine
	redis  *redis.Client
}

type options struct {
	backend    credential.Backend
	httpClient *http.Client
}

// Option overrides a collaborator chosen from the configuration.
type Option func(*options)

// WithBackend replaces the configured credential backend.
func WithBackend(b credential.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithHTTPClient replaces the HTTP client used for the remote API.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// New builds the client from cfg and restores any persisted session.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{cfg: cfg, logger: logger}

	backend := o.backend
	if backend == nil {
		var err error
		if backend, err = c.newBackend(ctx); err != nil {
			return nil, err
		}
	}

	creds, err := credential.Open(ctx, backend, logger.With(slog.String("component", "credential")))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Credentials = creds

	remoteOpts := []remote.Option{remote.WithMaxAttempts(cfg.Remote.MaxAttempts)}
	if o.httpClient != nil {
		remoteOpts = append(remoteOpts, remote.WithHTTPClient(o.httpClient))
	}
	c.Remote = remote.NewClient(
		cfg.Remote.GraphQLURL,
		config.ParseDuration(cfg.Remote.Timeout, 10*time.Second),
		c.token,
		remoteOpts...,
	)

	cache, err := session.NewCache(c.Remote, cfg.Cache.Size, logger.With(slog.String("component", "session")))
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Cache = cache

	anon, landing := cfg.Routes.AnonymousEntry, cfg.Routes.AuthenticatedLanding
	routes := router.DefaultRoutes(anon, landing)
	c.Guard = guard.New(creds, anon, landing)
	c.Router = router.New(c.Guard, routes, logger.With(slog.String("component", "router")))
	c.Controller = view.NewController(c.Remote, creds, cache, c.Router, anon, landing,
		logger.With(slog.String("component", "view")))
	c.Header = view.NewHeader(c.Controller)
	c.LoginView = view.NewLoginView(c.Controller)

	c.engine = c.newEngine(routes)

	if stored, ok := creds.Read(); ok {
		logger.Info("restored session", slog.String("user_id", stored.UserID))
	}
	return c, nil
}

// Handler is the local HTTP navigation surface.
func (c *Client) Handler() http.Handler {
	return c.engine
}

// Close releases the backend connection, if any.
func (c *Client) Close() error {
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *Client) token() (string, bool) {
	stored, ok := c.Credentials.Read()
	return stored.Token, ok
}

func (c *Client) newBackend(ctx context.Context) (credential.Backend, error) {
	cc := c.cfg.Credential
	switch cc.Backend {
	case "file":
		return credential.NewFileBackend(cc.Dir, cc.Profile), nil
	case "redis":
		c.redis = redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		if err := c.redis.Ping(ctx).Err(); err != nil {
			c.logger.Warn("redis not reachable at startup", slog.String("error", err.Error()))
		}
		return credential.NewRedisBackend(c.redis, cc.Redis.Prefix, cc.Profile), nil
	case "memory":
		return credential.NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown credential backend %q", cc.Backend)
	}
}

func (c *Client) newEngine(routes []guard.Route) *gin.Engine {
	pages := handler.NewPageHandler(c.Controller, c.LoginView, c.Header)
	sessions := handler.NewSessionHandler(c.Controller, c.LoginView, c.Header)
	health := handler.NewHealthHandler(c.Credentials)

	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(middleware.Prometheus())
	if c.cfg.Observability.Trace.Enabled {
		e.Use(otelgin.Middleware(c.cfg.App.Name))
	}
	e.Use(middleware.Correlation())
	e.Use(middleware.RequestLogger(c.logger))

	e.GET("/healthz", health.Healthz)
	e.GET("/readyz", health.Readyz)
	if c.cfg.Observability.Metrics.Enabled {
		e.GET(c.cfg.Observability.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	for _, r := range routes {
		e.GET(r.Path, pages.Show)
	}
	e.POST(c.cfg.Routes.AnonymousEntry, sessions.Login)
	e.POST("/logout", sessions.Logout)
	e.POST("/session/refresh", sessions.Refresh)
	e.POST("/menu/:menu/toggle", pages.ToggleMenu)
	e.POST("/menu/close", pages.CloseMenus)
	e.POST("/nav/:command", pages.Nav)

	return e
}
