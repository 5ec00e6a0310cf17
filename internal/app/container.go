package app

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/sessionkit/domain"
	"github.com/you/sessionkit/internal/config"
	"github.com/you/sessionkit/internal/guard"
	httpx "github.com/you/sessionkit/internal/http"
	"github.com/you/sessionkit/internal/http/handlers"
	"github.com/you/sessionkit/internal/http/middleware"
	"github.com/you/sessionkit/internal/infrastructure/api"
	"github.com/you/sessionkit/internal/infrastructure/authz"
	"github.com/you/sessionkit/internal/infrastructure/identity"
	"github.com/you/sessionkit/internal/infrastructure/store"
	"github.com/you/sessionkit/internal/infrastructure/token"
	"github.com/you/sessionkit/internal/oauth"
	"github.com/you/sessionkit/internal/session"
)

// historyNavigator records the history replacements the resolver issues. In
// the agent the actual navigation happens through HTTP redirects, so this is
// an observability hook rather than a browser history.
type historyNavigator struct {
	logger *zap.Logger
}

func (n *historyNavigator) Replace(path string) {
	n.logger.Debug("history replace", zap.String("path", path))
}

// Container wires every collaborator of the agent from configuration.
type Container struct {
	Logger   *zap.Logger
	Store    domain.TokenStore
	Sessions *session.Controller
	Resolver *oauth.Resolver
	Provider *identity.OAuth2Provider
	Guard    *guard.Guard
	Authz    *authz.CasbinService
	Handlers *handlers.SessionHandlers
	MW       *middleware.RouteGuardMW
}

// NewContainer builds the dependency graph bottom-up: store, validator and
// API client first, then the session controller, then the surfaces that
// consume it.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var tokenStore domain.TokenStore
	switch cfg.StoreBackend {
	case "redis":
		client := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		tokenStore = store.NewRedisStore(client, cfg.StoreKey, cfg.StoreTTL, logger)
	default:
		tokenStore = store.NewFileStore(cfg.StorePath, logger)
	}

	validator := token.NewValidator(logger)

	apiClient, err := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}

	intents := session.NewMemoryIntentStore()
	sessions := session.NewController(tokenStore, validator, apiClient, intents, cfg.LoginTimeout, logger)

	provider := identity.NewOAuth2Provider(
		cfg.OAuthClientID,
		cfg.OAuthClientSecret,
		cfg.OAuthRedirectURL,
		cfg.OAuthProviderID,
		identity.Endpoints{
			AuthURL:     cfg.OAuthAuthURL,
			TokenURL:    cfg.OAuthTokenURL,
			UserinfoURL: cfg.OAuthUserinfoURL,
		},
		cfg.OAuthScopes,
		logger,
	)

	resolver := oauth.NewResolver(provider, sessions, &historyNavigator{logger: logger}, logger)
	routeGuard := guard.New(sessions, intents, cfg.LoginPath)

	var az *authz.CasbinService
	if cfg.CasbinModelPath != "" && cfg.CasbinPolicyPath != "" {
		az, err = authz.NewCasbinService(cfg.CasbinModelPath, cfg.CasbinPolicyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create authz service: %w", err)
		}
	}

	return &Container{
		Logger:   logger,
		Store:    tokenStore,
		Sessions: sessions,
		Resolver: resolver,
		Provider: provider,
		Guard:    routeGuard,
		Authz:    az,
		Handlers: handlers.NewSessionHandlers(sessions, resolver, provider, cfg.LoginPath),
		MW:       middleware.NewRouteGuardMW(routeGuard, sessions, az),
	}, nil
}

// Router builds the agent's HTTP surface from the wired handlers.
func (c *Container) Router() *gin.Engine {
	return httpx.BuildRouter(c.Handlers, c.MW)
}
