package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port    int    `yaml:"port"`
	GinMode string `yaml:"gin_mode"`
}

type APIConfig struct {
	BaseURL      string `yaml:"base_url"`
	Timeout      string `yaml:"timeout"`
	LoginTimeout string `yaml:"login_timeout"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Path    string      `yaml:"path"`
	Key     string      `yaml:"key"`
	TTL     string      `yaml:"ttl"`
	Redis   RedisConfig `yaml:"redis"`
}

type OAuthConfig struct {
	ProviderID   string   `yaml:"provider_id"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserinfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

type CasbinConfig struct {
	ModelPath  string `yaml:"model_path"`
	PolicyPath string `yaml:"policy_path"`
}

type RoutesConfig struct {
	LoginPath string `yaml:"login_path"`
}

type ConfigFile struct {
	App    AppConfig    `yaml:"app"`
	API    APIConfig    `yaml:"api"`
	Store  StoreConfig  `yaml:"store"`
	OAuth  OAuthConfig  `yaml:"oauth"`
	Casbin CasbinConfig `yaml:"casbin"`
	Routes RoutesConfig `yaml:"routes"`
}

type Config struct {
	Port    string
	GinMode string

	APIBaseURL     string
	RequestTimeout time.Duration
	LoginTimeout   time.Duration

	StoreBackend  string
	StorePath     string
	StoreKey      string
	StoreTTL      time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	OAuthProviderID   string
	OAuthClientID     string
	OAuthClientSecret string
	OAuthRedirectURL  string
	OAuthAuthURL      string
	OAuthTokenURL     string
	OAuthUserinfoURL  string
	OAuthScopes       []string

	CasbinModelPath  string
	CasbinPolicyPath string

	LoginPath string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func duration(raw, def string, what string) (time.Duration, error) {
	if raw == "" {
		raw = def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", what, err)
	}
	return d, nil
}

// Load reads config/config.yml and applies environment overrides for the
// secrets that should not live in the file.
func Load() (*Config, error) {
	return LoadFrom("config/config.yml")
}

// LoadFrom reads the config file at path.
func LoadFrom(path string) (*Config, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file at %s: %w", path, err)
	}

	var file ConfigFile
	if err := yaml.Unmarshal(bytes, &file); err != nil {
		return nil, fmt.Errorf("could not parse config yaml: %w", err)
	}

	reqTimeout, err := duration(file.API.Timeout, "10s", "api timeout")
	if err != nil {
		return nil, err
	}
	loginTimeout, err := duration(file.API.LoginTimeout, "30s", "login timeout")
	if err != nil {
		return nil, err
	}
	storeTTL, err := duration(file.Store.TTL, "168h", "store ttl")
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(file.Store.Backend)
	if backend == "" {
		backend = "file"
	}
	if backend != "file" && backend != "redis" {
		return nil, fmt.Errorf("unknown store backend %q", file.Store.Backend)
	}

	storePath := file.Store.Path
	if storePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not resolve home directory: %w", err)
		}
		storePath = home + "/.sessionkit/session.json"
	}

	storeKey := file.Store.Key
	if storeKey == "" {
		storeKey = "sessionkit:session"
	}

	loginPath := file.Routes.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	scopes := file.OAuth.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	return &Config{
		Port:    fmt.Sprintf("%d", file.App.Port),
		GinMode: file.App.GinMode,

		APIBaseURL:     env("SESSIONKIT_API_BASE_URL", file.API.BaseURL),
		RequestTimeout: reqTimeout,
		LoginTimeout:   loginTimeout,

		StoreBackend:  backend,
		StorePath:     storePath,
		StoreKey:      storeKey,
		StoreTTL:      storeTTL,
		RedisAddr:     env("SESSIONKIT_REDIS_ADDR", file.Store.Redis.Addr),
		RedisPassword: env("SESSIONKIT_REDIS_PASSWORD", file.Store.Redis.Password),
		RedisDB:       file.Store.Redis.DB,

		OAuthProviderID:   file.OAuth.ProviderID,
		OAuthClientID:     env("SESSIONKIT_OAUTH_CLIENT_ID", file.OAuth.ClientID),
		OAuthClientSecret: env("SESSIONKIT_OAUTH_CLIENT_SECRET", file.OAuth.ClientSecret),
		OAuthRedirectURL:  file.OAuth.RedirectURL,
		OAuthAuthURL:      file.OAuth.AuthURL,
		OAuthTokenURL:     file.OAuth.TokenURL,
		OAuthUserinfoURL:  file.OAuth.UserinfoURL,
		OAuthScopes:       scopes,

		CasbinModelPath:  file.Casbin.ModelPath,
		CasbinPolicyPath: file.Casbin.PolicyPath,

		LoginPath: loginPath,
	}, nil
}
