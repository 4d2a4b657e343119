package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	auth "github.com/goliatone/go-auth-core"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN)
	DatabaseURL string
	// Server bind address (host:port)
	ServerAddr string
	Debug      bool
	LogLevel   string
	// json or console
	LogFormat string

	JWT      JWTConfig
	Password PasswordConfig
	Roles    RolesConfig

	signingKey     []byte
	previousKeys   [][]byte
	weakSigningKey bool
}

// JWTConfig holds token issuance options
type JWTConfig struct {
	Secret          string
	SecretFile      string
	IdentityFile    string
	PreviousSecrets []string
	Expiration      time.Duration
	Issuer          string
	Audience        []string
	MinSecretBytes  int
	AllowWeakSecret bool
}

// PasswordConfig holds password policy options
type PasswordConfig struct {
	MinLength int
	// 0 selects the package default
	HashCost int
}

// RolesConfig holds the declared roles and the role cache options
type RolesConfig struct {
	Declared  []string
	Admin     string
	CacheTTL  time.Duration
	CacheSize int
}

var _ auth.Config = (*Config)(nil)

// Option customizes Load
type Option func(*loader)

type loader struct {
	envFiles   []string
	configFile string
	viper      *viper.Viper
}

// WithEnvFiles sets the dotenv files loaded before reading the environment.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(l *loader) {
		l.envFiles = files
	}
}

// WithConfigFile reads an additional config file (yaml, json or toml)
func WithConfigFile(path string) Option {
	return func(l *loader) {
		l.configFile = path
	}
}

// WithViper uses v instead of a fresh viper instance
func WithViper(v *viper.Viper) Option {
	return func(l *loader) {
		if v != nil {
			l.viper = v
		}
	}
}

// Load reads configuration from dotenv files, an optional config file and
// environment variables, in increasing order of precedence. A missing
// signing secret is an error.
func Load(opts ...Option) (*Config, error) {
	l := &loader{
		envFiles: []string{".env"},
	}
	for _, opt := range opts {
		opt(l)
	}

	for _, file := range l.envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", file, err)
		}
	}

	v := l.viper
	if v == nil {
		v = viper.New()
	}
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL: v.GetString("database.url"),
		ServerAddr:  v.GetString("server.addr"),
		Debug:       v.GetBool("debug"),
		LogLevel:    v.GetString("log.level"),
		LogFormat:   v.GetString("log.format"),
		JWT: JWTConfig{
			Secret:          v.GetString("jwt.secret"),
			SecretFile:      v.GetString("jwt.secret_file"),
			IdentityFile:    v.GetString("jwt.secret_identity_file"),
			PreviousSecrets: stringList(v, "jwt.previous_secrets"),
			Expiration:      v.GetDuration("jwt.expiration"),
			Issuer:          v.GetString("jwt.issuer"),
			Audience:        stringList(v, "jwt.audience"),
			MinSecretBytes:  v.GetInt("jwt.min_secret_bytes"),
			AllowWeakSecret: v.GetBool("jwt.allow_weak_secret"),
		},
		Password: PasswordConfig{
			MinLength: v.GetInt("password.min_length"),
			HashCost:  v.GetInt("password.hash_cost"),
		},
		Roles: RolesConfig{
			Declared:  auth.NormalizeRoles(stringList(v, "roles.declared")),
			Admin:     strings.TrimSpace(v.GetString("roles.admin")),
			CacheTTL:  v.GetDuration("roles.cache_ttl"),
			CacheSize: v.GetInt("roles.cache_size"),
		},
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolveKeys(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "file:authd.db?cache=shared")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.secret_file", "")
	v.SetDefault("jwt.secret_identity_file", "")
	v.SetDefault("jwt.previous_secrets", "")
	v.SetDefault("jwt.expiration", auth.DefaultTokenExpiration)
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.audience", "")
	v.SetDefault("jwt.min_secret_bytes", auth.DefaultMinSigningKeyBytes)
	v.SetDefault("jwt.allow_weak_secret", false)

	v.SetDefault("password.min_length", auth.DefaultPasswordMinLength)
	v.SetDefault("password.hash_cost", 0)

	v.SetDefault("roles.declared", strings.Join(auth.DefaultRoles(), ","))
	v.SetDefault("roles.admin", auth.RoleNameAdmin)
	v.SetDefault("roles.cache_ttl", auth.DefaultRoleCacheTTL)
	v.SetDefault("roles.cache_size", auth.DefaultRoleCacheSize)
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}

	if c.JWT.Expiration <= 0 {
		return fmt.Errorf("JWT_EXPIRATION must be positive, got %s", c.JWT.Expiration)
	}

	if c.Password.MinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 1, got %d", c.Password.MinLength)
	}

	if len(c.Roles.Declared) == 0 {
		return errors.New("ROLES_DECLARED must name at least one role")
	}

	if !slices.Contains(c.Roles.Declared, c.Roles.Admin) {
		return fmt.Errorf("ROLES_ADMIN %q is not one of the declared roles %v", c.Roles.Admin, c.Roles.Declared)
	}

	return nil
}

func (c *Config) resolveKeys() error {
	key, weak, err := auth.ResolveSigningKey(auth.SigningKeySource{
		Secret:       c.JWT.Secret,
		File:         c.JWT.SecretFile,
		IdentityFile: c.JWT.IdentityFile,
		MinBytes:     c.JWT.MinSecretBytes,
		AllowWeak:    c.JWT.AllowWeakSecret,
	})
	if err != nil {
		return err
	}

	c.signingKey = key
	c.weakSigningKey = weak

	c.previousKeys = nil
	for i, secret := range c.JWT.PreviousSecrets {
		prev, prevWeak, err := auth.ResolveSigningKey(auth.SigningKeySource{
			Secret:    secret,
			MinBytes:  c.JWT.MinSecretBytes,
			AllowWeak: c.JWT.AllowWeakSecret,
		})
		if err != nil {
			return auth.WrapError(err, auth.KindOf(err), fmt.Sprintf("JWT_PREVIOUS_SECRETS entry %d rejected", i+1))
		}
		c.weakSigningKey = c.weakSigningKey || prevWeak
		c.previousKeys = append(c.previousKeys, prev)
	}

	return nil
}

// WeakSigningKey reports whether the current or a retired secret is below
// the minimum length and was accepted only because weak secrets are allowed.
func (c *Config) WeakSigningKey() bool {
	return c.weakSigningKey
}

func (c *Config) GetSigningKey() []byte {
	return c.signingKey
}

func (c *Config) GetPreviousSigningKeys() [][]byte {
	return c.previousKeys
}

func (c *Config) GetTokenExpiration() time.Duration {
	return c.JWT.Expiration
}

func (c *Config) GetIssuer() string {
	return c.JWT.Issuer
}

func (c *Config) GetAudience() []string {
	return c.JWT.Audience
}

func (c *Config) GetPasswordMinLength() int {
	return c.Password.MinLength
}

func (c *Config) GetDeclaredRoles() []string {
	return c.Roles.Declared
}

func (c *Config) GetAdminRole() string {
	return c.Roles.Admin
}

// stringList reads a comma separated env value or a config file list
func stringList(v *viper.Viper, key string) []string {
	var items []string

	switch raw := v.Get(key).(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(raw, ",")
	default:
		items = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
