package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/vibast-solutions/ms-go-account/app/token"

	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

type Config struct {
	HTTP     HTTPConfig
	GRPC     GRPCConfig
	Store    StoreConfig
	MySQL    MySQLConfig
	Log      LogConfig
	Tokens   TokensConfig
	Password PasswordConfig
	Mail     MailConfig
}

type HTTPConfig struct {
	Host string
	Port string
}

type GRPCConfig struct {
	Host string
	Port string
}

type StoreConfig struct {
	Driver           string
	MigrateOnStartup bool
}

type MySQLConfig struct {
	DSN string
}

type LogConfig struct {
	Level  string
	Format string
}

// TokenConfig is the signing domain of one purpose.
type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type TokensConfig struct {
	Verify  TokenConfig
	Auth    TokenConfig
	Refresh TokenConfig
	Reset   TokenConfig
}

type PasswordConfig struct {
	Policy     PasswordPolicy
	BcryptCost int
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	From     string
	BaseURL  string
}

type PasswordPolicy struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumber    bool
	RequireSpecial   bool
}

func (p PasswordPolicy) Validate(password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("password must be at least %d characters long", p.MinLength)
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasNumber = true
		case unicode.IsPunct(ch) || unicode.IsSymbol(ch):
			hasSpecial = true
		}
	}

	var missing []string
	if p.RequireUppercase && !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if p.RequireNumber && !hasNumber {
		missing = append(missing, "number")
	}
	if p.RequireSpecial && !hasSpecial {
		missing = append(missing, "special character")
	}

	if len(missing) > 0 {
		return fmt.Errorf("password must contain at least one: %s", strings.Join(missing, ", "))
	}

	return nil
}

// Domains converts the token settings into the per-purpose signing table.
func (t TokensConfig) Domains() map[token.Purpose]token.Domain {
	return map[token.Purpose]token.Domain{
		token.PurposeVerify:  {Secret: []byte(t.Verify.Secret), Lifetime: t.Verify.TTL},
		token.PurposeAuth:    {Secret: []byte(t.Auth.Secret), Lifetime: t.Auth.TTL},
		token.PurposeRefresh: {Secret: []byte(t.Refresh.Secret), Lifetime: t.Refresh.TTL},
		token.PurposeReset:   {Secret: []byte(t.Reset.Secret), Lifetime: t.Reset.TTL},
	}
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	tokens, err := loadTokens()
	if err != nil {
		return nil, err
	}

	driver := strings.ToLower(getEnv("STORE_DRIVER", StoreMySQL))
	if driver != StoreMySQL && driver != StoreMemory {
		return nil, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMySQL, StoreMemory, driver)
	}

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if driver == StoreMySQL && mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		HTTP: HTTPConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		GRPC: GRPCConfig{
			Host: getEnv("GRPC_HOST", "0.0.0.0"),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Store: StoreConfig{
			Driver:           driver,
			MigrateOnStartup: getBoolEnv("MIGRATE_ON_STARTUP", false),
		},
		MySQL: MySQLConfig{DSN: mysqlDSN},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tokens: tokens,
		Password: PasswordConfig{
			Policy:     loadPasswordPolicy(),
			BcryptCost: getIntEnv("BCRYPT_COST", 10),
		},
		Mail: MailConfig{
			Enabled:  getBoolEnv("MAIL_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnv("SMTP_PORT", "25"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("MAIL_FROM", "no-reply@localhost"),
			BaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		},
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQL.DSN
}

func loadTokens() (TokensConfig, error) {
	tokens := TokensConfig{
		Verify:  TokenConfig{Secret: os.Getenv("VERIFY_TOKEN_SECRET"), TTL: getDurationEnv("VERIFY_TOKEN_TTL", 120*24*time.Hour)},
		Auth:    TokenConfig{Secret: os.Getenv("AUTH_TOKEN_SECRET"), TTL: getDurationEnv("AUTH_TOKEN_TTL", 15*time.Minute)},
		Refresh: TokenConfig{Secret: os.Getenv("REFRESH_TOKEN_SECRET"), TTL: getDurationEnv("REFRESH_TOKEN_TTL", 90*24*time.Hour)},
		Reset:   TokenConfig{Secret: os.Getenv("RESET_TOKEN_SECRET"), TTL: getDurationEnv("RESET_TOKEN_TTL", time.Hour)},
	}

	named := []struct {
		env    string
		secret string
	}{
		{"VERIFY_TOKEN_SECRET", tokens.Verify.Secret},
		{"AUTH_TOKEN_SECRET", tokens.Auth.Secret},
		{"REFRESH_TOKEN_SECRET", tokens.Refresh.Secret},
		{"RESET_TOKEN_SECRET", tokens.Reset.Secret},
	}
	seen := make(map[string]string, len(named))
	for _, n := range named {
		if n.secret == "" {
			return TokensConfig{}, fmt.Errorf("%s environment variable is required", n.env)
		}
		if other, dup := seen[n.secret]; dup {
			return TokensConfig{}, fmt.Errorf("%s must differ from %s", n.env, other)
		}
		seen[n.secret] = n.env
	}

	return tokens, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func loadPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:        getIntEnv("PASSWORD_MIN_LENGTH", 8),
		RequireUppercase: getBoolEnv("PASSWORD_REQUIRE_UPPERCASE", true),
		RequireLowercase: getBoolEnv("PASSWORD_REQUIRE_LOWERCASE", true),
		RequireNumber:    getBoolEnv("PASSWORD_REQUIRE_NUMBER", true),
		RequireSpecial:   getBoolEnv("PASSWORD_REQUIRE_SPECIAL", true),
	}
}
