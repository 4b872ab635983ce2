package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "artpay"

	AppEnvDev  = "development"
	AppEnvProd = "production"
)

type Config struct {
	App      AppConfig
	Commerce CommerceConfig
	Stripe   StripeConfig
	Redis    RedisConfig
	Uploads  UploadsConfig
	Mail     MailConfig
	Bank     BankConfig
	Fees     FeesConfig
	Methods  MethodsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ARTPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"ARTPAY_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ARTPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARTPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// CommerceConfig points at the commerce backend that owns order records.
type CommerceConfig struct {
	BaseURL        string        `envconfig:"ARTPAY_COMMERCE_BASE_URL"`
	ConsumerKey    string        `envconfig:"ARTPAY_COMMERCE_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"ARTPAY_COMMERCE_CONSUMER_SECRET"`
	Timeout        time.Duration `envconfig:"ARTPAY_COMMERCE_TIMEOUT" default:"15s"`
	RetryCount     int           `envconfig:"ARTPAY_COMMERCE_RETRY_COUNT" default:"2"`
}

func (c CommerceConfig) validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("commerce base url is required")
	}
	return nil
}

type StripeConfig struct {
	APIKey string `envconfig:"ARTPAY_STRIPE_API_KEY"`
	Secret string `envconfig:"ARTPAY_STRIPE_SECRET"`
	Env    string `envconfig:"ARTPAY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type RedisConfig struct {
	URL          string        `envconfig:"ARTPAY_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"ARTPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARTPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARTPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARTPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARTPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// UploadsConfig describes the receipt upload service. Accepted types and the
// size cap are deployment configuration, not code.
type UploadsConfig struct {
	BaseURL       string        `envconfig:"ARTPAY_UPLOADS_BASE_URL"`
	PublicKey     string        `envconfig:"ARTPAY_UPLOADS_PUBLIC_KEY"`
	MaxSizeBytes  int64         `envconfig:"ARTPAY_UPLOADS_MAX_SIZE_BYTES" default:"10485760"`
	AcceptedTypes []string      `envconfig:"ARTPAY_UPLOADS_ACCEPTED_TYPES" default:"application/pdf,image/jpeg,image/png"`
	Timeout       time.Duration `envconfig:"ARTPAY_UPLOADS_TIMEOUT" default:"30s"`
}

type MailConfig struct {
	BaseURL    string        `envconfig:"ARTPAY_MAIL_BASE_URL"`
	ServiceID  string        `envconfig:"ARTPAY_MAIL_SERVICE_ID"`
	TemplateID string        `envconfig:"ARTPAY_MAIL_TEMPLATE_ID"`
	PublicKey  string        `envconfig:"ARTPAY_MAIL_PUBLIC_KEY"`
	Timeout    time.Duration `envconfig:"ARTPAY_MAIL_TIMEOUT" default:"10s"`
}

// BankConfig is the receiving account shown to buyers paying by transfer,
// plus the operations mailbox notified when a receipt arrives.
type BankConfig struct {
	AccountHolder string `envconfig:"ARTPAY_BANK_ACCOUNT_HOLDER"`
	IBAN          string `envconfig:"ARTPAY_BANK_IBAN"`
	BIC           string `envconfig:"ARTPAY_BANK_BIC"`
	Name          string `envconfig:"ARTPAY_BANK_NAME"`
	NotifyEmail   string `envconfig:"ARTPAY_BANK_NOTIFY_EMAIL"`
	NotifyName    string `envconfig:"ARTPAY_BANK_NOTIFY_NAME" default:"Operations"`
}

// FeesConfig carries the markup rates applied upstream by the commerce
// backend. The defaults match the production pricing tables.
type FeesConfig struct {
	PlatformRate  string `envconfig:"ARTPAY_FEES_PLATFORM_RATE" default:"0.06"`
	FinancingRate string `envconfig:"ARTPAY_FEES_FINANCING_RATE" default:"0.064658"`
	CombinedRate  string `envconfig:"ARTPAY_FEES_COMBINED_RATE" default:"0.124658"`
}

// MethodsConfig overrides the eligibility windows per payment method, in
// major units of EUR.
type MethodsConfig struct {
	KlarnaMax     string `envconfig:"ARTPAY_METHODS_KLARNA_MAX" default:"2500"`
	SantanderMin  string `envconfig:"ARTPAY_METHODS_SANTANDER_MIN" default:"1500"`
	SantanderMax  string `envconfig:"ARTPAY_METHODS_SANTANDER_MAX" default:"30000"`
	HeyLightMin   string `envconfig:"ARTPAY_METHODS_HEYLIGHT_MIN" default:"100"`
	HeyLightMax   string `envconfig:"ARTPAY_METHODS_HEYLIGHT_MAX" default:"5000"`
	AuctionSwitch string `envconfig:"ARTPAY_METHODS_AUCTION_SWITCH_MINOR" default:"25000000"`
}
