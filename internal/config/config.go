package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	DatabaseURL string
	SecretKey   string

	NominatimURL      string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderRPS       float64

	LinkCacheTTL time.Duration
	SubmitRPS    float64
	SubmitBurst  int

	// TrustedProxies are the reverse proxies allowed to name the client in
	// X-Forwarded-For. Empty means the socket peer is the client.
	TrustedProxies []netip.Prefix

	// CookieSecure marks the CSRF cookie Secure. Turn it off only for
	// plain-HTTP local runs.
	CookieSecure bool

	LogLevel   string
	LogFormat  string
	DBLogLevel string
}

var required = []string{"DATABASE_URL", "SECRET_KEY"}

func defaults(v *viper.Viper) {
	v.SetDefault("PORT", "5050")
	v.SetDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODER_USER_AGENT", "RaffleApp/1.0")
	v.SetDefault("GEOCODER_TIMEOUT", 10*time.Second)
	v.SetDefault("GEOCODER_RPS", 1.0)
	v.SetDefault("LINK_CACHE_TTL", 5*time.Minute)
	v.SetDefault("SUBMIT_RPS", 0.2)
	v.SetDefault("SUBMIT_BURST", 5)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("DB_LOG_LEVEL", "warn")
}

// Load reads .env.local (if present) and the environment. It fails when a
// required secret is missing instead of falling back to a built-in value.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	defaults(v)
	return v
}

func FromViper(v *viper.Viper) (*Config, error) {
	var missing []string
	for _, k := range required {
		if strings.TrimSpace(v.GetString(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		SecretKey:         v.GetString("SECRET_KEY"),
		NominatimURL:      v.GetString("NOMINATIM_URL"),
		GeocoderUserAgent: v.GetString("GEOCODER_USER_AGENT"),
		GeocoderTimeout:   v.GetDuration("GEOCODER_TIMEOUT"),
		GeocoderRPS:       v.GetFloat64("GEOCODER_RPS"),
		LinkCacheTTL:      v.GetDuration("LINK_CACHE_TTL"),
		SubmitRPS:         v.GetFloat64("SUBMIT_RPS"),
		SubmitBurst:       v.GetInt("SUBMIT_BURST"),
		CookieSecure:      v.GetBool("COOKIE_SECURE"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
		DBLogLevel:        v.GetString("DB_LOG_LEVEL"),
	}
	if len(cfg.SecretKey) < 16 {
		return nil, fmt.Errorf("SECRET_KEY must be at least 16 characters")
	}
	if cfg.LinkCacheTTL <= 0 {
		return nil, fmt.Errorf("LINK_CACHE_TTL must be positive, got %s", cfg.LinkCacheTTL)
	}
	proxies, err := parsePrefixes(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return nil, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies
	if cfg.GeocoderTimeout <= 0 {
		return nil, fmt.Errorf("GEOCODER_TIMEOUT must be positive, got %s", cfg.GeocoderTimeout)
	}
	return cfg, nil
}

// parsePrefixes reads a comma-separated list of CIDRs or bare addresses.
func parsePrefixes(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			p, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(part)
		if err != nil {
			return nil, err
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// Addr is the listen address.
func (c *Config) Addr() string { return "0.0.0.0:" + c.Port }
