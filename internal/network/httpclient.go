// File: internal/network/httpclient.go
package network

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/http2"

	"github.com/xkilldash9x/handbridge/internal/config"
	"github.com/xkilldash9x/handbridge/internal/observability"
)

// Default TCP/HTTP settings for talking to automation engines. Engines answer
// polls quickly but a script submission may hold the connection while the
// engine parses it, hence the generous header timeout.
const (
	DefaultDialTimeout           = 5 * time.Second
	DefaultKeepAliveInterval     = 15 * time.Second
	DefaultTLSHandshakeTimeout   = 5 * time.Second
	DefaultResponseHeaderTimeout = 10 * time.Second
	DefaultRequestTimeout        = 30 * time.Second

	// An engine serves one session per driver; a handful of idle
	// connections per host is plenty.
	DefaultMaxIdleConns        = 32
	DefaultMaxIdleConnsPerHost = 4
	DefaultIdleConnTimeout     = 90 * time.Second
)

// ClientConfig holds the configuration for the HTTP client and transport layers.
type ClientConfig struct {
	// IgnoreTLSErrors disables certificate verification. TLSConfig, when set,
	// is cloned and used as the base configuration.
	IgnoreTLSErrors bool
	TLSConfig       *tls.Config

	// RequestTimeout bounds a whole exchange, including reading the body.

	RequestTimeout        time.Duration
	TLSHandshakeTimeout   time.Duration
	ResponseHeaderTimeout time.Duration

	DialerConfig *DialerConfig

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// ForceHTTP2 negotiates h2 through ALPN. When false the client pins
	// HTTP/1.1, which is what most engine builds speak.
	ForceHTTP2        bool
	DisableKeepAlives bool

	Logger *zap.Logger
}

// Client is a wrapper around the standard http.Client.
//
// Embedding the standard client keeps all of its methods (Do, Get, Post), so
// it can be handed to anything expecting an *http.Client. It is safe for
// concurrent use by multiple goroutines; all engine sessions share one.
//
// The caller is responsible for closing Response.Body after consuming it.
// Forgetting to do so leaks the connection and, since the idle pool per host
// is small, soon stalls further polls. The usual pattern is:
//
//	resp, err := client.Do(req)
//	if err != nil {
//		return err
//	}
//	defer resp.Body.Close()
//	body, err := io.ReadAll(resp.Body)
type Client struct {
	*http.Client
}

// NewDefaultClientConfig creates a configuration suited to engine traffic.
func NewDefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		DialerConfig:          NewDialerConfig(),
		RequestTimeout:        DefaultRequestTimeout,
		TLSHandshakeTimeout:   DefaultTLSHandshakeTimeout,
		ResponseHeaderTimeout: DefaultResponseHeaderTimeout,
		MaxIdleConns:          DefaultMaxIdleConns,
		MaxIdleConnsPerHost:   DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:       DefaultIdleConnTimeout,
		Logger:                observability.GetLogger().Named("httpclient"),
	}
}

// ClientConfigFromRemote applies the remote section of the application config.
func ClientConfigFromRemote(rc config.RemoteConfig, logger *zap.Logger) *ClientConfig {
	cfg := NewDefaultClientConfig()
	if rc.RequestTimeout > 0 {
		cfg.RequestTimeout = rc.RequestTimeout
	}
	cfg.IgnoreTLSErrors = rc.IgnoreTLSErrors
	cfg.ForceHTTP2 = rc.ForceHTTP2
	if logger != nil {
		cfg.Logger = logger.Named("httpclient")
	}
	return cfg
}

// NewHTTPTransport creates and configures an http.Transport based on the
// provided configuration. A nil configuration means NewDefaultClientConfig.
func NewHTTPTransport(cfg *ClientConfig) *http.Transport {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	dialerCfg := cfg.DialerConfig
	if dialerCfg == nil {
		dialerCfg = NewDialerConfig()
	}

	tlsConfig := configureTLS(cfg)
	transport := &http.Transport{
		// Use the package TCP dialer for all connections.
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return DialTCPContext(ctx, network, addr, dialerCfg)
		},
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     cfg.ForceHTTP2,
	}

	if cfg.ForceHTTP2 {
		// http2.ConfigureTransport modifies the transport in place.
		if err := http2.ConfigureTransport(transport); err != nil {
			cfg.Logger.Warn("Failed to configure HTTP/2 transport, falling back to HTTP/1.1", zap.Error(err))
		}
	} else if len(tlsConfig.NextProtos) == 0 {
		// Pin HTTP/1.1 for ALPN so TLS engines do not upgrade on their own.
		tlsConfig.NextProtos = []string{"http/1.1"}
	}
	return transport
}

// NewClient creates the client wrapper using the configured transport.
// Redirects are followed; engines do not issue them in normal operation.
func NewClient(cfg *ClientConfig) *Client {
	if cfg == nil {
		cfg = NewDefaultClientConfig()
	}
	return &Client{
		Client: &http.Client{
			Transport: NewHTTPTransport(cfg),
			Timeout:   cfg.RequestTimeout,
		},
	}
}

// configureTLS builds the TLS configuration: a clone of cfg.TLSConfig when
// one is given, TLS 1.2 or newer with a session cache otherwise.
func configureTLS(cfg *ClientConfig) *tls.Config {
	var tlsConfig *tls.Config
	if cfg.TLSConfig != nil {
		// Clone so the caller's configuration is never modified.
		tlsConfig = cfg.TLSConfig.Clone()
	} else {
		tlsConfig = &tls.Config{
			MinVersion:         tls.VersionTLS12,
			ClientSessionCache: tls.NewLRUClientSessionCache(64),
		}
	}
	// Engines on lab machines commonly run with self signed certificates.
	tlsConfig.InsecureSkipVerify = cfg.IgnoreTLSErrors
	return tlsConfig
}
