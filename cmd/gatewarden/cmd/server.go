package cmd

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/rvaughn/gatewarden/api"
	"github.com/rvaughn/gatewarden/auth"
	"github.com/rvaughn/gatewarden/config"
	"github.com/rvaughn/gatewarden/internal/util"
	bboltstorage "github.com/rvaughn/gatewarden/storage/bbolt"
	"github.com/rvaughn/gatewarden/vault"
)

var (
	configPath string
	addr       string
	dataDir    string
	tlsCert    string
	tlsKey     string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the signing gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Default()
		if configPath != "" {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if addr != "" {
			cfg.Server.Addr = addr
		}
		if dataDir != "" {
			cfg.Server.DataDir = dataDir
		}
		if tlsCert != "" {
			cfg.Server.TLSCert = tlsCert
		}
		if tlsKey != "" {
			cfg.Server.TLSKey = tlsKey
		}

		logger, err := newLogger(cfg.Logging)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Server.DataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		auditStore, err := bboltstorage.NewStoreFromFile(filepath.Join(cfg.Server.DataDir, "audit.db"), nil)
		if err != nil {
			return fmt.Errorf("failed to open audit store: %w", err)
		}
		defer auditStore.Close()

		sessions := auth.NewSessionStore(cfg.Auth.SessionSecret, cfg.Auth.SessionTimeout)
		defer sessions.Close()

		limiter := auth.NewRateLimiter(cfg.RateLimit.Enabled,
			auth.Limit{Max: cfg.RateLimit.Max, Window: cfg.RateLimit.Window},
			bucketOverrides(cfg.RateLimit.Buckets))

		authn := auth.NewAuthenticator(auth.Config{
			Enabled:       cfg.Auth.Enabled,
			APIKey:        cfg.Auth.APIKey,
			BasicUser:     cfg.Auth.BasicUser,
			BasicPassword: cfg.Auth.BasicPassword,
			AdminSecret:   cfg.Auth.AdminSecret,
		}, sessions, limiter)

		kdfParams, err := util.Argon2idProfile(cfg.Vault.KDFProfile)
		if err != nil {
			return err
		}
		derive := newKeyDeriver(kdfParams, kdfSalt(cfg))

		v := vault.New(derive, cfg.Vault.MaxRehydrations, cfg.Auth.SessionTimeout)
		defer v.Close()
		factory := vault.NewFactory(v)

		proxies, err := parseTrustedProxies(cfg.Server.TrustedProxies)
		if err != nil {
			return err
		}

		a := api.New(authn, sessions, v, factory, limiter, derive,
			api.WithLogger(logger),
			api.WithAuditStore(auditStore),
			api.WithTrustedProxies(proxies),
			api.WithProduction(cfg.Production),
			api.WithAlertFunc(func(e api.AlertEvent) {
				logger.Warn("anomaly alert",
					"type", string(e.Type),
					"message", e.Message,
					"count", e.Count,
					"threshold", e.Threshold)
			}),
		)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(a.SecurityHeaders)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		var tlsConfig *tls.Config
		if cfg.Server.TLSCert != "" && cfg.Server.TLSKey != "" {
			cert, err := tls.LoadX509KeyPair(cfg.Server.TLSCert, cfg.Server.TLSKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		} else {
			cert, err := util.GenerateSelfSignedCert()
			if err != nil {
				return fmt.Errorf("failed to generate self-signed certificate: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
			logger.Info("using self-signed runtime generated certificate for TLS")
		}

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		logger.Info("server started", "addr", cfg.Server.Addr, "data_dir", cfg.Server.DataDir, "production", cfg.Production)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// newKeyDeriver wraps the Argon2id profile as the vault's KDF. The salt is
// deployment-stable so the same password always derives the same key.
func newKeyDeriver(params util.Argon2idParams, salt []byte) vault.KeyDeriver {
	return func(ctx context.Context, password []byte) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return util.DeriveArgon2idKey(string(password), salt, params)
	}
}

// kdfSalt derives the deployment KDF salt from the session secret, falling
// back to a fixed development salt when sessions are unkeyed.
func kdfSalt(cfg *config.Config) []byte {
	sum := sha256.Sum256([]byte("gatewarden.kdf.v1:" + cfg.Auth.SessionSecret))
	return sum[:]
}

func bucketOverrides(buckets map[string]config.BucketConfig) map[string]auth.Limit {
	if len(buckets) == 0 {
		return nil
	}
	out := make(map[string]auth.Limit, len(buckets))
	for name, b := range buckets {
		out[name] = auth.Limit{Max: b.Max, Window: b.Window}
	}
	return out
}

func parseTrustedProxies(raw []string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
			}
			out = append(out, p)
			continue
		}
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", s, err)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "", "info":
		level = slog.LevelInfo
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level: %s", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	serverCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for persistent data (overrides config)")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
