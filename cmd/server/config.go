package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind           string
	port           int
	gracePeriod    time.Duration
	sessionTimeout time.Duration
	jwtSecret      string
	redisAddr      string
	natsURL        string
	natsPrefix     string
	consulAddr     string
	serviceName    string
	verbose        bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.jwtSecret == "" {
		return errors.New("--jwt-secret is required (env: VELHA_JWT_SECRET)")
	}
	if c.gracePeriod <= 0 {
		return errors.New("--grace-period must be positive")
	}
	return nil
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("VELHA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "velha-server",
		Short:         "Realtime matchmaking and live-game server for two-player grid games.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: VELHA_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: VELHA_PORT)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 45*time.Second, "reconnect window before a disconnect counts as forfeit (env: VELHA_GRACE_PERIOD)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 30*time.Minute, "time before idle game sessions are expired (env: VELHA_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.jwtSecret, "jwt-secret", "", "shared HS256 secret of the auth service (env: VELHA_JWT_SECRET)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "redis address for the game archive, empty disables (env: VELHA_REDIS_ADDR)")
	fs.StringVar(&cfg.natsURL, "nats-url", "", "nats url for presence fan-out, empty disables (env: VELHA_NATS_URL)")
	fs.StringVar(&cfg.natsPrefix, "nats-prefix", "velha", "subject prefix for nats events (env: VELHA_NATS_PREFIX)")
	fs.StringVar(&cfg.consulAddr, "consul-addr", "", "consul address for service registration, empty disables (env: VELHA_CONSUL_ADDR)")
	fs.StringVar(&cfg.serviceName, "service-name", "velha-realtime", "service name announced to consul (env: VELHA_SERVICE_NAME)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: VELHA_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("velha-server v{{.Version}}\n")

	return cmd
}
