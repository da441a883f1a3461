package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/beachteams/rotation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const minSessionTimeout = time.Second

type Config struct {
	apiRate        float64
	bind           string
	metrics        bool
	mode           string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	tlsCert        string
	tlsKey         string
	trustProxy     bool
	verbose        bool
	version        bool

	defaultMode rotation.GameMode
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.sessionTimeout != 0 && c.sessionTimeout < minSessionTimeout {
		return fmt.Errorf("invalid --session-timeout (must be 0 or at least %s): %s", minSessionTimeout, c.sessionTimeout)
	}
	if c.apiRate < 0 {
		return fmt.Errorf("invalid --api-rate (must be 0 or more): %v", c.apiRate)
	}

	mode, err := rotation.ParseGameMode(c.mode)
	if err != nil {
		return fmt.Errorf("invalid --mode: %w", err)
	}
	c.defaultMode = mode

	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("BEACHTEAMS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return v
}

// bindEnv lets every flag in fs fall back to its BEACHTEAMS_* environment
// variable when it was not given on the command line.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := newViper()

	cmd := &cobra.Command{
		Use:           "beachteams",
		Short:         "Fair team randomizer for beach volleyball pickup sessions.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.Float64Var(&cfg.apiRate, "api-rate", 5, "generate API requests per second allowed from one address, 0 for unlimited (env: BEACHTEAMS_API_RATE)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: BEACHTEAMS_BIND)")
	fs.BoolVar(&cfg.metrics, "metrics", false, "expose prometheus metrics at /metrics (env: BEACHTEAMS_METRICS)")
	fs.StringVarP(&cfg.mode, "mode", "m", string(rotation.Mode2v2), "game mode for new sessions: 2v2, 3v3 or 4v4 (env: BEACHTEAMS_MODE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: BEACHTEAMS_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: BEACHTEAMS_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: BEACHTEAMS_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 6*time.Hour, "time before idle sessions are forgotten, 0 to keep them forever (env: BEACHTEAMS_SESSION_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: BEACHTEAMS_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: BEACHTEAMS_TLS_KEY)")
	fs.BoolVar(&cfg.trustProxy, "trust-proxy", false, "rate limit by X-Real-IP or CF-Connecting-IP instead of the peer address (env: BEACHTEAMS_TRUST_PROXY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: BEACHTEAMS_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: BEACHTEAMS_VERSION)")

	bindEnv(v, fs)

	cmd.AddCommand(newShuffleCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("beachteams v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
