package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"knowledge-race/internal/config"
)

// options holds flag values. Non-empty flags override the YAML config.
type options struct {
	configPath  string
	port        string
	bind        string
	verbose     bool
	redisAddr   string
	postgresURL string
	natsURL     string
	apiKey      string
}

// Execute runs the CLI.
func Execute() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
	cmd := newRootCmd(&options{})
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		return err
	}
	return nil
}

func newRootCmd(opts *options) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KNOWLEDGE_RACE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "knowledge-race",
		Short: "Classroom quiz race: two or more teams, one shared board",
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVar(&opts.configPath, "config", "config/config.yaml", "path to YAML config (env: KNOWLEDGE_RACE_CONFIG)")
	fs.StringVarP(&opts.port, "port", "p", "", "port to listen on (env: KNOWLEDGE_RACE_PORT)")
	fs.StringVarP(&opts.bind, "bind", "b", "", "address to bind to (env: KNOWLEDGE_RACE_BIND)")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "human readable debug logging (env: KNOWLEDGE_RACE_VERBOSE)")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "redis address for caches and liveness keys (env: KNOWLEDGE_RACE_REDIS_ADDR)")
	fs.StringVar(&opts.postgresURL, "postgres-url", "", "postgres DSN of the question bank (env: KNOWLEDGE_RACE_POSTGRES_URL)")
	fs.StringVar(&opts.natsURL, "nats-url", "", "NATS server for round events (env: KNOWLEDGE_RACE_NATS_URL)")
	fs.StringVar(&opts.apiKey, "generator-api-key", "", "API key of the question generator (env: KNOWLEDGE_RACE_GENERATOR_API_KEY)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(newStartCmd(opts))
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

// loadConfig reads the YAML file, applies flag overrides and configures the
// global logger.
func loadConfig(opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", opts.configPath, err)
	}
	overrides := []struct {
		dst *string
		val string
	}{
		{&cfg.Server.Port, opts.port},
		{&cfg.Server.Bind, opts.bind},
		{&cfg.Redis.Addr, opts.redisAddr},
		{&cfg.Postgres.URL, opts.postgresURL},
		{&cfg.NATS.URL, opts.natsURL},
		{&cfg.Generator.APIKey, opts.apiKey},
	}
	for _, o := range overrides {
		if o.val != "" {
			*o.dst = o.val
		}
	}
	if opts.verbose {
		cfg.Log.Pretty = true
		if cfg.Log.Level == "" {
			cfg.Log.Level = "debug"
		}
	}
	setupLogging(cfg.Log.Level, cfg.Log.Pretty)
	return cfg, nil
}

func setupLogging(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
