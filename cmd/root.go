package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/clarityhire/clarity/internal/clarity"
	"github.com/clarityhire/clarity/internal/errs"
	"github.com/clarityhire/clarity/internal/logger"
	"github.com/clarityhire/clarity/internal/session"
	"github.com/clarityhire/clarity/internal/store"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app       = "clarity"
	envPrefix = "CLARITY"

	backendFile  = "file"
	backendRedis = "redis"
)

type Config struct {
	APIURL    string         `mapstructure:"api-url"`
	UserAgent string         `mapstructure:"user-agent"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	Session   *SessionConfig `mapstructure:"session"`
	Poll      *PollConfig    `mapstructure:"poll"`
	Board     *BoardConfig   `mapstructure:"board"`
}

type SessionConfig struct {
	Backend string       `mapstructure:"backend"`
	File    string       `mapstructure:"file"`
	Redis   *RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type BoardConfig struct {
	MinTier          string   `mapstructure:"min-tier"`
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	Skill            string   `mapstructure:"skill"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "clarity is a command-line client for the ClarityHire resume matching service",
		// Errors are reported through the logger by each command.
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("api-url", clarity.DefaultAPIURL)
	viper.SetDefault("user-agent", clarity.DefaultUserAgent)
	viper.SetDefault("timeout", 10*time.Second)
	viper.SetDefault("session.backend", backendFile)
	viper.SetDefault("session.file", defaultSessionFile())
	viper.SetDefault("session.redis.addr", "")
	viper.SetDefault("session.redis.password", "")
	viper.SetDefault("session.redis.db", 0)
	viper.SetDefault("session.redis.prefix", "")
	viper.SetDefault("poll.interval", 3*time.Second)
	viper.SetDefault("board.min-tier", "")
	viper.SetDefault("board.exclude-companies", []string{})
	viper.SetDefault("board.skill", "")

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is clarity.yaml in current directory or ~/.config/clarity)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", clarity.DefaultAPIURL, "base url of the ClarityHire API")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api-url", rootCmd.PersistentFlags().Lookup("api-url"))
}

func initConfig() {
	// A .env file in the working directory may carry CLARITY_* variables.
	// Variables already set in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", app))
		}
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// A config file is optional unless it was given explicitly.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Session == nil {
		config.Session = &SessionConfig{Backend: backendFile, File: defaultSessionFile()}
	}
	if config.Poll == nil {
		config.Poll = &PollConfig{}
	}
	if config.Board == nil {
		config.Board = &BoardConfig{}
	}

	return config, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".", "."+app, "session.json")
	}
	return filepath.Join(dir, app, "session.json")
}

// env is what every command works with.
type env struct {
	config  *Config
	logger  *zap.Logger
	store   store.Store
	session *session.Session
	client  *clarity.Client
}

// setup builds the logger, restores the session and creates the API client.
// Failures are fatal.
func setup() *env {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting clarity",
		zap.String("version", version),
		zap.String("api_url", config.APIURL),
		zap.String("session_backend", config.Session.Backend),
	)

	st, err := openStore(config.Session)
	if err != nil {
		logger.Fatal("opening session store", zap.Error(err))
	}

	s := session.New(st, logger)
	if _, err := s.Load(context.Background()); err != nil {
		logger.Fatal("restoring session", zap.Error(err))
	}

	client := clarity.New(config.APIURL, s, logger,
		clarity.WithTimeout(config.Timeout),
		clarity.WithUserAgent(config.UserAgent),
	)

	return &env{
		config:  config,
		logger:  logger,
		store:   st,
		session: s,
		client:  client,
	}
}

func openStore(cfg *SessionConfig) (store.Store, error) {
	switch backend := strings.ToLower(strings.TrimSpace(cfg.Backend)); backend {
	case "", backendFile:
		return store.NewFile(cfg.File)
	case backendRedis:
		if cfg.Redis == nil {
			return nil, errors.New("session.redis is required for the redis backend")
		}
		return store.NewRedis(store.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}

// commandContext returns a context cancelled by SIGINT/SIGTERM or by the server
// rejecting the credential. In the latter case the user is told how to
// sign in again.
func (e *env) commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancelCause(ctx)

	e.session.OnClear(func(reason session.Reason) {
		if reason != session.ReasonUnauthorized {
			return
		}
		cancel(errSessionExpired)
	})

	return ctx, func() {
		cancel(nil)
		stop()
	}
}

var errSessionExpired = errors.New("session expired or was revoked")

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing session store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// fatal reports err and exits. A rejected credential gets a hint to sign in
// again.
func (e *env) fatal(ctx context.Context, msg string, err error) {
	fields := []zap.Field{zap.Error(err)}
	if errs.IsAuth(err) || errors.Is(context.Cause(ctx), errSessionExpired) {
		fields = append(fields, zap.String("hint", "run `clarity login` to sign in"))
	}
	e.logger.Error(msg, fields...)
	e.close()
	os.Exit(1)
}
