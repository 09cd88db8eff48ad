package cmd

import (
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "recruit-pilot"
)

type Config struct {
	PostingsFile string          `mapstructure:"postings-file"`
	OutputDir    string          `mapstructure:"output-dir"`
	Contacts     *ContactsConfig `mapstructure:"contacts"`
	Matching     *MatchingConfig `mapstructure:"matching"`
	AI           *AIConfig       `mapstructure:"ai"`
	Storage      *StorageConfig  `mapstructure:"storage"`
	Server       *ServerConfig   `mapstructure:"server"`
}

type ContactsConfig struct {
	APIKeyFile         string           `mapstructure:"api-key-file"`
	RetryNotFoundAfter time.Duration    `mapstructure:"retry-not-found-after"`
	BatchWorkers       int              `mapstructure:"batch-workers"`
	RateLimit          *RateLimitConfig `mapstructure:"rate-limit"`
}

type RateLimitConfig struct {
	MaxRequests int           `mapstructure:"max-requests"`
	Window      time.Duration `mapstructure:"window"`
}

type MatchingConfig struct {
	Threshold     int `mapstructure:"threshold"`
	TopK          int `mapstructure:"top-k"`
	MaxCandidates int `mapstructure:"max-candidates"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type StorageConfig struct {
	PostgresURL string `mapstructure:"postgres-url"`
	RedisURL    string `mapstructure:"redis-url"`
	ResumesFile string `mapstructure:"resumes-file"`
}

type ServerConfig struct {
	Port       int    `mapstructure:"port"`
	Schedule   string `mapstructure:"schedule"`
	RunOnStart bool   `mapstructure:"run-on-start"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recruit-pilot resolves decision-maker contacts and matches candidates for scraped job postings",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("contacts.api-key-file", "RAPIDAPI_KEY_FILE"); err != nil {
		log.Fatalf("binding RAPIDAPI_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruit-pilot.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// The version command works without a config file.
	if runCmd.CalledAs() == "" && serveCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return config, nil
}
