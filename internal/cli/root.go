package cli

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/livecheck/internal/model"
)

// version is overridden at build time with -ldflags "-X ...cli.version=..."
var version = "dev"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "livecheck",
	Short: "livecheck - live fact checking of spoken statements",
	Long: `livecheck listens to a live audio stream, transcribes it, detects complete
factual statements and verifies each one against web evidence.

Progress and verdicts are streamed back over the same websocket. Every
verdict carries the sources it was based on and their credibility scores.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("livecheck %s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.livecheck/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig loads .env files, the config file and LIVECHECK_* variables
func initConfig() {
	envFile := os.Getenv("LIVECHECK_ENV")
	if envFile == "" {
		envFile = ".env"
	}
	// Missing files are fine
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(home + "/.livecheck")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// LIVECHECK_LLM_MODEL overrides llm.model
	viper.SetEnvPrefix("LIVECHECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := setDefaults(viper.GetViper(), model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error registering defaults: %v\n", err)
	}

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every key of cfg with viper so that environment
// variables can override keys absent from the config file
func setDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&tree); err != nil {
		return err
	}
	walkDefaults(v, "", tree)
	v.SetDefault("llm.api_key", "")
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig builds the effective configuration: defaults, config file,
// LIVECHECK_* variables and the provider API key variables
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	applyEnvKeys(cfg)

	if verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvKeys fills credentials from the conventional provider variables
func applyEnvKeys(cfg *model.Config) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "anthropic", "claude":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.LLM.SynthesisModel == model.DefaultConfig().LLM.SynthesisModel {
			cfg.LLM.SynthesisModel = ""
		}
	case "ollama":
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = baseURL
		}
		if cfg.LLM.SynthesisModel == model.DefaultConfig().LLM.SynthesisModel {
			cfg.LLM.SynthesisModel = ""
		}
	}
}

// openAIKey is the key used for Whisper transcription
func openAIKey(cfg *model.Config) string {
	if strings.EqualFold(cfg.LLM.Provider, "openai") && cfg.LLM.APIKey != "" {
		return cfg.LLM.APIKey
	}
	return os.Getenv("OPENAI_API_KEY")
}

// newLogger builds the process logger from the log section
func newLogger(cfg model.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = level
	}

	return zc.Build()
}
