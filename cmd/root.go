package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	settings Settings
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "topicguard",
	Short: "Keep a DSA tutor on topic",
	Long: `Topicguard decides whether a question is about data structures and algorithms.
It scores queries against a DSA lexicon, optionally blends in embedding similarity,
and routes chat messages: answer, continue the current topic, reply to small talk,
or redirect the user back to DSA.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := LoadSettings(viper.GetViper())
		if err != nil {
			return err
		}
		settings = s
		setupLogging(s.Log, viper.GetBool("debug"))
		if used := viper.ConfigFileUsed(); used != "" {
			log.Debug().Str("path", used).Msg("Using config file")
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)
	setDefaults(viper.GetViper())

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.topicguard.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-format", "", "log output: console or json")
	rootCmd.PersistentFlags().Float64("threshold", 0, "minimum combined score for a DSA query (default from config, 0.3)")
	rootCmd.PersistentFlags().String("lexicon", "", "YAML lexicon file replacing the built-in one")
	rootCmd.PersistentFlags().String("provider", "", "embedding provider: none, gemini or openai")

	bindFlag("debug", "debug")
	bindFlag("log.format", "log-format")
	bindFlag("classifier.threshold", "threshold")
	bindFlag("classifier.lexicon_file", "lexicon")
	bindFlag("embedding.provider", "provider")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error binding flag %s: %v\n", flag, err)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".topicguard")
	}

	viper.SetEnvPrefix("TOPICGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}

// setupLogging installs the global zerolog logger. debug overrides level.
func setupLogging(s LogSettings, debug bool) {
	level, err := zerolog.ParseLevel(s.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if strings.EqualFold(s.Format, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
