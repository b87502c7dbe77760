package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/bgdnvk/topicguard/internal/embedding"
)

const defaultConfig = `# Topicguard Configuration
# Environment variables override these keys: TOPICGUARD_CLASSIFIER_THRESHOLD, ...

classifier:
  threshold: 0.3            # minimum combined score for a DSA query
  max_suggestions: 5        # related topics returned for DSA queries
  lexicon_file: ""          # YAML lexicon replacing the built-in one

# Optional semantic stage. Without a provider the classifier is keyword-only.
embedding:
  provider: none            # none | gemini | openai
  model: ""                 # provider default when empty
  api_key: ""               # literal key or the NAME of an env var holding it
  base_url: ""              # OpenAI-compatible endpoint, e.g. a local server
  batch_concurrency: 4
  cache:
    driver: memory          # none | memory | sqlite | redis
    path: ~/.topicguard/embeddings.db
    redis_addr: localhost:6379
    redis_ttl: 720h

gate:
  lookback: 3               # previous user turns that can anchor a follow-up
  max_history: 20           # turns kept by "topicguard chat"

querylog:
  enabled: false            # record redirected queries for review
  path: ~/.topicguard/rejected.db

log:
  level: info
  format: console           # console | json
`

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage topicguard configuration",
	Long:  `Create and inspect the topicguard configuration file.`,
	// config must work even when the current file does not validate.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Create a default configuration file in your home directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := configFilePath()
		if err != nil {
			return err
		}

		created, err := writeDefaultConfig(configPath)
		if err != nil {
			return err
		}
		if !created {
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file already exists at %s\n", configPath)
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at %s\n", configPath)
		fmt.Fprintln(cmd.OutOrStdout(), "Set embedding.provider and an API key to enable semantic matching.")
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the configuration file, or with --resolved the effective settings
after defaults, the file, environment variables and flags are merged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _ := cmd.Flags().GetBool("resolved")
		if resolved {
			s, err := LoadSettings(viper.GetViper())
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), s)
		}

		configPath, err := configFilePath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			fmt.Fprintln(cmd.OutOrStdout(), "No configuration file found. Run 'topicguard config init' to create one.")
			return nil
		}

		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration file: %s\n\n", configPath)
		fmt.Fprint(cmd.OutOrStdout(), string(content))
		return nil
	},
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error finding home directory: %w", err)
	}
	return filepath.Join(home, ".topicguard.yaml"), nil
}

// writeDefaultConfig reports false when a file already exists at path.
func writeDefaultConfig(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("error creating config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o600); err != nil {
		return false, fmt.Errorf("error creating config file: %w", err)
	}
	return true, nil
}

// writeSettings prints s as YAML with the API key masked.
func writeSettings(w io.Writer, s Settings) error {
	if s.Embedding.APIKey != "" && !embedding.LooksLikeEnvVarName(s.Embedding.APIKey) {
		s.Embedding.APIKey = "********"
	}
	view := map[string]any{
		"classifier": map[string]any{
			"threshold":       s.Classifier.Threshold,
			"max_suggestions": s.Classifier.MaxSuggestions,
			"lexicon_file":    s.Classifier.LexiconFile,
		},
		"embedding": map[string]any{
			"provider":          s.Embedding.Provider,
			"model":             s.Embedding.Model,
			"api_key":           s.Embedding.APIKey,
			"base_url":          s.Embedding.BaseURL,
			"batch_concurrency": s.Embedding.BatchConcurrency,
			"cache": map[string]any{
				"driver":     s.Embedding.Cache.Driver,
				"path":       s.Embedding.Cache.Path,
				"redis_addr": s.Embedding.Cache.RedisAddr,
				"redis_ttl":  s.Embedding.Cache.RedisTTL.String(),
			},
		},
		"gate": map[string]any{
			"lookback":    s.Gate.Lookback,
			"max_history": s.Gate.MaxHistory,
		},
		"querylog": map[string]any{
			"enabled": s.QueryLog.Enabled,
			"path":    s.QueryLog.Path,
		},
		"log": map[string]any{
			"level":  s.Log.Level,
			"format": s.Log.Format,
		},
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configShowCmd.Flags().Bool("resolved", false, "print the effective settings instead of the file")
}
