package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/topicguard/internal/mcpserver"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the classifier as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the tools
classify_query, suggest_topics and list_topics. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		clf, closeEnc, err := buildClassifier(cmd.Context(), settings, log.Logger)
		if err != nil {
			return err
		}
		defer closeEnc()

		srv := mcpserver.New(clf,
			mcpserver.WithThreshold(settings.Classifier.Threshold),
			mcpserver.WithMaxSuggestions(settings.Classifier.MaxSuggestions),
			mcpserver.WithVersion(Version),
			mcpserver.WithLogger(log.Logger),
		)
		log.Info().Bool("semantic", clf.SemanticEnabled()).Msg("Serving MCP on stdio")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
