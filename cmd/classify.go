package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/topicguard/internal/relevance"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [query]",
	Short: "Check whether a query is about data structures and algorithms",
	Long: `Score a query against the DSA lexicon (and embeddings, when configured) and
print the verdict with its confidence, matched terms and a redirect suggestion.

Examples:
  topicguard classify "What is binary search?"
  topicguard classify --threshold 0.5 "How to cook pasta?"
  topicguard classify --json "Difference between BFS and DFS"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		query := strings.Join(args, " ")
		ctx := cmd.Context()

		clf, closeEnc, err := buildClassifier(ctx, settings, log.Logger)
		if err != nil {
			return err
		}
		defer closeEnc()

		result := clf.Classify(ctx, query, settings.Classifier.Threshold)

		if !result.IsDSARelated {
			store, err := openQueryLog(ctx, settings)
			if err != nil {
				log.Warn().Err(err).Msg("Query log unavailable")
			} else if store != nil {
				if err := store.RecordRejected(ctx, query, result); err != nil {
					log.Warn().Err(err).Msg("Failed to record rejected query")
				}
				_ = store.Close()
			}
		}

		if asJSON {
			return writeJSON(cmd.OutOrStdout(), result)
		}
		printResult(cmd.OutOrStdout(), query, result)
		return nil
	},
}

var topicsCmd = &cobra.Command{
	Use:   "topics [query]",
	Short: "Suggest DSA topics related to a query",
	Long: `Rank the reference DSA topics by embedding similarity to a query.
Requires an embedding provider (embedding.provider in the config or --provider).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("max")
		ctx := cmd.Context()

		clf, closeEnc, err := buildClassifier(ctx, settings, log.Logger)
		if err != nil {
			return err
		}
		defer closeEnc()

		out := cmd.OutOrStdout()
		if !clf.SemanticEnabled() {
			fmt.Fprintln(out, "Semantic matching is disabled. Set embedding.provider to gemini or openai to get topic suggestions.")
			return nil
		}

		topics := clf.SuggestRelatedTopics(ctx, strings.Join(args, " "), limit)
		if len(topics) == 0 {
			fmt.Fprintln(out, "No related DSA topics found.")
			return nil
		}
		for i, topic := range topics {
			fmt.Fprintf(out, "%d. %s\n", i+1, topic)
		}
		return nil
	},
}

var lexiconCmd = &cobra.Command{
	Use:   "lexicon [category]",
	Short: "List lexicon terms by category",
	Long: `List the DSA terms the classifier scores against.
Categories: data_structures, algorithms, complexity, techniques, problem_types.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		category := relevance.CategoryUnknown
		if len(args) == 1 {
			parsed, err := relevance.ParseCategory(args[0])
			if err != nil {
				return err
			}
			category = parsed
		}

		lex := relevance.DefaultLexicon()
		if settings.Classifier.LexiconFile != "" {
			loaded, err := relevance.LoadLexicon(settings.Classifier.LexiconFile)
			if err != nil {
				return err
			}
			lex = loaded
		}
		clf, err := relevance.New(cmd.Context(), lex, relevance.WithLogger(log.Logger))
		if err != nil {
			return err
		}

		printTopics(cmd.OutOrStdout(), clf.TopicsByCategory(category))
		return nil
	},
}

func printResult(w io.Writer, query string, r relevance.Result) {
	verdict := "no"
	if r.IsDSARelated {
		verdict = "yes"
	}
	fmt.Fprintf(w, "Query:       %s\n", query)
	fmt.Fprintf(w, "DSA related: %s (confidence %.2f)\n", verdict, r.Confidence)
	fmt.Fprintf(w, "Scores:      keyword %.2f, semantic %.2f\n", r.KeywordScore, r.SemanticScore)
	if r.PrimaryCategory.Known() {
		fmt.Fprintf(w, "Category:    %s\n", r.PrimaryCategory)
	}
	if len(r.MatchedKeywords) > 0 {
		fmt.Fprintf(w, "Matched:     %s\n", strings.Join(r.MatchedKeywords, ", "))
	}
	if r.OffTopic {
		fmt.Fprintln(w, "Off-topic:   yes")
	}
	fmt.Fprintf(w, "Reason:      %s\n", r.Reason)
	if r.Suggestion != "" {
		fmt.Fprintf(w, "\n%s\n", r.Suggestion)
	}
}

func printTopics(w io.Writer, topics map[relevance.Category][]string) {
	for _, category := range relevance.Categories {
		terms, ok := topics[category]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s (%d):\n", category, len(terms))
		for _, term := range terms {
			fmt.Fprintf(w, "  - %s\n", term)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(lexiconCmd)

	classifyCmd.Flags().Bool("json", false, "print the result as JSON")
	topicsCmd.Flags().IntP("max", "k", relevance.DefaultMaxSuggestions, "maximum number of topics")
}
