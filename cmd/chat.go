package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bgdnvk/topicguard/internal/conversation"
	"github.com/bgdnvk/topicguard/internal/gate"
)

const redirectFallback = "I can only help with data structures and algorithms. Try asking about arrays, trees, graphs or sorting."

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Route chat messages through the topic gate",
	Long: `Read messages from stdin, one per line, and show how a DSA tutor would treat
each of them: answer, continue the current topic, reply to small talk, or
redirect. Type "exit" or "quit" to leave.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		clf, closeEnc, err := buildClassifier(ctx, settings, log.Logger)
		if err != nil {
			return err
		}
		defer closeEnc()

		store, err := openQueryLog(ctx, settings)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
		}

		g := buildGate(clf, store, settings, log.Logger)
		mem := conversation.NewMemory(settings.Gate.MaxHistory)
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), g, mem)
	},
}

// runChat evaluates each input line against the conversation so far and
// writes the reply. It returns when in is exhausted, on exit, or when ctx ends.
func runChat(ctx context.Context, in io.Reader, out io.Writer, g *gate.Gate, mem *conversation.Memory) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			fmt.Fprint(out, "> ")
			continue
		case "exit", "quit":
			return nil
		}

		decision := g.Evaluate(ctx, line, mem.Recent(0))
		now := time.Now()
		mem.Add(conversation.Turn{
			Role:     conversation.RoleUser,
			Content:  line,
			At:       now,
			Relevant: decision.Result.IsDSARelated,
		})

		reply := replyFor(decision, line)
		mem.Add(conversation.Turn{Role: conversation.RoleAssistant, Content: reply, At: now})
		fmt.Fprintf(out, "[%s] %s\n> ", decision.Action, reply)
	}
	return scanner.Err()
}

func replyFor(d gate.Decision, query string) string {
	switch d.Action {
	case gate.ActionAnswer:
		reply := fmt.Sprintf("On topic: %s (confidence %.2f).", d.Result.PrimaryCategory, d.Result.Confidence)
		if len(d.Related) > 0 {
			reply += " Related topics: " + strings.Join(d.Related, ", ") + "."
		}
		return reply
	case gate.ActionContinue:
		return followUpReply(d)
	case gate.ActionSmallTalk:
		return conversation.SmallTalkReply(query)
	}
	if d.Result.Suggestion != "" {
		return d.Result.Suggestion
	}
	return redirectFallback
}

func followUpReply(d gate.Decision) string {
	switch {
	case d.HasIntent(conversation.IntentNoNeedHelp):
		return "Alright. Ask whenever you want to continue with DSA."
	case d.HasIntent(conversation.IntentNextTopic), d.HasIntent(conversation.IntentCompleteTopic):
		return "Great, let's move on to the next topic."
	case d.HasIntent(conversation.IntentNeedsMoreExplanation):
		return "Sure, let's go through that again in more detail."
	case d.HasIntent(conversation.IntentConfirmation):
		return "Yes, that's right. Want to try a practice problem?"
	}
	return "Glad that helps. Shall we continue with the current topic?"
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
