package gate

import (
	"github.com/bgdnvk/topicguard/internal/conversation"
	"github.com/bgdnvk/topicguard/internal/relevance"
)

// input is everything a rule may look at.
type input struct {
	query     string
	result    relevance.Result
	intents   conversation.Intents
	smallTalk bool
	anchored  bool
}

type rule struct {
	id     string
	name   string
	action Action
	match  func(input) bool
}

// defaultRules are evaluated in order; the last rule always matches.
func defaultRules() []rule {
	return []rule{
		{
			id:     "dsa_query",
			name:   "Query classified as DSA related",
			action: ActionAnswer,
			match:  func(in input) bool { return in.result.IsDSARelated },
		},
		{
			id:     "learning_follow_up",
			name:   "Learning-flow reply inside a DSA conversation",
			action: ActionContinue,
			match:  func(in input) bool { return in.anchored && in.intents.Any() },
		},
		{
			id:     "small_talk",
			name:   "Greeting or chit-chat",
			action: ActionSmallTalk,
			match:  func(in input) bool { return in.smallTalk },
		},
		{
			id:     "off_domain",
			name:   "Everything else",
			action: ActionRedirect,
			match:  func(input) bool { return true },
		},
	}
}
