package relevance

import (
	"fmt"
	"strings"
)

const (
	redirectPreamble    = "I can only help with Data Structures and Algorithms (DSA) related questions. "
	maxEchoedKeywords   = 3
	topicMenuSuggestion = redirectPreamble + "Please ask questions about topics like:\n" +
		"• Data Structures (arrays, linked lists, trees, graphs, stacks, queues)\n" +
		"• Algorithms (sorting, searching, dynamic programming, greedy algorithms)\n" +
		"• Problem-solving techniques and complexity analysis\n" +
		"• Coding interview preparation and DSA concepts"
)

// redirectSuggestion builds the text shown for rejected queries. Queries that
// touched the lexicon get their first few matches echoed back.
func redirectSuggestion(matched []string) string {
	if len(matched) == 0 {
		return topicMenuSuggestion
	}
	echoed := matched[:min(len(matched), maxEchoedKeywords)]
	return fmt.Sprintf("%sI noticed you mentioned '%s' which relates to DSA. "+
		"Please rephrase your question to focus on DSA concepts like algorithms, "+
		"data structures, time/space complexity, or problem-solving techniques.",
		redirectPreamble, strings.Join(echoed, ", "))
}
