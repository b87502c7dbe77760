package conversation

type cannedReply struct {
	phrase string
	reply  string
}

// smallTalkReplies are checked in order; the first phrase found wins.
var smallTalkReplies = []cannedReply{
	{"hello", "Hello! I'm your DSA learning assistant. How can I help you today?"},
	{"hi", "Hi there! Ready to dive into some data structures and algorithms?"},
	{"how are you", "I'm doing great and ready to help you learn DSA! What would you like to explore?"},
	{"thanks", "You're welcome! Feel free to ask me anything about data structures and algorithms."},
	{"bye", "Goodbye! Keep practicing those algorithms. See you next time!"},
	{"who are you", "I'm your DSA tutor! I can help you learn data structures and algorithms and point you at related topics."},
	{"what can you do", "I can explain DSA concepts, compare algorithms and suggest related topics. Just ask me about any topic!"},
	{"help", "I'm here to help! You can ask me about specific DSA topics like arrays, trees or sorting algorithms."},
}

const defaultSmallTalkReply = "Hello! I'm your DSA learning assistant. Feel free to ask me about any data structures or algorithms topic!"

// SmallTalkReply returns a canned answer for a small-talk message.
func SmallTalkReply(query string) string {
	text := wordText(query)
	for _, r := range smallTalkReplies {
		if containsPhrase(text, r.phrase) {
			return r.reply
		}
	}
	return defaultSmallTalkReply
}
