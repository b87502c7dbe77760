package conversation

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Intent is a learning-flow signal found in a chat message.
type Intent int

const (
	IntentNextTopic Intent = iota + 1
	IntentConfirmsUnderstanding
	IntentNeedsMoreExplanation
	IntentCompleteTopic
	IntentSatisfiedWithTopic
	IntentConfirmation
	IntentNoNeedHelp
)

// allIntents is the reporting order.
var allIntents = []Intent{
	IntentNextTopic,
	IntentConfirmsUnderstanding,
	IntentNeedsMoreExplanation,
	IntentCompleteTopic,
	IntentSatisfiedWithTopic,
	IntentConfirmation,
	IntentNoNeedHelp,
}

var intentNames = map[Intent]string{
	IntentNextTopic:             "wants_next_topic",
	IntentConfirmsUnderstanding: "confirms_understanding",
	IntentNeedsMoreExplanation:  "needs_more_explanation",
	IntentCompleteTopic:         "wants_to_complete_topic",
	IntentSatisfiedWithTopic:    "satisfied_with_topic",
	IntentConfirmation:          "wants_confirmation",
	IntentNoNeedHelp:            "says_no_need_help",
}

func (i Intent) String() string {
	if name, ok := intentNames[i]; ok {
		return name
	}
	return "unknown"
}

// Intents is the set of intents detected in one message, in reporting order.
type Intents []Intent

func (in Intents) Any() bool {
	return len(in) > 0
}

func (in Intents) Has(intent Intent) bool {
	return slices.Contains(in, intent)
}

func (in Intents) Names() []string {
	names := make([]string, len(in))
	for i, intent := range in {
		names[i] = intent.String()
	}
	return names
}

// IntentPatterns maps each intent to the phrases that signal it.
type IntentPatterns map[Intent][]string

var (
	defaultIntentPatterns = IntentPatterns{
		IntentNextTopic: {
			"next topic", "next step", "what's next", "continue", "move on", "proceed",
			"go to next", "advance", "ready for next", "next lesson",
		},
		IntentConfirmsUnderstanding: {
			"yes", "got it", "understand", "clear", "makes sense", "i know", "learned",
			"understood", "ok", "okay", "right", "correct", "good", "thanks",
			"i understand this topic", "i get it",
		},
		IntentNeedsMoreExplanation: {
			"no", "don't understand", "confused", "explain more", "not clear",
			"can you explain", "i don't get it", "more details", "elaborate",
			"need help", "still confused", "more examples", "i need more explanation",
		},
		IntentCompleteTopic: {
			"i'm done", "completed", "finished", "mastered", "ready to move on",
			"i know this now", "learned this", "understand this topic",
		},
		IntentSatisfiedWithTopic: {
			"satisfied", "good enough", "ready", "confident", "comfortable",
			"i am satisfied", "add to profile", "add to my profile",
			"i am satisfied with this topic", "ready to add it to my profile",
		},
		IntentConfirmation: {
			"yes", "yeah", "yep", "sure", "of course", "definitely", "absolutely",
		},
		IntentNoNeedHelp: {
			"no", "nope", "not really", "i'm good", "no thanks", "no need",
		},
	}

	defaultSmallTalk = []string{
		"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
		"how are you", "what's up", "thanks", "thank you", "bye", "goodbye",
		"nice", "cool", "awesome", "great", "who are you", "what can you do",
	}

	defaultGreetings = []string{"hello", "hi", "hey", "thanks", "bye"}

	// defaultStandalonePhrases count as small talk at any message length.
	defaultStandalonePhrases = []string{"how are you", "what's up", "who are you", "what can you do"}

	defaultDomainIndicators = []string{
		"learn", "algorithm", "data structure", "array", "tree", "graph", "sort", "search",
		"stack", "queue", "heap", "hash", "linked list", "binary", "dynamic programming",
		"recursion", "complexity", "big o", "time complexity", "space complexity",
		"what is", "what are", "how to", "explain", "understand", "implement", "code",
		"example", "tutorial", "difference between", "comparison", "vs", "versus",
	}
)

const maxGreetingRunes = 20

// Detector recognises learning-flow intents and small talk. Phrases match on
// word boundaries of the lower-cased message.
type Detector struct {
	Patterns          IntentPatterns
	SmallTalk         []string
	Greetings         []string
	StandalonePhrases []string
	DomainIndicators  []string
}

func NewDetector() *Detector {
	patterns := make(IntentPatterns, len(defaultIntentPatterns))
	for intent, phrases := range defaultIntentPatterns {
		patterns[intent] = slices.Clone(phrases)
	}
	return &Detector{
		Patterns:          patterns,
		SmallTalk:         slices.Clone(defaultSmallTalk),
		Greetings:         slices.Clone(defaultGreetings),
		StandalonePhrases: slices.Clone(defaultStandalonePhrases),
		DomainIndicators:  slices.Clone(defaultDomainIndicators),
	}
}

var defaultDetector = NewDetector()

// DetectIntents runs the default Detector.
func DetectIntents(query string) Intents {
	return defaultDetector.Detect(query)
}

// IsSmallTalk runs the default Detector.
func IsSmallTalk(query string) bool {
	return defaultDetector.IsSmallTalk(query)
}

func (d *Detector) Detect(query string) Intents {
	text := wordText(query)
	var found Intents
	for _, intent := range allIntents {
		if containsAny(text, d.Patterns[intent]) {
			found = append(found, intent)
		}
	}
	return found
}

// IsSmallTalk reports greetings and chit-chat. Short messages containing a
// greeting qualify, as do a few standalone phrases at any length. Any domain
// indicator overrides both.
func (d *Detector) IsSmallTalk(query string) bool {
	text := wordText(query)
	if containsAny(text, d.DomainIndicators) {
		return false
	}
	short := len([]rune(strings.TrimSpace(query))) <= maxGreetingRunes
	for _, phrase := range d.SmallTalk {
		if !containsPhrase(text, phrase) {
			continue
		}
		if short && containsAny(text, d.Greetings) {
			return true
		}
		if slices.Contains(d.StandalonePhrases, phrase) {
			return true
		}
	}
	return false
}

// wordText lower-cases s, keeps letters, digits and apostrophes, and pads the
// single-spaced result so phrases can be matched as " phrase ".
func wordText(s string) string {
	s = strings.ReplaceAll(cases.Lower(language.English).String(s), "’", "'")
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			return r
		}
		return ' '
	}, s)
	return " " + strings.Join(strings.Fields(s), " ") + " "
}

func containsPhrase(text, phrase string) bool {
	return strings.Contains(text, " "+phrase+" ")
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if containsPhrase(text, phrase) {
			return true
		}
	}
	return false
}
