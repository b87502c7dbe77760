package relevance

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidLexicon is returned when a lexicon bundle cannot drive scoring.
var ErrInvalidLexicon = errors.New("invalid lexicon")

// Lexicon is the static term bundle the classifier is built from.
type Lexicon struct {
	Categories map[Category][]string
	OffTopic   []string
}

// lexiconFile is the on-disk YAML shape of a Lexicon.
type lexiconFile struct {
	Categories map[string][]string `yaml:"categories"`
	OffTopic   []string            `yaml:"off_topic"`
}

var (
	defaultCategoryTerms = map[Category][]string{
		CategoryDataStructures: {
			"arrays", "array", "list", "linked list", "linkedlist", "stack", "queue", "deque",
			"tree", "binary tree", "bst", "binary search tree", "heap", "priority queue",
			"hash table", "hashtable", "hashmap", "dictionary", "set", "graph", "trie",
			"prefix tree", "segment tree", "fenwick tree", "binary indexed tree", "union find",
			"disjoint set", "avl tree", "red black tree", "b-tree", "sparse table",
		},
		CategoryAlgorithms: {
			"sorting", "searching", "binary search", "linear search", "merge sort", "quick sort",
			"heap sort", "bubble sort", "insertion sort", "selection sort", "radix sort",
			"counting sort", "bucket sort", "dfs", "bfs", "depth first search", "breadth first search",
			"dijkstra", "bellman ford", "floyd warshall", "kruskal", "prim", "topological sort",
			"dynamic programming", "dp", "greedy", "divide and conquer", "backtracking",
			"recursion", "memoization", "tabulation",
		},
		CategoryComplexity: {
			"time complexity", "space complexity", "big o", "big omega", "big theta",
			"asymptotic notation", "o(n)", "o(log n)", "o(n log n)", "o(n^2)", "o(1)",
			"constant time", "linear time", "logarithmic time", "quadratic time",
			"exponential time", "polynomial time", "np complete", "np hard",
		},
		CategoryTechniques: {
			"sliding window", "two pointers", "fast slow pointers", "cyclic sort",
			"merge intervals", "in place reversal", "tree traversal", "graph traversal",
			"bit manipulation", "mathematical", "string manipulation", "pattern matching",
			"kmp", "rabin karp", "z algorithm", "manacher", "suffix array", "lcs",
			"longest common subsequence", "edit distance", "knapsack", "coin change",
			"fibonacci", "factorial", "permutation", "combination", "subset",
		},
		CategoryProblemTypes: {
			"array problems", "string problems", "tree problems", "graph problems",
			"matrix problems", "linked list problems", "stack problems", "queue problems",
			"heap problems", "hash problems", "sorting problems", "searching problems",
			"dp problems", "greedy problems", "backtracking problems", "recursion problems",
			"mathematical problems", "bit manipulation problems", "two sum", "three sum",
			"palindrome", "anagram", "substring", "subarray", "subsequence",
		},
	}

	defaultOffTopicTerms = []string{
		"web development", "frontend", "backend", "database", "sql", "html", "css",
		"javascript", "python", "java", "c++", "programming language", "framework",
		"library", "api", "rest", "json", "xml", "http", "server", "client",
		"machine learning", "ai", "artificial intelligence", "neural network",
		"deep learning", "nlp", "computer vision", "data science", "statistics",
		"weather", "news", "sports", "entertainment", "cooking", "travel",
		"health", "fitness", "finance", "business", "politics", "history",
		"geography", "science", "physics", "chemistry", "biology", "math",
		"literature", "art", "music", "movie", "book", "game",
	}

	defaultReferenceTopics = []string{
		"arrays and dynamic arrays",
		"linked lists and pointers",
		"stacks and queues",
		"trees and binary search trees",
		"heaps and priority queues",
		"hash tables and dictionaries",
		"graphs and graph algorithms",
		"sorting and searching algorithms",
		"dynamic programming",
		"greedy algorithms",
		"divide and conquer",
		"backtracking and recursion",
		"bit manipulation",
		"string algorithms",
		"mathematical algorithms",
		"time and space complexity analysis",
	}
)

// DefaultLexicon returns a private copy of the built-in DSA lexicon.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Categories: cloneCategoryTerms(defaultCategoryTerms),
		OffTopic:   slices.Clone(defaultOffTopicTerms),
	}
}

// DefaultReferenceTopics returns the canonical phrases used as semantic anchors.
func DefaultReferenceTopics() []string {
	return slices.Clone(defaultReferenceTopics)
}

// LoadLexicon reads a YAML lexicon bundle from path. The bundle is validated
// before it is returned.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon %s: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes and validates a YAML lexicon bundle.
func ParseLexicon(data []byte) (Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Lexicon{}, fmt.Errorf("decode lexicon: %w", err)
	}

	lex := Lexicon{
		Categories: make(map[Category][]string, len(file.Categories)),
		OffTopic:   file.OffTopic,
	}
	for name, terms := range file.Categories {
		category, err := ParseCategory(name)
		if err != nil || !category.Known() {
			return Lexicon{}, fmt.Errorf("%w: unexpected category %q", ErrInvalidLexicon, name)
		}
		lex.Categories[category] = append(lex.Categories[category], terms...)
	}
	if err := lex.Validate(); err != nil {
		return Lexicon{}, err
	}
	return lex, nil
}

// Validate rejects bundles that would silently score every query as zero:
// missing or empty categories, an empty off-topic set, blank or non
// lower-case terms.
func (l Lexicon) Validate() error {
	if len(l.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidLexicon)
	}
	for _, category := range Categories {
		terms := l.Categories[category]
		if len(terms) == 0 {
			return fmt.Errorf("%w: category %s is empty", ErrInvalidLexicon, category)
		}
		if err := validateTerms(category.String(), terms); err != nil {
			return err
		}
	}
	for category := range l.Categories {
		if !category.Known() {
			return fmt.Errorf("%w: unexpected category %s", ErrInvalidLexicon, category)
		}
	}
	if len(l.OffTopic) == 0 {
		return fmt.Errorf("%w: off-topic set is empty", ErrInvalidLexicon)
	}
	return validateTerms("off_topic", l.OffTopic)
}

func validateTerms(set string, terms []string) error {
	for _, term := range terms {
		if strings.TrimSpace(term) == "" {
			return fmt.Errorf("%w: blank term in %s", ErrInvalidLexicon, set)
		}
		if term != strings.ToLower(term) {
			return fmt.Errorf("%w: term %q in %s is not lower-case", ErrInvalidLexicon, term, set)
		}
	}
	return nil
}

func (l Lexicon) clone() Lexicon {
	return Lexicon{
		Categories: cloneCategoryTerms(l.Categories),
		OffTopic:   slices.Clone(l.OffTopic),
	}
}

func cloneCategoryTerms(src map[Category][]string) map[Category][]string {
	dst := make(map[Category][]string, len(src))
	for category, terms := range src {
		dst[category] = slices.Clone(terms)
	}
	return dst
}
