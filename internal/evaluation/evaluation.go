// Package evaluation measures classifier accuracy against labelled queries.
package evaluation

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bgdnvk/topicguard/internal/relevance"
)

// Case is a labelled query.
type Case struct {
	Query    string `yaml:"query" json:"query"`
	Expected bool   `yaml:"expected" json:"expected"`
}

type casesFile struct {
	Cases []Case `yaml:"cases"`
}

var defaultCases = []Case{
	{Query: "What is binary search?", Expected: true},
	{Query: "How does merge sort work?", Expected: true},
	{Query: "Explain dynamic programming", Expected: true},
	{Query: "What's the time complexity of quicksort?", Expected: true},
	{Query: "How to implement a stack using arrays?", Expected: true},
	{Query: "Difference between BFS and DFS", Expected: true},
	{Query: "What are the applications of hash tables?", Expected: true},

	{Query: "What's the weather today?", Expected: false},
	{Query: "How to cook pasta?", Expected: false},
	{Query: "Tell me about web development", Expected: false},
	{Query: "What is machine learning?", Expected: false},
	{Query: "How to learn Python?", Expected: false},
	{Query: "What are the latest movies?", Expected: false},

	{Query: "", Expected: false},
	{Query: "a", Expected: false},
	{Query: "Hello", Expected: false},
	{Query: "array sort tree", Expected: true},
}

// DefaultCases returns the built-in labelled query set.
func DefaultCases() []Case {
	return append([]Case(nil), defaultCases...)
}

// LoadCases reads a YAML file with a top-level "cases" list.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cases %s: %w", path, err)
	}
	var file casesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode cases %s: %w", path, err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("decode cases %s: no cases", path)
	}
	return file.Cases, nil
}

// Outcome is the classifier's verdict on one case.
type Outcome struct {
	Case   Case             `json:"case"`
	Result relevance.Result `json:"result"`
}

func (o Outcome) Correct() bool {
	return o.Result.IsDSARelated == o.Case.Expected
}

// Report summarises a run.
type Report struct {
	Threshold float64   `json:"threshold"`
	Outcomes  []Outcome `json:"outcomes"`
	Correct   int       `json:"correct"`
	Total     int       `json:"total"`
}

// Accuracy is the fraction of correct outcomes, 0 for an empty run.
func (r Report) Accuracy() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Total)
}

// Misses returns the outcomes that disagreed with their label.
func (r Report) Misses() []Outcome {
	var misses []Outcome
	for _, o := range r.Outcomes {
		if !o.Correct() {
			misses = append(misses, o)
		}
	}
	return misses
}

// Classifier is the part of relevance.Classifier a run needs.
type Classifier interface {
	Classify(ctx context.Context, query string, threshold float64) relevance.Result
}

// Run classifies every case at threshold. It stops early when ctx is done.
func Run(ctx context.Context, clf Classifier, cases []Case, threshold float64) (Report, error) {
	report := Report{Threshold: threshold, Outcomes: make([]Outcome, 0, len(cases))}
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := Outcome{Case: c, Result: clf.Classify(ctx, c.Query, threshold)}
		report.Outcomes = append(report.Outcomes, outcome)
		report.Total++
		if outcome.Correct() {
			report.Correct++
		}
	}
	return report, nil
}
