// ABOUTME: Keyword-driven agent type selection for the dispatch hot path.
// ABOUTME: Pure and deterministic: substring scoring, whole-word bonus, priority tie-break.

package selector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/CrossGen-ai/chatSG-sub001/internal/agent"
)

const (
	substringScore = 1.0
	wholeWordBonus = 0.5
)

// Result is the outcome of one selection. Created per dispatch call, never
// persisted.
type Result struct {
	AgentType  agent.Type
	Confidence float64
	Scores     map[agent.Type]float64
}

// trigger is one precompiled term: lowercase substring plus a whole-word
// matcher built at construction so Select stays off the regexp compiler.
type trigger struct {
	term string
	word *regexp.Regexp
}

// Selector scores inputs against per-type trigger terms. It performs no I/O
// and is safe for concurrent use: all state is immutable after New.
type Selector struct {
	triggers    map[agent.Type][]trigger
	priority    []agent.Type
	defaultType agent.Type
}

// New builds a selector from a keyword pack. The pack's priority order drives
// tie-breaks; types carrying triggers but missing from the priority list are
// appended in lexical order so ties stay deterministic.
func New(pack *Pack) (*Selector, error) {
	if pack.Default == "" {
		return nil, fmt.Errorf("keyword pack has no default agent type")
	}

	triggers := make(map[agent.Type][]trigger, len(pack.Triggers))
	for agentType, terms := range pack.Triggers {
		compiled := make([]trigger, 0, len(terms))
		for _, term := range terms {
			lower := strings.ToLower(term)
			if lower == "" {
				continue
			}
			word, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(lower) + `\b`)
			if err != nil {
				return nil, fmt.Errorf("compiling trigger %q for %q: %w", term, agentType, err)
			}
			compiled = append(compiled, trigger{term: lower, word: word})
		}
		triggers[agent.Type(agentType)] = compiled
	}

	priority := make([]agent.Type, 0, len(triggers))
	seen := make(map[agent.Type]bool, len(triggers))
	for _, agentType := range pack.Priority {
		t := agent.Type(agentType)
		if !seen[t] {
			priority = append(priority, t)
			seen[t] = true
		}
	}
	var rest []agent.Type
	for t := range triggers {
		if !seen[t] {
			rest = append(rest, t)
		}
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i] < rest[j] })
	priority = append(priority, rest...)

	return &Selector{
		triggers:    triggers,
		priority:    priority,
		defaultType: agent.Type(pack.Default),
	}, nil
}

// Select scores the input against every configured type and returns the
// winner with a normalized confidence. Empty or unmatched input falls back to
// the default type at confidence zero.
func (s *Selector) Select(input string) Result {
	scores := make(map[agent.Type]float64, len(s.triggers))
	lower := strings.ToLower(input)

	var total, max float64
	for agentType, triggers := range s.triggers {
		var score float64
		for _, tr := range triggers {
			if !strings.Contains(lower, tr.term) {
				continue
			}
			score += substringScore
			if tr.word.MatchString(input) {
				score += wholeWordBonus
			}
		}
		if score > 0 {
			scores[agentType] = score
			total += score
			if score > max {
				max = score
			}
		}
	}

	if max == 0 {
		return Result{AgentType: s.defaultType, Confidence: 0, Scores: scores}
	}

	// Equal top scores resolve to the earliest type in the configured
	// priority order, never map iteration order.
	var winner agent.Type
	for _, agentType := range s.priority {
		if scores[agentType] == max {
			winner = agentType
			break
		}
	}

	confidence := max / total
	if confidence > 1 {
		confidence = 1
	}
	return Result{AgentType: winner, Confidence: confidence, Scores: scores}
}

// DefaultType returns the configured fallback agent type.
func (s *Selector) DefaultType() agent.Type {
	return s.defaultType
}

// Types returns every agent type the selector knows about, priority first.
func (s *Selector) Types() []agent.Type {
	out := make([]agent.Type, len(s.priority))
	copy(out, s.priority)
	return out
}
