package guard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akolanti/DocGuard/internal/config"
	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/internal/rag/lexical"
)

// RulesVersion tags the active rule table. Bump it when a rule is added so
// logged decisions stay attributable to the table that produced them.
const RulesVersion = "guard-rules-v1"

type Options struct {
	MinCombinedScore float64
	MinKeywordHits   int
}

func DefaultOptions() Options {
	return Options{
		MinCombinedScore: config.GuardMinCombinedScore,
		MinKeywordHits:   config.GuardMinKeywordHits,
	}
}

// Guard is pure decision logic: it consumes (query, candidates) before
// generation and (answer, candidates) after, and never calls a model itself.
type Guard struct {
	opts Options
}

func New(opts Options) *Guard {
	return &Guard{opts: opts}
}

type preRule struct {
	name  string
	check func(g *Guard, query string, candidates []docModel.RetrievalCandidate) (reason docModel.ReasonCode, evidence string, ok bool)
}

// preRules run in order and fail fast on the first violated condition.
var preRules = []preRule{
	{"candidates-exist", func(g *Guard, _ string, candidates []docModel.RetrievalCandidate) (docModel.ReasonCode, string, bool) {
		if len(candidates) == 0 {
			return docModel.ReasonNoResults, "no retrieval candidates", false
		}
		return "", "", true
	}},
	{"top-score-threshold", func(g *Guard, _ string, candidates []docModel.RetrievalCandidate) (docModel.ReasonCode, string, bool) {
		if top := candidates[0].CombinedScore; top < g.opts.MinCombinedScore {
			return docModel.ReasonLowScore, fmt.Sprintf("top combined score %.3f below %.3f", top, g.opts.MinCombinedScore), false
		}
		return "", "", true
	}},
	{"keyword-overlap", func(g *Guard, query string, candidates []docModel.RetrievalCandidate) (docModel.ReasonCode, string, bool) {
		keywords := lexical.Keywords(query)
		if len(keywords) == 0 {
			return "", "", true
		}
		present := make(map[string]bool)
		for _, c := range candidates {
			for _, tok := range lexical.Tokenize(c.Chunk.Content) {
				present[tok] = true
			}
		}
		hits := 0
		for _, kw := range keywords {
			if present[kw] {
				hits++
			}
		}
		if hits < g.opts.MinKeywordHits {
			return docModel.ReasonNoKeywordOverlap, fmt.Sprintf("%d of %d query terms found in candidates", hits, len(keywords)), false
		}
		return "", "", true
	}},
	{"source-metadata", func(g *Guard, _ string, candidates []docModel.RetrievalCandidate) (docModel.ReasonCode, string, bool) {
		for _, c := range candidates {
			if c.Chunk.DocName == "" || c.Chunk.PageOrSheet == "" {
				return docModel.ReasonMissingSource, fmt.Sprintf("chunk %s has no traceable source", c.Chunk.Id), false
			}
		}
		return "", "", true
	}},
}

// PreCheck gates generation. A FAIL decision means the completion provider
// must not be invoked for this query.
func (g *Guard) PreCheck(query string, candidates []docModel.RetrievalCandidate) docModel.GuardDecision {
	for _, rule := range preRules {
		if reason, evidence, ok := rule.check(g, query, candidates); !ok {
			return docModel.GuardDecision{
				Stage:    docModel.StagePre,
				Outcome:  docModel.OutcomeFail,
				Reason:   reason,
				Evidence: evidence,
			}
		}
	}
	return docModel.GuardDecision{Stage: docModel.StagePre, Outcome: docModel.OutcomePass}
}

// citation accepts the prompt-mandated form [Source: <document> | Page <n>]
// and tolerates minor model drift inside the brackets.
var citationPattern = regexp.MustCompile(`(?i)\[source[^\]]*\]`)

type postRule struct {
	name    string
	reason  docModel.ReasonCode
	matches func(answer string) (string, bool)
}

var hedgingPhrases = []string{
	"probably", "likely", "i think", "i believe", "i assume", "i guess",
	"it seems", "it appears", "might be", "may be", "could be", "possibly",
	"perhaps", "presumably", "my best guess",
}

var compliancePhrases = []string{
	"complies with", "compliant with", "in compliance with", "is safe",
	"safe to use", "safe to proceed", "approved for use", "is certified",
	"conforms to", "meets the standard", "meets all requirements",
	"no safety concerns",
}

var outsideKnowledgePhrases = []string{
	"based on my knowledge", "based on my training", "general knowledge",
	"as an ai", "in my experience", "typically", "usually", "in general",
	"common practice", "industry standard practice", "it is well known",
}

// postRules is the fixed rule table for generated answers. New rules are
// added here, never spliced into the evaluation flow.
var postRules = []postRule{
	{"require-citation", docModel.ReasonMissingCitation, func(answer string) (string, bool) {
		if !citationPattern.MatchString(answer) {
			return "no [Source: ...] citation", true
		}
		return "", false
	}},
	{"forbid-hedging", docModel.ReasonForbiddenLang, phraseMatcher(hedgingPhrases)},
	{"forbid-compliance-claims", docModel.ReasonComplianceClaim, phraseMatcher(compliancePhrases)},
	{"forbid-outside-knowledge", docModel.ReasonOutsideKnowledge, phraseMatcher(outsideKnowledgePhrases)},
}

// phraseMatcher reports the first phrase found on a word boundary,
// case-insensitively.
func phraseMatcher(phrases []string) func(string) (string, bool) {
	pattern := regexp.MustCompile(`(?i)\b(` + strings.Join(escapeAll(phrases), "|") + `)\b`)
	return func(answer string) (string, bool) {
		if m := pattern.FindString(answer); m != "" {
			return strings.ToLower(m), true
		}
		return "", false
	}
}

func escapeAll(phrases []string) []string {
	out := make([]string, len(phrases))
	for i, p := range phrases {
		out[i] = regexp.QuoteMeta(p)
	}
	return out
}

// PostCheck gates the generated answer. A FAIL decision means the caller
// must discard the answer and substitute the fallback message.
func (g *Guard) PostCheck(answer string, candidates []docModel.RetrievalCandidate) docModel.GuardDecision {
	for _, rule := range postRules {
		if evidence, bad := rule.matches(answer); bad {
			return docModel.GuardDecision{
				Stage:    docModel.StagePost,
				Outcome:  docModel.OutcomeFail,
				Reason:   rule.reason,
				Evidence: evidence,
			}
		}
	}
	return docModel.GuardDecision{Stage: docModel.StagePost, Outcome: docModel.OutcomePass}
}
