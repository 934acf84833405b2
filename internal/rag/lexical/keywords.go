package lexical

// stopWords filtered out of significant-term extraction. English function
// words only; domain terms and Turkish words always pass through.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "being": true, "have": true,
	"has": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "shall": true, "can": true, "need": true,
	"dare": true, "ought": true, "used": true, "to": true, "of": true,
	"in": true, "for": true, "on": true, "with": true, "at": true, "by": true,
	"from": true, "as": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true,
	"between": true, "under": true, "again": true, "further": true,
	"then": true, "once": true, "here": true, "there": true, "when": true,
	"where": true, "why": true, "how": true, "all": true, "each": true,
	"few": true, "more": true, "most": true, "other": true, "some": true,
	"such": true, "no": true, "nor": true, "not": true, "only": true,
	"own": true, "same": true, "so": true, "than": true, "too": true,
	"very": true, "just": true, "and": true, "but": true, "if": true,
	"or": true, "because": true, "until": true, "while": true, "what": true,
	"which": true, "who": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "me": true, "my": true, "myself": true,
	"we": true, "our": true, "ours": true, "ourselves": true, "you": true,
	"your": true, "yours": true, "yourself": true, "he": true, "him": true,
	"his": true, "himself": true, "she": true, "her": true, "hers": true,
	"herself": true, "it": true, "its": true, "itself": true, "they": true,
	"them": true, "their": true, "theirs": true, "themselves": true,
}

// Keywords extracts the significant terms of a text: tokenized, stop words
// removed, tokens shorter than three characters dropped.
func Keywords(text string) []string {
	var out []string
	for _, t := range Tokenize(text) {
		if len(t) > 2 && !stopWords[t] {
			out = append(out, t)
		}
	}
	return out
}
