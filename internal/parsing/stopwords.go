package parsing

// stopWords are common English words that carry no ranking signal.
// Skill-like short words ("go", "r", "c", "it") are deliberately absent.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "for": true,
	"from": true, "had": true, "he": true, "her": true, "his": true,
	"i": true, "if": true, "in": true, "into": true, "is": true, "its": true,
	"me": true, "my": true, "no": true, "not": true, "of": true, "on": true,
	"or": true, "our": true, "she": true, "so": true, "such": true,
	"than": true, "that": true, "the": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "to": true, "us": true, "was": true, "we": true,
	"were": true, "will": true, "with": true, "you": true, "your": true,
	"about": true, "also": true, "all": true, "each": true, "more": true,
	"most": true, "other": true, "some": true, "very": true,
}

// questionFillers are words that frame a question about candidates rather
// than describing what is being looked for.
var questionFillers = map[string]bool{
	"who": true, "whom": true, "whose": true, "which": true, "what": true,
	"where": true, "when": true, "how": true, "why": true,
	"does": true, "do": true, "did": true, "can": true, "could": true,
	"has": true, "have": true, "having": true,
	"know": true, "knows": true, "knowing": true, "knowledge": true,
	"experience": true, "experienced": true, "experiences": true,
	"worked": true, "works": true, "working": true,
	"use": true, "used": true, "uses": true, "using": true,
	"candidate": true, "candidates": true, "anyone": true, "someone": true,
	"somebody": true, "anybody": true, "people": true, "person": true,
	"resume": true, "resumes": true, "any": true,
	"show": true, "find": true, "list": true, "give": true,
	"skilled": true, "proficient": true, "familiar": true, "expert": true,
	"strong": true, "background": true, "years": true, "year": true,
}

// IsStopWord reports whether tok is a common English stop word.
func IsStopWord(tok string) bool {
	return stopWords[tok]
}

// IsQuestionFiller reports whether tok is a question framing word.
func IsQuestionFiller(tok string) bool {
	return questionFillers[tok]
}
