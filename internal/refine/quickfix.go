package refine

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// contractions maps apostrophe-less speech-to-text output to its contracted form.
// Ambiguous forms (ill, id, well, were, lets, hell, shell) are left alone.
var contractions = map[string]string{
	"im":       "I'm",
	"ive":      "I've",
	"dont":     "don't",
	"doesnt":   "doesn't",
	"didnt":    "didn't",
	"cant":     "can't",
	"wont":     "won't",
	"isnt":     "isn't",
	"arent":    "aren't",
	"wasnt":    "wasn't",
	"werent":   "weren't",
	"havent":   "haven't",
	"hasnt":    "hasn't",
	"hadnt":    "hadn't",
	"couldnt":  "couldn't",
	"shouldnt": "shouldn't",
	"wouldnt":  "wouldn't",
	"mustnt":   "mustn't",
	"aint":     "ain't",
	"thats":    "that's",
	"whats":    "what's",
	"heres":    "here's",
	"wheres":   "where's",
	"whos":     "who's",
	"theres":   "there's",
	"youre":    "you're",
	"theyre":   "they're",
	"youve":    "you've",
	"weve":     "we've",
	"theyve":   "they've",
	"youll":    "you'll",
	"theyll":   "they'll",
	"youd":     "you'd",
	"theyd":    "they'd",
	"hes":      "he's",
	"shes":     "she's",
	"wouldve":  "would've",
	"couldve":  "could've",
	"shouldve": "should've",
}

// Homophones are corrected from the word that follows them. The trigger sets
// are disjoint and never contain a homophone, so a corrected word is never
// corrected again.
var (
	itsContractedNext = wordSet(
		"a", "an", "the", "been", "going", "gonna", "not", "just", "so", "very",
		"really", "too", "okay", "ok", "fine", "time", "getting", "like", "hard",
		"about", "always", "never", "still", "raining", "late", "early",
	)
	possessiveNext = wordSet("own")

	thereNext = wordSet(
		"is", "was", "are", "were", "isn't", "wasn't", "aren't", "weren't",
	)
	theyreNext = wordSet(
		"going", "gonna", "coming", "doing", "being", "getting", "not",
		"always", "never", "really", "so", "very", "too",
	)

	youreNext = wordSet(
		"welcome", "going", "gonna", "not", "right", "wrong", "so", "very",
		"really", "too", "being", "doing", "getting", "coming", "a", "an",
		"the", "always", "never",
	)
)

// sentenceStarters are imperative or discourse words that open a new sentence
// when spoken after a finished clause.
var sentenceStarters = wordSet("don't", "remember", "please", "anyway", "also")

// continuationWords keep the clause open: a starter right after one of these
// belongs to the same sentence ("I don't", "and also", "to remember").
var continuationWords = wordSet(
	"i", "you", "we", "they", "he", "she", "it", "me", "us", "them",
	"its", "it's", "their", "there", "they're", "your", "you're",
	"i'm", "i've", "i'll", "i'd", "you'll", "we'll", "they'll",
	"and", "but", "or", "nor", "so", "because", "if", "that", "than", "then",
	"when", "while", "why", "what", "which", "who", "how",
	"a", "an", "the", "my", "our", "his", "her", "this", "these", "those",
	"to", "of", "for", "with", "at", "in", "on", "by", "from", "about",
	"do", "does", "did", "don't", "doesn't", "didn't",
	"will", "would", "can", "could", "should", "shall", "must", "might", "may",
	"won't", "wouldn't", "can't", "couldn't", "shouldn't",
	"is", "am", "are", "was", "were", "be", "been", "not",
	"always", "never", "often", "sometimes", "usually", "really", "just",
	"still", "even", "also", "please", "said", "say", "says", "asked", "tell",
)

// abbreviations end with a period that does not close a sentence.
var abbreviations = wordSet("mr", "mrs", "ms", "dr", "st", "vs", "e.g", "i.e", "jr", "sr")

const (
	// minClauseWords is the clause length before a starter can split a sentence.
	minClauseWords = 3
	terminalPunct  = ".!?"
	joiningPunct   = ",;:"
)

// QuickFix applies deterministic, local grammar corrections to speech-to-text
// output. It is pure and idempotent: QuickFix(QuickFix(s)) == QuickFix(s).
func QuickFix(text string) string {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return ""
	}

	for i := range tokens {
		tokens[i].core = expandContraction(tokens[i].core)
	}

	fixHomophones(tokens)
	breakSentences(tokens)
	capitalizeSentences(tokens)
	terminate(tokens)

	parts := make([]string, len(tokens))
	for i, tok := range tokens {
		parts[i] = tok.String()
	}

	return strings.Join(parts, " ")
}

// token is a whitespace-delimited word split into leading punctuation,
// the word itself, and trailing punctuation.
type token struct {
	lead, core, trail string
}

func (t token) String() string {
	return t.lead + t.core + t.trail
}

func (t token) lower() string {
	return strings.ToLower(t.core)
}

func (t token) endsSentence() bool {
	if !strings.ContainsAny(t.trail, terminalPunct) {
		return false
	}

	return !(strings.HasPrefix(t.trail, ".") && abbreviations[t.lower()])
}

func tokenize(text string) []token {
	fields := strings.Fields(text)
	tokens := make([]token, 0, len(fields))

	for _, field := range fields {
		// Punctuation spoken or typed as its own word attaches to the previous word.
		if isAttachable(field) && len(tokens) > 0 {
			tokens[len(tokens)-1].trail += field
			continue
		}

		tokens = append(tokens, splitToken(field))
	}

	return tokens
}

func isAttachable(field string) bool {
	return strings.Trim(field, terminalPunct+joiningPunct) == ""
}

func splitToken(field string) token {
	start := strings.IndexFunc(field, isWordRune)
	if start < 0 {
		// "-." reads back as it was written: a mark plus its trailing punctuation.
		body := strings.TrimRight(field, terminalPunct+joiningPunct)
		return token{lead: body, trail: field[len(body):]}
	}

	end := strings.LastIndexFunc(field, isWordRune)
	_, size := utf8.DecodeRuneInString(field[end:])

	return token{
		lead:  field[:start],
		core:  field[start : end+size],
		trail: field[end+size:],
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func expandContraction(core string) string {
	lower := strings.ToLower(core)

	if lower == "i" || strings.HasPrefix(lower, "i'") {
		return "I" + core[1:]
	}

	replacement, ok := contractions[lower]
	if !ok {
		return core
	}

	return matchCase(core, replacement)
}

// matchCase capitalizes replacement when original starts with an upper-case letter.
func matchCase(original, replacement string) string {
	first, _ := utf8.DecodeRuneInString(original)
	if unicode.IsUpper(first) {
		return capitalize(replacement)
	}

	return replacement
}

func capitalize(word string) string {
	first, size := utf8.DecodeRuneInString(word)
	if size == 0 || unicode.IsUpper(first) {
		return word
	}

	return string(unicode.ToUpper(first)) + word[size:]
}

func fixHomophones(tokens []token) {
	for i := 0; i < len(tokens)-1; i++ {
		// A clause boundary means the next word says nothing about this one.
		if tokens[i].trail != "" || tokens[i+1].lead != "" {
			continue
		}

		next := tokens[i+1].lower()
		if fixed, ok := homophone(tokens[i].lower(), next); ok {
			tokens[i].core = matchCase(tokens[i].core, fixed)
		}
	}
}

func homophone(word, next string) (string, bool) {
	switch word {
	case "its":
		if itsContractedNext[next] {
			return "it's", true
		}
	case "it's":
		if possessiveNext[next] {
			return "its", true
		}
	case "their", "there", "they're":
		switch {
		case thereNext[next]:
			return "there", word != "there"
		case theyreNext[next]:
			return "they're", word != "they're"
		case possessiveNext[next]:
			return "their", word != "their"
		}
	case "your":
		if youreNext[next] {
			return "you're", true
		}
	case "you're":
		if possessiveNext[next] {
			return "your", true
		}
	}

	return "", false
}

func breakSentences(tokens []token) {
	clauseWords := 0

	for i := range tokens {
		if i > 0 && clauseWords >= minClauseWords && i < len(tokens)-1 && startsSentence(tokens[i-1], tokens[i]) {
			tokens[i-1].trail = "."
			clauseWords = 0
		}

		if tokens[i].core != "" {
			clauseWords++
		}

		if tokens[i].endsSentence() {
			clauseWords = 0
		}
	}
}

func startsSentence(prev, curr token) bool {
	if prev.trail != "" || prev.core == "" || curr.lead != "" || abbreviations[prev.lower()] {
		return false
	}

	return sentenceStarters[curr.lower()] && !continuationWords[prev.lower()]
}

func capitalizeSentences(tokens []token) {
	atStart := true

	for i := range tokens {
		if atStart && tokens[i].core != "" {
			tokens[i].core = capitalize(tokens[i].core)
			atStart = false
		}

		if tokens[i].endsSentence() {
			atStart = true
		}
	}
}

func terminate(tokens []token) {
	last := &tokens[len(tokens)-1]

	if last.core == "" && strings.ContainsAny(last.lead, terminalPunct) {
		return
	}

	if strings.ContainsAny(last.trail, terminalPunct) {
		return
	}

	last.trail = strings.TrimRight(last.trail, joiningPunct) + "."
}

func wordSet(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}

	return set
}
