package fraud

import (
	"regexp"
	"strings"
	"unicode"
)

// Per-band score contribution for registry pattern matches
var patternScoreByLevel = map[RiskLevel]float64{
	RiskLevelLow:      10,
	RiskLevelMedium:   25,
	RiskLevelHigh:     40,
	RiskLevelCritical: 60,
}

const (
	phishingPatternScore  = 30
	financialKeywordScore = 25
	heuristicScoreCap     = 50
	contentScoreCap       = 100

	suspiciousPrefixScore = 20
	phoneLengthScore      = 15
	repeatedDigitScore    = 25

	minPhoneDigits = 6
	maxPhoneDigits = 15
)

// Static phishing-link patterns: shortened-URL domains and the usual
// urgency phrasing around verification and prizes.
var phishingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bit\.ly/`),
	regexp.MustCompile(`(?i)tinyurl\.com/`),
	regexp.MustCompile(`(?i)goo\.gl/`),
	regexp.MustCompile(`(?i)cutt\.ly/`),
	regexp.MustCompile(`(?i)urgent(ly)?\s+(verify|action|update)`),
	regexp.MustCompile(`(?i)account\s+(is\s+|has\s+been\s+)?(suspended|blocked|frozen)`),
	regexp.MustCompile(`(?i)(lucky|selected)\s+winner`),
}

// Static financial-fraud keyword phrases, matched case-insensitively.
var financialKeywords = []string{
	"congratulations you have won",
	"claim your prize",
	"lottery",
	"processing fee",
	"advance payment",
	"bank account blocked",
	"kyc update required",
	"income tax refund",
}

// Heuristic wordlists. Counts are weighted, not boolean.
var (
	urgencyWords  = []string{"urgent", "immediately", "act now", "expires today", "last chance", "final notice", "turant"}
	moneyTerms    = []string{"money", "cash", "prize", "rupees", "payment", "refund", "lakh", "crore"}
	actionPhrases = []string{"click here", "verify now", "call now", "share otp", "send money", "transfer now", "install app"}
)

var digitRunPattern = regexp.MustCompile(`\d{4,}`)

// Suspicious country-code and short-code prefixes. First match wins.
var suspiciousPhonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\+234`),                // Nigeria
	regexp.MustCompile(`^\+92`),                 // Pakistan
	regexp.MustCompile(`^\+880`),                // Bangladesh
	regexp.MustCompile(`^\+84`),                 // Vietnam
	regexp.MustCompile(`^\+1(809|829|849|876)`), // Caribbean premium-rate
	regexp.MustCompile(`^140`),                  // telemarketing short-prefix
}

// patternMatcher is a registry rule with its match strategy decided at
// load time: a compiled regex, or a case-insensitive literal when the
// stored pattern does not compile.
type patternMatcher struct {
	pattern *FraudPattern
	re      *regexp.Regexp
	literal string
}

func (m patternMatcher) matches(content string) bool {
	if m.re != nil {
		return m.re.MatchString(content)
	}
	return strings.Contains(strings.ToLower(content), m.literal)
}

// compileMatchers decides each pattern's strategy once, so scoring never
// re-attempts compilation.
func compileMatchers(patterns []*FraudPattern) []patternMatcher {
	matchers := make([]patternMatcher, 0, len(patterns))
	for _, p := range patterns {
		m := patternMatcher{pattern: p}
		if re, err := regexp.Compile(p.Pattern); err == nil {
			m.re = re
		} else {
			m.literal = strings.ToLower(p.Pattern)
		}
		matchers = append(matchers, m)
	}
	return matchers
}

// analyzeContent runs the registry patterns, the static phishing and
// financial lists, and the content heuristics, in that order. The total
// contribution is capped at contentScoreCap.
func analyzeContent(content string, matchers []patternMatcher) (float64, []Signal) {
	var score float64
	var signals []Signal

	for _, m := range matchers {
		if !m.matches(content) {
			continue
		}
		contribution := patternScoreByLevel[m.pattern.RiskLevel]
		score += contribution
		signals = append(signals, Signal{
			Type:       SignalFraudPattern,
			Pattern:    m.pattern.Pattern,
			Category:   m.pattern.Category,
			Confidence: m.pattern.Accuracy * 100,
			Score:      contribution,
		})
	}

	for _, re := range phishingPatterns {
		if !re.MatchString(content) {
			continue
		}
		score += phishingPatternScore
		signals = append(signals, Signal{
			Type:       SignalPhishingURL,
			Pattern:    re.String(),
			Confidence: 80,
			Score:      phishingPatternScore,
		})
	}

	lower := strings.ToLower(content)
	for _, keyword := range financialKeywords {
		if !strings.Contains(lower, keyword) {
			continue
		}
		score += financialKeywordScore
		signals = append(signals, Signal{
			Type:       SignalFinancialKeyword,
			Pattern:    keyword,
			Confidence: 75,
			Score:      financialKeywordScore,
		})
	}

	if heuristic := heuristicScore(content); heuristic > 0 {
		score += heuristic
		signals = append(signals, Signal{
			Type:       SignalContentHeuristic,
			Confidence: 60,
			Score:      heuristic,
		})
	}

	if score > contentScoreCap {
		score = contentScoreCap
	}
	return score, signals
}

// heuristicScore scores structural tells in the text: urgency and money
// vocabulary, pushy action phrases, long digit runs, shouting, and symbol
// noise. Capped at heuristicScoreCap.
func heuristicScore(content string) float64 {
	lower := strings.ToLower(content)
	var score float64

	for _, w := range urgencyWords {
		score += float64(strings.Count(lower, w)) * 5
	}
	for _, w := range moneyTerms {
		score += float64(strings.Count(lower, w)) * 3
	}
	for _, w := range actionPhrases {
		score += float64(strings.Count(lower, w)) * 4
	}

	if len(digitRunPattern.FindAllString(content, -1)) > 2 {
		score += 10
	}

	var letters, upper, symbols int
	for _, r := range content {
		switch {
		case unicode.IsLetter(r):
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		case unicode.IsDigit(r) || unicode.IsSpace(r):
		default:
			symbols++
		}
	}
	if letters > 0 && float64(upper)/float64(letters) > 0.5 {
		score += 15
	}
	if len(content) > 0 && float64(symbols)/float64(len(content)) > 0.1 {
		score += 10
	}

	if score > heuristicScoreCap {
		score = heuristicScoreCap
	}
	return score
}

// analyzePhoneNumber scores the number string itself: suspicious prefix
// (first match only), implausible length, and a single digit dominating
// the number.
func analyzePhoneNumber(phoneNumber string) (float64, []Signal) {
	var score float64
	var signals []Signal

	for _, re := range suspiciousPhonePatterns {
		if re.MatchString(phoneNumber) {
			score += suspiciousPrefixScore
			signals = append(signals, Signal{
				Type:       SignalPhonePattern,
				Pattern:    re.String(),
				Confidence: 70,
				Score:      suspiciousPrefixScore,
			})
			break
		}
	}

	digits := make(map[rune]int)
	digitCount := 0
	for _, r := range phoneNumber {
		if unicode.IsDigit(r) {
			digits[r]++
			digitCount++
		}
	}

	if digitCount < minPhoneDigits || digitCount > maxPhoneDigits {
		score += phoneLengthScore
		signals = append(signals, Signal{
			Type:       SignalPhoneLength,
			Confidence: 60,
			Score:      phoneLengthScore,
		})
	}

	if digitCount > 0 {
		for _, count := range digits {
			if float64(count)/float64(digitCount) > 0.4 {
				score += repeatedDigitScore
				signals = append(signals, Signal{
					Type:       SignalRepeatedDigits,
					Confidence: 65,
					Score:      repeatedDigitScore,
				})
				break
			}
		}
	}

	return score, signals
}
