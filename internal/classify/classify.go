package classify

import (
	"strings"
	"unicode"
)

// Category is a news desk label. Stored values are open strings; these are
// the ones the dashboard offers.
type Category string

const (
	World      Category = "World"
	Politics   Category = "Politics"
	Economy    Category = "Economy"
	Conflict   Category = "Conflict"
	Technology Category = "Technology"
	Science    Category = "Science"
	Health     Category = "Health"
	Climate    Category = "Climate"
)

// Unclassified is what the dashboard shows for a NULL category or bias.
const Unclassified = "Unclassified"

// AllCategories returns all categories in canonical order.
func AllCategories() []Category {
	return []Category{World, Politics, Economy, Conflict, Technology, Science, Health, Climate}
}

// Biases returns the political-lean labels in left-to-right order.
func Biases() []string {
	return []string{"Left", "Center-Left", "Center", "Center-Right", "Right"}
}

var categoryKeywords = map[Category][]string{
	Politics: {
		"election", "vote", "parliament", "senate", "congress", "president",
		"minister", "government", "policy", "campaign", "referendum", "party",
		"lawmakers", "coalition", "prime minister", "supreme court",
	},
	Economy: {
		"economy", "market", "stocks", "inflation", "interest rate", "bank",
		"gdp", "trade", "tariff", "jobs", "unemployment", "recession", "oil",
		"prices", "budget", "debt", "investors", "central bank",
	},
	Conflict: {
		"war", "attack", "military", "troops", "missile", "strike", "ceasefire",
		"killed", "bomb", "army", "invasion", "militants", "drone", "shelling",
		"hostages", "peace talks",
	},
	Technology: {
		"tech", "ai", "artificial intelligence", "software", "chip", "apple",
		"google", "microsoft", "cyber", "hack", "startup", "internet",
		"smartphone", "social media", "semiconductor",
	},
	Science: {
		"science", "scientists", "space", "nasa", "research", "study",
		"discovery", "telescope", "physics", "species", "fossil", "rocket",
	},
	Health: {
		"health", "hospital", "virus", "vaccine", "disease", "outbreak",
		"covid", "doctors", "cancer", "medical", "pandemic", "who",
	},
	Climate: {
		"climate", "emissions", "carbon", "flood", "wildfire", "heatwave",
		"drought", "hurricane", "storm", "renewable", "global warming",
		"earthquake", "pollution",
	},
}

// Classify picks a category for a headline by keyword hits. Ties go to the
// earlier category in AllCategories; no hit at all yields World.
func Classify(headline string) Category {
	tokens := tokenize(headline)
	lower := strings.ToLower(headline)

	var bestCat Category
	bestScore := 0

	for _, cat := range AllCategories() {
		score := 0
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(kw, " ") {
				if strings.Contains(lower, kw) {
					score += 2
				}
				continue
			}
			for _, t := range tokens {
				if t == kw {
					score++
				}
			}
		}
		if score > bestScore {
			bestScore = score
			bestCat = cat
		}
	}

	if bestScore == 0 {
		return World
	}
	return bestCat
}

// Normalize trims a free-text label and maps case-insensitive matches of a
// known category onto its canonical spelling. The Unclassified sentinel
// becomes the empty string.
func Normalize(label string) string {
	label = strings.Join(strings.Fields(label), " ")
	if strings.EqualFold(label, Unclassified) {
		return ""
	}
	for _, cat := range AllCategories() {
		if strings.EqualFold(string(cat), label) {
			return string(cat)
		}
	}
	for _, b := range Biases() {
		if strings.EqualFold(b, label) {
			return b
		}
	}
	return label
}

// Label is the display form of a stored category or bias.
func Label(value string) string {
	if value == "" {
		return Unclassified
	}
	return value
}

func tokenize(s string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(s)) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if word != "" {
			tokens = append(tokens, word)
		}
	}
	return tokens
}
