package intent

import (
	"regexp"
	"strings"

	"storefront-support/internal/domain"
)

type Intent string

const (
	OrderTracking         Intent = "ORDER_TRACKING"
	ProductRecommendation Intent = "PRODUCT_RECOMMENDATION"
	FAQ                   Intent = "FAQ"
	HumanRequest          Intent = "HUMAN_REQUEST"
	General               Intent = "GENERAL"
)

// Precedence is the order in which intents are tried; the first match wins.
var Precedence = []Intent{OrderTracking, ProductRecommendation, FAQ, HumanRequest}

// Classifier maps a customer message to an intent.
type Classifier interface {
	Classify(text string, lang domain.LanguageCode) Intent
}

// orderNumberPattern matches structured codes such as SOL-20240101-00012 or bare numbers of 10+ digits.
var orderNumberPattern = regexp.MustCompile(`(?i)\b[A-Z]{2,5}-\d{8}-\d{3,6}\b|\b\d{10,}\b`)

// ExtractOrderNumber returns the first order-number-shaped token in text.
func ExtractOrderNumber(text string) (string, bool) {
	match := orderNumberPattern.FindString(text)
	if match == "" {
		return "", false
	}
	return strings.ToUpper(match), true
}

type KeywordClassifier struct {
	keywords map[domain.LanguageCode]map[Intent][]string
}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{keywords: defaultKeywords()}
}

// NewKeywordClassifierWith builds a classifier over a custom keyword table.
func NewKeywordClassifierWith(keywords map[domain.LanguageCode]map[Intent][]string) *KeywordClassifier {
	return &KeywordClassifier{keywords: keywords}
}

// Classify checks the requested language's keywords and the English ones, in precedence order.
func (k *KeywordClassifier) Classify(text string, lang domain.LanguageCode) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return General
	}

	tables := []map[Intent][]string{k.keywords[lang]}
	if lang != domain.LanguageCodeEn {
		tables = append(tables, k.keywords[domain.LanguageCodeEn])
	}

	for _, candidate := range Precedence {
		if candidate == OrderTracking {
			if _, ok := ExtractOrderNumber(text); ok {
				return OrderTracking
			}
		}
		for _, table := range tables {
			for _, keyword := range table[candidate] {
				if strings.Contains(normalized, keyword) {
					return candidate
				}
			}
		}
	}
	return General
}
