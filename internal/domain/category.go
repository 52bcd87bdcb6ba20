package domain

import "strings"

// Category classifies the purpose of a ticket.
type Category string

const (
	CategoryBuy      Category = "buy"
	CategorySupport  Category = "support"
	CategoryReplace  Category = "replace"
	CategoryExchange Category = "exchange"
)

// Categories lists every selectable category in menu order.
var Categories = []Category{CategoryBuy, CategorySupport, CategoryReplace, CategoryExchange}

// ParseCategory resolves a menu value into a Category.
func ParseCategory(value string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Question is one intake prompt.
type Question struct {
	Title  string `json:"title"`
	Prompt string `json:"question"`
	Emoji  string `json:"emoji"`
}

// NameRule composes a channel name from intake answers. ok is false when
// the answers are insufficient.
type NameRule func(answers map[string]string) (name string, ok bool)

// CategorySpec holds everything that varies per category.
type CategorySpec struct {
	Label       string
	Description string
	Emoji       string
	Questions   []Question
	Name        NameRule
}

// Catalog maps categories to their intake script.
type Catalog map[Category]CategorySpec

// joinAnswers builds a NameRule that joins the given answers with '-'.
func joinAnswers(titles ...string) NameRule {
	return func(answers map[string]string) (string, bool) {
		parts := make([]string, 0, len(titles))
		for _, title := range titles {
			v := strings.TrimSpace(answers[title])
			if v == "" {
				return "", false
			}
			parts = append(parts, v)
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, "-"), true
	}
}

// DefaultCatalog returns the built-in question sets.
func DefaultCatalog() Catalog {
	return Catalog{
		CategoryBuy: {
			Label:       "Buy",
			Description: "Questions about purchases",
			Emoji:       "🛒",
			Questions: []Question{
				{Title: "Product", Prompt: "Please specify the product you are referring to.", Emoji: "📦 |"},
				{Title: "Quantity", Prompt: "Please specify the quantity of the product.", Emoji: "🔢 |"},
				{Title: "Payment Method", Prompt: "Please specify your payment method.", Emoji: "💳 |"},
			},
			Name: joinAnswers("Product", "Quantity", "Payment Method"),
		},
		CategorySupport: {
			Label:       "Support",
			Description: "Questions and support",
			Emoji:       "🎟️",
			Questions: []Question{
				{Title: "Issue Description", Prompt: "Please describe your issue in detail.", Emoji: "❗ |"},
				{Title: "Priority Level", Prompt: "Please specify the priority of your issue (Low, Medium, High).", Emoji: "⚠️ |"},
			},
			Name: joinAnswers("Issue Description", "Priority Level"),
		},
		CategoryReplace: {
			Label:       "Replace",
			Description: "Replace an item",
			Emoji:       "🔄",
			Questions: []Question{
				{Title: "Item to Replace", Prompt: "Please specify the item you want to replace.", Emoji: "🔄 |"},
				{Title: "Reason for Replacement", Prompt: "Please provide the reason for the replacement.", Emoji: "❌ |"},
			},
			Name: joinAnswers("Item to Replace", "Reason for Replacement"),
		},
		CategoryExchange: {
			Label:       "Exchange",
			Description: "Exchange an item",
			Emoji:       "🔁",
			Questions: []Question{
				{Title: "Item to Exchange", Prompt: "Please specify the item you want to exchange.", Emoji: "🔄 |"},
				{Title: "Exchange Item", Prompt: "Please specify the item you want in exchange.", Emoji: "🔁 |"},
			},
			Name: joinAnswers("Item to Exchange", "Exchange Item"),
		},
	}
}

// WithQuestions overrides question sets, keeping name rules keyed by the new titles.
func (c Catalog) WithQuestions(overrides map[Category][]Question) Catalog {
	out := make(Catalog, len(c))
	for cat, spec := range c {
		if qs, ok := overrides[cat]; ok && qs != nil {
			spec.Questions = append([]Question(nil), qs...)
			titles := make([]string, len(qs))
			for i, q := range qs {
				titles[i] = q.Title
			}
			spec.Name = joinAnswers(titles...)
		}
		out[cat] = spec
	}
	return out
}

// HasQuestion reports whether title belongs to the category's question set.
func (c Catalog) HasQuestion(cat Category, title string) bool {
	for _, q := range c[cat].Questions {
		if q.Title == title {
			return true
		}
	}
	return false
}
