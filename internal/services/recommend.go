package services

import (
	"strings"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
)

// pairings maps a draft category to complementary product keywords, in
// preference order. Keywords resolve against the live catalog, so renaming
// or disabling an item silently drops it from recommendations.
var pairings = map[string][]string{
	"Burgers":   {"Fries", "Onion Rings", "Soda", "Milkshake"},
	"Pizza":     {"Garlic Bread", "Wings", "Soda", "Salad"},
	"Sides":     {"Soda", "Dipping Sauce"},
	"Beverages": {"Dessert"},
}

// sodaNames are the classic soft drinks the generic "Soda" keyword covers.
var sodaNames = []string{"cola", "pepsi", "7up", "sprite", "fanta"}

const maxRecommendations = 3

// Recommend returns up to three cross-sell items for the current draft,
// never suggesting something already in the cart. Order of the result
// follows the pairing preference of the first matching category.
func Recommend(draft *domain.OrderDraft, menu []domain.MenuItem) []domain.MenuItem {
	if draft.IsEmpty() || len(menu) == 0 {
		return nil
	}

	inCart := make(map[string]bool, len(draft.Items))
	cartCategories := make([]string, 0, 2)
	seenCat := map[string]bool{}
	for _, line := range draft.Items {
		inCart[line.ItemID] = true
		if !seenCat[line.Category] {
			seenCat[line.Category] = true
			cartCategories = append(cartCategories, line.Category)
		}
	}

	var out []domain.MenuItem
	picked := map[string]bool{}
	for _, cat := range cartCategories {
		for _, keyword := range pairings[cat] {
			if len(out) >= maxRecommendations {
				return out
			}
			item := findByKeyword(keyword, menu, func(id string) bool {
				return inCart[id] || picked[id]
			})
			if item != nil {
				picked[item.ID] = true
				out = append(out, *item)
			}
		}
	}
	return out
}

func findByKeyword(keyword string, menu []domain.MenuItem, excluded func(string) bool) *domain.MenuItem {
	kw := strings.ToLower(keyword)
	matches := func(it *domain.MenuItem) bool {
		name := strings.ToLower(it.Name)
		switch kw {
		case "soda":
			for _, s := range sodaNames {
				if strings.Contains(name, s) {
					return true
				}
			}
			return false
		case "dessert":
			return it.Category == "Desserts"
		default:
			return strings.Contains(name, kw)
		}
	}
	for i := range menu {
		it := &menu[i]
		if !it.IsAvailable || excluded(it.ID) {
			continue
		}
		if matches(it) {
			return it
		}
	}
	return nil
}
