package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ksultani/go-dinebot-backend/internal/domain"
	"github.com/ksultani/go-dinebot-backend/internal/nlu"
)

// Resolution is the outcome of resolving a free-text mention against the
// catalog. Item is nil when nothing scored above zero.
type Resolution struct {
	Item       *domain.MenuItem
	Confidence float64
	Tier       string
}

// Resolver maps item mentions to menu rows through a cascade of tiers:
// exact name match, semantic matcher, substring, keyword-to-category, and
// normalized fuzzy overlap. Each tier only runs when the previous one found
// nothing; the cascade returns the first hit with its tier's confidence.
//
// The caller applies the confidence gates: at or above AutoAccept the item is
// added directly, between Suggest and AutoAccept it becomes a "did you mean"
// prompt, below Suggest the mention is rejected with category suggestions.
type Resolver struct {
	// Matcher is the optional semantic tier. A nil or failing matcher
	// degrades the cascade to its lexical tiers.
	Matcher nlu.ItemMatcher

	// AutoAccept is the minimum matcher confidence the semantic tier
	// forwards; weaker semantic guesses defer to the lexical tiers.
	AutoAccept float64
}

const (
	confExact           = 1.0
	confNameInMention   = 0.95
	confMentionInName   = 0.93
	confArabicSubstring = 0.92
	confKeyword         = 0.88
	confFuzzySubstring  = 0.75
	fuzzyOverlapWeight  = 0.7
	fuzzyFloor          = 0.6
)

// Resolve runs the cascade for one mention over the available catalog.
func (r *Resolver) Resolve(ctx context.Context, mention string, menu []domain.MenuItem) Resolution {
	q := normalizeText(mention)
	if q == "" || len(menu) == 0 {
		return Resolution{}
	}

	// Tier 1: exact normalized equality on either name.
	for i := range menu {
		it := &menu[i]
		if normalizeText(it.Name) == q || (it.ArabicName != "" && normalizeText(it.ArabicName) == q) {
			return Resolution{Item: it, Confidence: confExact, Tier: "exact"}
		}
	}

	// Tier 2: semantic matcher, when one is wired and confident enough.
	if r.Matcher != nil {
		if res := r.semantic(ctx, mention, menu); res.Item != nil {
			return res
		}
	}

	// Tier 3: substring containment, best score across the catalog.
	if res := substringTier(q, menu); res.Item != nil {
		return res
	}

	// Tier 4: keyword-to-item mapping, specific cues before generic ones.
	for _, rule := range keywordRules {
		if !rule.mentions(q) {
			continue
		}
		for i := range menu {
			if rule.match(&menu[i]) {
				return Resolution{Item: &menu[i], Confidence: confKeyword, Tier: "keyword"}
			}
		}
	}

	// Tier 5: normalized fuzzy overlap, floor-gated.
	if item, score := fuzzyTier(q, menu); item != nil && score >= fuzzyFloor {
		return Resolution{Item: item, Confidence: score, Tier: "fuzzy"}
	}

	return Resolution{}
}

func (r *Resolver) semantic(ctx context.Context, mention string, menu []domain.MenuItem) Resolution {
	candidates := make([]nlu.MenuCandidate, 0, len(menu))
	for _, it := range menu {
		candidates = append(candidates, nlu.MenuCandidate{
			ID: it.ID, Name: it.Name, ArabicName: it.ArabicName, Category: it.Category,
		})
	}
	m, err := r.Matcher.Match(ctx, mention, candidates)
	if err != nil {
		log.Debug().Err(err).Str("mention", mention).Msg("semantic matcher skipped")
		return Resolution{}
	}
	if m.ItemID == "" || m.Confidence < r.AutoAccept {
		return Resolution{}
	}
	for i := range menu {
		if menu[i].ID == m.ItemID {
			return Resolution{Item: &menu[i], Confidence: m.Confidence, Tier: "semantic"}
		}
	}
	return Resolution{}
}

func substringTier(q string, menu []domain.MenuItem) Resolution {
	best := Resolution{}
	better := func(cand Resolution) bool {
		if cand.Confidence != best.Confidence {
			return cand.Confidence > best.Confidence
		}
		// Same score: the longer name is the more specific product
		// ("double cheeseburger" over "cheeseburger").
		return best.Item == nil || len(cand.Item.Name) > len(best.Item.Name)
	}
	for i := range menu {
		it := &menu[i]
		name := normalizeText(it.Name)
		var cand Resolution
		switch {
		case strings.Contains(q, name):
			cand = Resolution{Item: it, Confidence: confNameInMention, Tier: "substring"}
		case strings.Contains(name, q):
			cand = Resolution{Item: it, Confidence: confMentionInName, Tier: "substring"}
		default:
			if it.ArabicName != "" {
				ar := normalizeText(it.ArabicName)
				if strings.Contains(q, ar) || strings.Contains(ar, q) {
					cand = Resolution{Item: it, Confidence: confArabicSubstring, Tier: "substring"}
				}
			}
		}
		if cand.Item != nil && better(cand) {
			best = cand
		}
	}
	return best
}

type keywordRule struct {
	cues  []string
	match func(*domain.MenuItem) bool
}

func (r keywordRule) mentions(q string) bool {
	for _, cue := range r.cues {
		if strings.Contains(q, cue) {
			return true
		}
	}
	return false
}

func nameHas(parts ...string) func(*domain.MenuItem) bool {
	return func(it *domain.MenuItem) bool {
		n := strings.ToLower(it.Name)
		for _, p := range parts {
			if !strings.Contains(n, p) {
				return false
			}
		}
		return true
	}
}

// keywordRules map loose product vocabulary to catalog items, ordered so
// specific cues ("cheese") win before the generic category cue ("burger").
var keywordRules = []keywordRule{
	{[]string{"كلاسيكي", "classic"}, nameHas("classic", "burger")},
	{[]string{"جبنه", "جبن", "cheese"}, nameHas("cheese", "burger")},
	{[]string{"دجاج", "chicken"}, nameHas("chicken")},
	{[]string{"نباتي", "veggie"}, nameHas("veggie")},
	{[]string{"بيكون", "bacon"}, nameHas("bacon")},
	{[]string{"برجر", "برغر", "burger"}, nameHas("burger")},
	{[]string{"ببروني", "بيبروني", "pepperoni"}, nameHas("pepperoni")},
	{[]string{"مارجريتا", "margherita"}, nameHas("margherita")},
	{[]string{"بيتزا", "pizza"}, nameHas("pizza")},
	{[]string{"بطاطس", "بطاطا", "فرايز", "فرويز", "fries"}, nameHas("fries")},
	{[]string{"حلقات", "بصل", "onion rings"}, nameHas("onion")},
	{[]string{"كولا", "كوكا", "cola", "coca"}, nameHas("cola")},
	{[]string{"مشروب", "صودا", "سودا", "soda"}, func(it *domain.MenuItem) bool {
		return strings.Contains(strings.ToLower(it.Name), "soda") || it.Category == "Beverages"
	}},
}

func fuzzyTier(q string, menu []domain.MenuItem) (*domain.MenuItem, float64) {
	qTokens := tokenSet(q)
	similarity := func(name string) float64 {
		n := normalizeText(name)
		if n == "" {
			return 0
		}
		if n == q {
			return 1
		}
		if strings.Contains(q, n) || strings.Contains(n, q) {
			return confFuzzySubstring
		}
		return jaccard(qTokens, tokenSet(n)) * fuzzyOverlapWeight
	}

	var best *domain.MenuItem
	bestScore := 0.0
	for i := range menu {
		it := &menu[i]
		score := similarity(it.Name)
		if it.ArabicName != "" {
			if s := similarity(it.ArabicName); s > score {
				score = s
			}
		}
		if score > bestScore {
			bestScore = score
			best = it
		}
	}
	return best, bestScore
}

// SuggestCategories returns up to max category names whose items share any
// token with the mention, falling back to the first catalog categories, so a
// rejected mention still gets a useful nudge.
func SuggestCategories(mention string, menu []domain.MenuItem, max int) []string {
	if max <= 0 {
		max = 2
	}
	qTokens := tokenSet(mention)
	seen := map[string]bool{}
	var scored, rest []string
	for _, it := range menu {
		if seen[it.Category] {
			continue
		}
		seen[it.Category] = true
		if jaccard(qTokens, tokenSet(it.Name+" "+it.Category)) > 0 {
			scored = append(scored, it.Category)
		} else {
			rest = append(rest, it.Category)
		}
	}
	out := append(scored, rest...)
	if len(out) > max {
		out = out[:max]
	}
	return out
}
