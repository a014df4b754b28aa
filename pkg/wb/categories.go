package wb

import (
	"fmt"
	"strings"
)

// Category is a named partition of the Wildberries API with its own host
// and its own independent rate limit.
type Category string

// API categories.
const (
	CategoryContent     Category = "content"
	CategoryAnalytics   Category = "analytics"
	CategoryPrices      Category = "prices"
	CategoryMarketplace Category = "marketplace"
	CategoryStatistics  Category = "statistics"
	CategoryPromotion   Category = "promotion"
	CategoryFeedbacks   Category = "feedbacks"
	CategoryChat        Category = "chat"
	CategorySupplies    Category = "supplies"
	CategoryReturns     Category = "returns"
	CategoryDocuments   Category = "documents"
	CategoryFinance     Category = "finance"
	CategoryCommon      Category = "common"
)

// RateLimit is the requests-per-minute ceiling and burst allowance for a category.
type RateLimit struct {
	RPM   int `json:"rpm"   yaml:"rpm"`
	Burst int `json:"burst" yaml:"burst"`
}

// DefaultRateLimits holds the published per-category limits.
var DefaultRateLimits = map[Category]RateLimit{
	CategoryContent:     {RPM: 100, Burst: 5},
	CategoryAnalytics:   {RPM: 60, Burst: 10},
	CategoryPrices:      {RPM: 100, Burst: 5},
	CategoryMarketplace: {RPM: 300, Burst: 20},
	CategoryStatistics:  {RPM: 60, Burst: 10},
	CategoryPromotion:   {RPM: 60, Burst: 10},
	CategoryFeedbacks:   {RPM: 100, Burst: 10},
	CategoryChat:        {RPM: 60, Burst: 10},
	CategorySupplies:    {RPM: 60, Burst: 10},
	CategoryReturns:     {RPM: 60, Burst: 10},
	CategoryDocuments:   {RPM: 60, Burst: 10},
	CategoryFinance:     {RPM: 60, Burst: 10},
	CategoryCommon:      {RPM: 60, Burst: 10},
}

// Domains maps each category to its production host.
var Domains = map[Category]string{
	CategoryContent:     "content-api.wildberries.ru",
	CategoryAnalytics:   "seller-analytics-api.wildberries.ru",
	CategoryPrices:      "discounts-prices-api.wildberries.ru",
	CategoryMarketplace: "marketplace-api.wildberries.ru",
	CategoryStatistics:  "statistics-api.wildberries.ru",
	CategoryPromotion:   "advert-api.wildberries.ru",
	CategoryFeedbacks:   "feedbacks-api.wildberries.ru",
	CategoryChat:        "buyer-chat-api.wildberries.ru",
	CategorySupplies:    "supplies-api.wildberries.ru",
	CategoryReturns:     "returns-api.wildberries.ru",
	CategoryDocuments:   "documents-api.wildberries.ru",
	CategoryFinance:     "finance-api.wildberries.ru",
	CategoryCommon:      "common-api.wildberries.ru",
}

// SandboxDomains maps the categories that have a sandbox environment to
// their sandbox host.
var SandboxDomains = map[Category]string{
	CategoryContent:    "content-api-sandbox.wildberries.ru",
	CategoryPrices:     "discounts-prices-api-sandbox.wildberries.ru",
	CategoryStatistics: "statistics-api-sandbox.wildberries.ru",
	CategoryPromotion:  "advert-api-sandbox.wildberries.ru",
	CategoryFeedbacks:  "feedbacks-api-sandbox.wildberries.ru",
}

var categoryOrder = []Category{
	CategoryContent,
	CategoryAnalytics,
	CategoryPrices,
	CategoryMarketplace,
	CategoryStatistics,
	CategoryPromotion,
	CategoryFeedbacks,
	CategoryChat,
	CategorySupplies,
	CategoryReturns,
	CategoryDocuments,
	CategoryFinance,
	CategoryCommon,
}

// Categories returns every known category in a stable order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory returns the Category named by s, ignoring case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := DefaultRateLimits[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// BaseURL returns the https base URL for the category. Sandbox hosts are
// used when sandbox is true and the category has one; otherwise the
// production host is returned.
func (c Category) BaseURL(sandbox bool) string {
	if sandbox {
		if host, ok := SandboxDomains[c]; ok {
			return "https://" + host
		}
	}
	return "https://" + Domains[c]
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}
