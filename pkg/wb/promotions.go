package wb

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// PromotionsService reads the promotions calendar.
type PromotionsService struct {
	client *Client
}

// Promotion is an entry of the promotions calendar.
type Promotion struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	StartDateTime time.Time `json:"startDateTime"`
	EndDateTime   time.Time `json:"endDateTime"`
	Type          string    `json:"type"`
}

// PromotionDetails describes a promotion and its participation terms.
type PromotionDetails struct {
	ID                        int       `json:"id"`
	Name                      string    `json:"name"`
	Description               string    `json:"description"`
	Advantages                []string  `json:"advantages"`
	StartDateTime             time.Time `json:"startDateTime"`
	EndDateTime               time.Time `json:"endDateTime"`
	InPromoActionLeftovers    int       `json:"inPromoActionLeftovers"`
	InPromoActionTotal        int       `json:"inPromoActionTotal"`
	NotInPromoActionLeftovers int       `json:"notInPromoActionLeftovers"`
	NotInPromoActionTotal     int       `json:"notInPromoActionTotal"`
	ParticipationPercentage   float64   `json:"participationPercentage"`
	Type                      string    `json:"type"`
	ExceptionProductsCount    int       `json:"exceptionProductsCount"`
}

// PromotionItem is a product eligible for or participating in a promotion.
type PromotionItem struct {
	ID           int     `json:"id"`
	InAction     bool    `json:"inAction"`
	Price        float64 `json:"price"`
	CurrencyCode string  `json:"currencyCode"`
	PlanPrice    float64 `json:"planPrice"`
	Discount     float64 `json:"discount"`
	PlanDiscount float64 `json:"planDiscount"`
}

// PromotionsFilter narrows the calendar.
type PromotionsFilter struct {
	StartDateTime time.Time
	EndDateTime   time.Time
	AllPromo      bool
	Limit         int
	Offset        int
}

// Calendar returns promotions within the filter window.
func (s *PromotionsService) Calendar(ctx context.Context, f PromotionsFilter) ([]Promotion, error) {
	q := url.Values{
		"allPromo": {strconv.FormatBool(f.AllPromo)},
		"limit":    {strconv.Itoa(clampLimit(f.Limit, 1000))},
		"offset":   {strconv.Itoa(max(f.Offset, 0))},
	}
	if !f.StartDateTime.IsZero() {
		q.Set("startDateTime", f.StartDateTime.UTC().Format(time.RFC3339))
	}
	if !f.EndDateTime.IsZero() {
		q.Set("endDateTime", f.EndDateTime.UTC().Format(time.RFC3339))
	}
	data, err := getData[struct {
		Promotions []Promotion `json:"promotions"`
	}](ctx, s.client, CategoryPromotion, "/api/v1/calendar/promotions", q)
	if err != nil {
		return nil, err
	}
	return data.Promotions, nil
}

// Details returns details of the given promotions.
func (s *PromotionsService) Details(ctx context.Context, ids ...int) ([]PromotionDetails, error) {
	q := url.Values{}
	for _, id := range ids {
		q.Add("promotionIDs", strconv.Itoa(id))
	}
	data, err := getData[struct {
		Promotions []PromotionDetails `json:"promotions"`
	}](ctx, s.client, CategoryPromotion, "/api/v1/calendar/promotions/details", q)
	if err != nil {
		return nil, err
	}
	return data.Promotions, nil
}

// Nomenclatures returns products of a promotion. inAction selects
// participating products instead of eligible ones.
func (s *PromotionsService) Nomenclatures(ctx context.Context, promotionID int, inAction bool, limit, offset int) ([]PromotionItem, error) {
	q := url.Values{
		"promotionID": {strconv.Itoa(promotionID)},
		"inAction":    {strconv.FormatBool(inAction)},
		"limit":       {strconv.Itoa(clampLimit(limit, 1000))},
		"offset":      {strconv.Itoa(max(offset, 0))},
	}
	data, err := getData[struct {
		Nomenclatures []PromotionItem `json:"nomenclatures"`
	}](ctx, s.client, CategoryPromotion, "/api/v1/calendar/promotions/nomenclatures", q)
	if err != nil {
		return nil, err
	}
	return data.Nomenclatures, nil
}
