package wb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxStatsCampaigns is how many campaigns one full-stats request accepts.
const MaxStatsCampaigns = 100

// CampaignStatus is the state of an advertising campaign.
type CampaignStatus int

// Campaign statuses.
const (
	CampaignDeleted   CampaignStatus = -1
	CampaignPreparing CampaignStatus = 4
	CampaignCompleted CampaignStatus = 7
	CampaignCanceled  CampaignStatus = 8
	CampaignActive    CampaignStatus = 9
	CampaignPaused    CampaignStatus = 11
)

// String returns a lowercase label for the status.
func (s CampaignStatus) String() string {
	switch s {
	case CampaignDeleted:
		return "deleted"
	case CampaignPreparing:
		return "preparing"
	case CampaignCompleted:
		return "completed"
	case CampaignCanceled:
		return "canceled"
	case CampaignActive:
		return "active"
	case CampaignPaused:
		return "paused"
	default:
		return "status(" + strconv.Itoa(int(s)) + ")"
	}
}

// MarketingService reads advertising campaigns, their statistics and the
// advertising account.
type MarketingService struct {
	client *Client
}

// CampaignRef is a campaign id with its last change time.
type CampaignRef struct {
	AdvertID   int       `json:"advertId"`
	ChangeTime time.Time `json:"changeTime"`
}

// CampaignGroup counts campaigns of one type and status.
type CampaignGroup struct {
	Type       int            `json:"type"`
	Status     CampaignStatus `json:"status"`
	Count      int            `json:"count"`
	AdvertList []CampaignRef  `json:"advert_list"`
}

// CampaignCounts is the campaign list grouped by type and status.
type CampaignCounts struct {
	All     int             `json:"all"`
	Adverts []CampaignGroup `json:"adverts"`
}

// IDs returns every campaign id in the listing.
func (c *CampaignCounts) IDs() []int {
	var ids []int
	for _, g := range c.Adverts {
		for _, a := range g.AdvertList {
			ids = append(ids, a.AdvertID)
		}
	}
	return ids
}

// CampaignInfo describes one campaign. Settings vary by campaign type and
// are left undecoded.
type CampaignInfo struct {
	ID         int             `json:"id"`
	BidType    string          `json:"bid_type"`
	Status     CampaignStatus  `json:"status"`
	Settings   json.RawMessage `json:"settings"`
	NMSettings json.RawMessage `json:"nm_settings"`
	Timestamps struct {
		Created time.Time `json:"created"`
		Updated time.Time `json:"updated"`
		Started time.Time `json:"started"`
		Deleted time.Time `json:"deleted"`
	} `json:"timestamps"`
}

// CampaignStats is the aggregate of one campaign over a period.
type CampaignStats struct {
	AdvertID     int             `json:"advertId"`
	Views        int             `json:"views"`
	Clicks       int             `json:"clicks"`
	CTR          float64         `json:"ctr"`
	CPC          float64         `json:"cpc"`
	Sum          float64         `json:"sum"`
	ATBs         int             `json:"atbs"`
	Orders       int             `json:"orders"`
	CR           float64         `json:"cr"`
	SHKs         int             `json:"shks"`
	SumPrice     float64         `json:"sum_price"`
	Canceled     int             `json:"canceled"`
	Days         json.RawMessage `json:"days,omitempty"`
	BoosterStats json.RawMessage `json:"boosterStats,omitempty"`
}

// KeywordCluster groups keywords of an automatic campaign.
type KeywordCluster struct {
	Cluster  string   `json:"cluster"`
	Count    int      `json:"count"`
	Keywords []string `json:"keywords"`
}

// KeywordStats are the phrase clusters and exclusions of a campaign.
type KeywordStats struct {
	Excluded []string         `json:"excluded"`
	Clusters []KeywordCluster `json:"clusters"`
}

// AdvertBalance is the advertising account balance in rubles.
type AdvertBalance struct {
	Balance   float64 `json:"balance"`
	Net       float64 `json:"net"`
	Bonus     float64 `json:"bonus"`
	Cashbacks []struct {
		Sum            int    `json:"sum"`
		Percent        int    `json:"percent"`
		ExpirationDate string `json:"expiration_date"`
	} `json:"cashbacks"`
}

// Total returns balance plus bonus.
func (b *AdvertBalance) Total() float64 {
	return b.Balance + b.Bonus
}

// CampaignBudget is the unspent budget of a campaign.
type CampaignBudget struct {
	CampaignID int `json:"-"`
	Cash       int `json:"cash"`
	Netting    int `json:"netting"`
	Total      int `json:"total"`
}

// Expense is one advertising charge.
type Expense struct {
	AdvertID     int            `json:"advertId"`
	CampName     string         `json:"campName"`
	UpdNum       int            `json:"updNum"`
	UpdTime      *time.Time     `json:"updTime"`
	AdvertType   int            `json:"advertType"`
	PaymentType  string         `json:"paymentType"`
	AdvertStatus CampaignStatus `json:"advertStatus"`
	UpdSum       float64        `json:"updSum"`
}

// Payment is one top-up of the advertising account.
type Payment struct {
	ID         int       `json:"id"`
	Date       time.Time `json:"date"`
	Sum        float64   `json:"sum"`
	Type       int       `json:"type"`
	StatusID   int       `json:"statusId"`
	CardStatus string    `json:"cardStatus"`
}

// CampaignCounts returns campaigns grouped by type and status.
func (s *MarketingService) CampaignCounts(ctx context.Context) (*CampaignCounts, error) {
	var out CampaignCounts
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/promotion/count", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Campaigns returns details of the given campaigns.
func (s *MarketingService) Campaigns(ctx context.Context, ids []int) ([]CampaignInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []CampaignInfo
	if err := s.client.post(ctx, CategoryPromotion, "/adv/v1/promotion/adverts", ids, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AuctionCampaigns returns auction campaigns filtered by status and type.
// Zero values are not sent.
func (s *MarketingService) AuctionCampaigns(ctx context.Context, status CampaignStatus, typ int) (json.RawMessage, error) {
	q := url.Values{}
	if status != 0 {
		q.Set("status", strconv.Itoa(int(status)))
	}
	if typ != 0 {
		q.Set("type", strconv.Itoa(typ))
	}
	var out json.RawMessage
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v0/auction/adverts", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FullStats returns statistics for up to 100 campaigns over a period.
func (s *MarketingService) FullStats(ctx context.Context, ids []int, from, to time.Time) ([]CampaignStats, error) {
	if len(ids) == 0 {
		return nil, errors.New("no campaign ids")
	}
	if len(ids) > MaxStatsCampaigns {
		return nil, fmt.Errorf("at most %d campaigns per request, got %d", MaxStatsCampaigns, len(ids))
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	q := url.Values{
		"ids":       {strings.Join(parts, ",")},
		"beginDate": {from.Format(time.DateOnly)},
		"endDate":   {to.Format(time.DateOnly)},
	}
	var out []CampaignStats
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v3/fullstats", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DailyStats returns per-day statistics for the given campaigns.
func (s *MarketingService) DailyStats(ctx context.Context, ids []int, from, to time.Time) ([]CampaignStats, error) {
	body := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		body = append(body, map[string]any{
			"id":       id,
			"interval": map[string]string{"begin": from.Format(time.DateOnly), "end": to.Format(time.DateOnly)},
		})
	}
	var out []CampaignStats
	if err := s.client.post(ctx, CategoryPromotion, "/adv/v2/fullstats", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// KeywordStats returns phrase statistics of a search campaign.
func (s *MarketingService) KeywordStats(ctx context.Context, campaignID int) (json.RawMessage, error) {
	var out json.RawMessage
	q := url.Values{"id": {strconv.Itoa(campaignID)}}
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/stat/words", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AutoClusterStats returns keyword clusters of an automatic campaign.
func (s *MarketingService) AutoClusterStats(ctx context.Context, campaignID int) (*KeywordStats, error) {
	var out KeywordStats
	q := url.Values{"id": {strconv.Itoa(campaignID)}}
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v2/auto/stat-words", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClusterStats returns search cluster statistics for a campaign.
func (s *MarketingService) ClusterStats(ctx context.Context, campaignID int, from, to time.Time) (json.RawMessage, error) {
	body := map[string]any{
		"id":       campaignID,
		"dateFrom": from.Format(time.DateOnly),
		"dateTo":   to.Format(time.DateOnly),
	}
	var out json.RawMessage
	if err := s.client.post(ctx, CategoryPromotion, "/adv/v0/normquery/stats", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Balance returns the advertising account balance.
func (s *MarketingService) Balance(ctx context.Context) (*AdvertBalance, error) {
	var out AdvertBalance
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Budget returns the unspent budget of a campaign.
func (s *MarketingService) Budget(ctx context.Context, campaignID int) (*CampaignBudget, error) {
	var out CampaignBudget
	q := url.Values{"id": {strconv.Itoa(campaignID)}}
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/budget", q, &out); err != nil {
		return nil, err
	}
	out.CampaignID = campaignID
	return &out, nil
}

// Expenses returns advertising charges within the period.
func (s *MarketingService) Expenses(ctx context.Context, from, to time.Time) ([]Expense, error) {
	var out []Expense
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/upd", periodQuery(from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Payments returns account top-ups within the period.
func (s *MarketingService) Payments(ctx context.Context, from, to time.Time) ([]Payment, error) {
	var out []Payment
	if err := s.client.get(ctx, CategoryPromotion, "/adv/v1/payments", periodQuery(from, to), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func periodQuery(from, to time.Time) url.Values {
	return url.Values{
		"from": {from.Format(time.DateOnly)},
		"to":   {to.Format(time.DateOnly)},
	}
}
