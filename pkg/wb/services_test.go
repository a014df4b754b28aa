package wb_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

func TestFinanceService_Balance(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/account/balance", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"currency":"RUB","current":1000.5,"forWithdraw":750.5}`)
	})

	bal, err := client.Finance.Balance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "RUB", bal.Currency)
	assert.InDelta(t, 250.0, bal.Blocked(), 1e-9)
	assert.InDelta(t, 24.9875, bal.BlockedPercent(), 1e-3)
	assert.Zero(t, (&wb.Balance{}).BlockedPercent())
}

func TestCommonService_Ping(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ping", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"TS":"2025-03-01T12:00:00Z","Status":"OK"}`)
	})

	res, err := client.Common.Ping(context.Background(), wb.CategoryMarketplace)
	require.NoError(t, err)
	assert.Equal(t, "OK", res.Status)
}

func TestCommonService_Commissions(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("locale"))
		writeJSON(w, http.StatusOK, `{"report":[{"subjectID":5,"subjectName":"Boots","kgvpMarketplace":15.5}]}`)
	})

	list, err := client.Common.Commissions(context.Background(), "en")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, 15.5, list[0].KGVPMarketplace, 1e-9)
}

func TestStatisticsService_SalesSummary(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		rrdIDs []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v5/supplier/reportDetailByPeriod", r.URL.Path)
		assert.Equal(t, "2", q.Get("limit"))

		mu.Lock()
		rrdIDs = append(rrdIDs, q.Get("rrdid"))
		mu.Unlock()

		switch q.Get("rrdid") {
		case "0":
			writeJSON(w, http.StatusOK, `[
				{"rrd_id":10,"quantity":1,"retail_amount":1000,"ppvz_for_pay":850,"ppvz_sales_commission":150,"delivery_rub":-50},
				{"rrd_id":11,"quantity":2,"retail_amount":2000,"ppvz_for_pay":1700,"ppvz_sales_commission":300,"penalty":100}
			]`)
		case "11":
			writeJSON(w, http.StatusOK, `[{"rrd_id":12,"quantity":1,"retail_amount":500,"ppvz_for_pay":400,"storage_fee":20}]`)
		default:
			t.Errorf("unexpected rrdid %s", q.Get("rrdid"))
		}
	})

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	sum, err := client.Statistics.SalesSummary(context.Background(), wb.ReportParams{
		DateFrom: from,
		DateTo:   from.AddDate(0, 0, 6),
		Limit:    2,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Rows)
	assert.Equal(t, 4, sum.QuantitySold)
	assert.InDelta(t, 3500.0, sum.Revenue, 1e-9)
	assert.InDelta(t, 2950.0, sum.ToSeller, 1e-9)
	assert.InDelta(t, 50.0, sum.DeliveryCost, 1e-9)
	assert.InDelta(t, 2950.0-50-100-20, sum.NetToSeller(), 1e-9)
	assert.InDelta(t, 450.0/3500*100, sum.CommissionPercent(), 1e-9)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "11"}, rrdIDs)
}

func TestStatisticsService_ReportDetailByPeriod(t *testing.T) {
	t.Parallel()

	t.Run("requires dates", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(http.ResponseWriter, *http.Request) { t.Error("no request expected") })
		_, err := client.Statistics.ReportDetailByPeriod(context.Background(), wb.ReportParams{})
		assert.Error(t, err)
	})

	t.Run("empty page is nil", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "weekly", r.URL.Query().Get("period"))
			writeJSON(w, http.StatusOK, `null`)
		})
		now := time.Now()
		rows, err := client.Statistics.ReportDetailByPeriod(context.Background(), wb.ReportParams{
			DateFrom: now.AddDate(0, 0, -7), DateTo: now, Period: wb.PeriodWeekly,
		})
		require.NoError(t, err)
		assert.Nil(t, rows)
	})
}

func TestReportRow_Totals(t *testing.T) {
	t.Parallel()

	row := wb.ReportRow{SalesCommission: 100, AcquiringFee: 10, DeliveryRub: -40, StorageFee: 5, ForPay: 900, Penalty: 50, AdditionalPayment: 20}
	assert.InDelta(t, 155.0, row.TotalFees(), 1e-9)
	assert.InDelta(t, 870.0, row.NetProfit(), 1e-9)
}

func TestContentService_AllCards(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		cursors []map[string]any
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/content/v2/get/cards/list", r.URL.Path)
		assert.Equal(t, "ru", r.URL.Query().Get("locale"))

		var body struct {
			Settings struct {
				Cursor map[string]any `json:"cursor"`
			} `json:"settings"`
		}
		raw, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(raw, &body))

		mu.Lock()
		cursors = append(cursors, body.Settings.Cursor)
		n := len(cursors)
		mu.Unlock()

		if n == 1 {
			writeJSON(w, http.StatusOK, `{"cards":[{"nmID":1},{"nmID":2}],"cursor":{"updatedAt":"2025-01-01T00:00:00Z","nmID":2,"total":2}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"cards":[{"nmID":3}],"cursor":{"updatedAt":"2025-01-02T00:00:00Z","nmID":3,"total":1}}`)
	})

	cards, err := wb.Collect(client.Content.AllCards(context.Background(), 2, wb.CardsFilter{WithPhoto: -1}))
	require.NoError(t, err)
	require.Len(t, cards, 3)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, cursors, 2)
	assert.NotContains(t, cursors[0], "nmID")
	assert.InDelta(t, 2.0, cursors[1]["nmID"], 1e-9)
	assert.Equal(t, "2025-01-01T00:00:00Z", cursors[1]["updatedAt"])
}

func TestContentService_Mutations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		call     func(*wb.Client) error
		wantPath string
		wantBody string
		reply    string
		wantErr  bool
	}{
		{
			name:     "trash",
			call:     func(c *wb.Client) error { return c.Content.TrashCards(context.Background(), []int{1, 2}) },
			wantPath: "/content/v2/cards/delete/trash",
			wantBody: `{"nmIDs":[1,2]}`,
			reply:    `{"data":null,"error":false,"errorText":""}`,
		},
		{
			name:     "tag default color",
			call:     func(c *wb.Client) error { return c.Content.CreateTag(context.Background(), "sale", "") },
			wantPath: "/content/v2/tag",
			wantBody: `{"name":"sale","color":"D1CFD7"}`,
			reply:    `{"data":null,"error":false,"errorText":""}`,
		},
		{
			name:     "envelope error is returned",
			call:     func(c *wb.Client) error { return c.Content.RecoverCards(context.Background(), []int{9}) },
			wantPath: "/content/v2/cards/recover",
			wantBody: `{"nmIDs":[9]}`,
			reply:    `{"data":null,"error":true,"errorText":"card not in trash"}`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				raw, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, tt.wantBody, string(raw))
				writeJSON(w, http.StatusOK, tt.reply)
			})

			err := tt.call(client)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "card not in trash")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMarketingService(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/adv/v1/promotion/count":
			writeJSON(w, http.StatusOK, `{"all":3,"adverts":[
				{"type":8,"status":9,"count":2,"advert_list":[{"advertId":11},{"advertId":12}]},
				{"type":9,"status":11,"count":1,"advert_list":[{"advertId":13}]}
			]}`)
		case "/adv/v1/balance":
			writeJSON(w, http.StatusOK, `{"balance":500,"net":0,"bonus":120}`)
		case "/adv/v1/budget":
			assert.Equal(t, "11", r.URL.Query().Get("id"))
			writeJSON(w, http.StatusOK, `{"cash":0,"netting":0,"total":300}`)
		case "/adv/v3/fullstats":
			assert.Equal(t, "11,12", r.URL.Query().Get("ids"))
			writeJSON(w, http.StatusOK, `[{"advertId":11,"views":100,"clicks":5},{"advertId":12,"views":50}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	counts, err := client.Marketing.CampaignCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{11, 12, 13}, counts.IDs())
	assert.Equal(t, "paused", counts.Adverts[1].Status.String())

	bal, err := client.Marketing.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 620.0, bal.Total(), 1e-9)

	budget, err := client.Marketing.Budget(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 11, budget.CampaignID)
	assert.Equal(t, 300, budget.Total)

	now := time.Now()
	stats, err := client.Marketing.FullStats(ctx, []int{11, 12}, now.AddDate(0, 0, -1), now)
	require.NoError(t, err)
	assert.Len(t, stats, 2)

	tooMany := make([]int, wb.MaxStatsCampaigns+1)
	for i := range tooMany {
		tooMany[i] = i
	}
	_, err = client.Marketing.FullStats(ctx, tooMany, now, now)
	assert.ErrorContains(t, err, "at most 100 campaigns")

	campaigns, err := client.Marketing.Campaigns(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, campaigns)
}

func TestCampaignStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "active", wb.CampaignActive.String())
	assert.Equal(t, "deleted", wb.CampaignDeleted.String())
	assert.Equal(t, "status(2)", wb.CampaignStatus(2).String())
}

func TestPromotionsService(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/api/v1/calendar/promotions":
			assert.Equal(t, "true", q.Get("allPromo"))
			assert.Equal(t, "1000", q.Get("limit"))
			writeJSON(w, http.StatusOK, `{"data":{"promotions":[{"id":1,"name":"Spring sale","type":"regular"}]}}`)
		case "/api/v1/calendar/promotions/details":
			assert.Equal(t, []string{"1", "2"}, q["promotionIDs"])
			writeJSON(w, http.StatusOK, `{"data":{"promotions":[{"id":1,"inPromoActionTotal":4},{"id":2}]}}`)
		case "/api/v1/calendar/promotions/nomenclatures":
			assert.Equal(t, "1", q.Get("promotionID"))
			assert.Equal(t, "true", q.Get("inAction"))
			writeJSON(w, http.StatusOK, `{"data":{"nomenclatures":[{"id":77,"inAction":true,"planPrice":900}]}}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	promos, err := client.Promotions.Calendar(ctx, wb.PromotionsFilter{AllPromo: true})
	require.NoError(t, err)
	require.Len(t, promos, 1)
	assert.Equal(t, "Spring sale", promos[0].Name)

	details, err := client.Promotions.Details(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, 4, details[0].InPromoActionTotal)

	items, err := client.Promotions.Nomenclatures(ctx, 1, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 77, items[0].ID)
	assert.True(t, items[0].InAction)
}
