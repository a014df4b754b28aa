package wb_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/wb-seller-tracker/pkg/wb"
)

func TestPricesService_UploadPrices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		prices     []wb.Price
		handler    http.HandlerFunc
		wantID     int
		wantErr    bool
		errContain string
	}{
		{
			name:   "accepted upload",
			prices: []wb.Price{{NmID: 1, Price: 1000, Discount: 10}},
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v2/upload/task", r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				assert.JSONEq(t, `{"data":[{"nmID":1,"price":1000,"discount":10}]}`, string(body))
				writeJSON(w, http.StatusOK, `{"data":{"id":123,"alreadyExists":false},"error":false,"errorText":""}`)
			},
			wantID: 123,
		},
		{
			name:       "empty upload is rejected locally",
			prices:     nil,
			wantErr:    true,
			errContain: "nothing to upload",
		},
		{
			name:       "oversized upload is rejected locally",
			prices:     make([]wb.Price, wb.MaxPriceBatch+1),
			wantErr:    true,
			errContain: "exceeds the limit of 1000",
		},
		{
			name:   "envelope error",
			prices: []wb.Price{{NmID: 1, Price: 1}},
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, `{"data":null,"error":true,"errorText":"No goods for process"}`)
			},
			wantErr:    true,
			errContain: "No goods for process",
		},
		{
			name:   "validation error",
			prices: []wb.Price{{NmID: 1, Price: 1}},
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusBadRequest, `{"data":null,"error":true,"errorText":"Invalid Data"}`)
			},
			wantErr:    true,
			errContain: "status 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := tt.handler
			if handler == nil {
				handler = func(http.ResponseWriter, *http.Request) { t.Error("no request expected") }
			}
			client := newTestClient(t, handler)

			task, err := client.Prices.UploadPrices(context.Background(), tt.prices)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContain)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, task.ID)
			assert.Equal(t, "123", task.TaskID())
		})
	}
}

func TestPricesService_UploadClubDiscountsValidates(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Prices.UploadClubDiscounts(context.Background(), []wb.ClubDiscount{{NmID: 5, ClubDiscount: 51}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "within 0-50")
}

func TestPriceStatusLabel(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0: wb.PriceTaskPending,
		1: wb.PriceTaskProcessing,
		2: wb.PriceTaskPending,
		3: wb.PriceTaskCompleted,
		4: wb.PriceTaskCanceled,
		5: wb.PriceTaskCompletedWithErrors,
		6: wb.PriceTaskError,
	}
	for status, want := range tests {
		assert.Equal(t, want, wb.PriceStatusLabel(status))
	}
}

// priceTaskServer serves the history, buffer and goods endpoints from
// fixed payloads. An empty payload answers 404.
func priceTaskServer(t *testing.T, history, buffer, goods string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "77", r.URL.Query().Get("uploadID"))
		var payload string
		switch r.URL.Path {
		case "/api/v2/history/tasks":
			payload = history
		case "/api/v2/buffer/tasks":
			payload = buffer
		case "/api/v2/history/goods/task":
			payload = goods
		}
		if payload == "" {
			writeJSON(w, http.StatusNotFound, `{"data":null,"error":true,"errorText":"not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func TestPricesService_TaskSnapshot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		history    string
		buffer     string
		goods      string
		wantStatus string
		wantTotal  int
		wantDone   int
		wantErrors int
	}{
		{
			name:       "processed task",
			history:    `{"data":{"uploadID":77,"status":3,"overAllGoodsNumber":10,"successGoodsNumber":10}}`,
			wantStatus: wb.PriceTaskCompleted,
			wantTotal:  10,
			wantDone:   10,
		},
		{
			name:       "task still in buffer",
			buffer:     `{"data":{"uploadID":77,"status":1,"overAllGoodsNumber":10,"successGoodsNumber":0}}`,
			wantStatus: wb.PriceTaskProcessing,
			wantTotal:  10,
		},
		{
			name:       "empty history falls back to buffer",
			history:    `{"data":{"uploadID":0}}`,
			buffer:     `{"data":{"uploadID":77,"status":1,"overAllGoodsNumber":3}}`,
			wantStatus: wb.PriceTaskProcessing,
			wantTotal:  3,
		},
		{
			name:       "unknown task is pending",
			wantStatus: wb.PriceTaskPending,
		},
		{
			name:    "partial failure attaches goods errors",
			history: `{"data":{"uploadID":77,"status":5,"overAllGoodsNumber":3,"successGoodsNumber":2}}`,
			goods: `{"data":{"historyGoods":[
				{"nmID":1,"status":2},
				{"nmID":2,"status":2},
				{"nmID":3,"status":3,"errorText":"The new price is several times lower"}
			]}}`,
			wantStatus: wb.PriceTaskCompletedWithErrors,
			wantTotal:  3,
			wantDone:   2,
			wantErrors: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, priceTaskServer(t, tt.history, tt.buffer, tt.goods))

			snap, err := client.Prices.TaskSnapshot(context.Background(), "77")
			require.NoError(t, err)
			assert.Equal(t, "77", snap.TaskID)
			assert.Equal(t, tt.wantStatus, snap.Status)
			assert.Equal(t, tt.wantTotal, snap.TotalItems)
			assert.Equal(t, tt.wantDone, snap.ProcessedItems)
			assert.Len(t, snap.Errors, tt.wantErrors)
		})
	}
}

func TestPricesService_TaskSnapshotInvalidID(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	_, err := client.Prices.TaskSnapshot(context.Background(), "not-a-number")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid price task id")
}

func TestPricesService_TaskSnapshotServerError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := client.Prices.TaskSnapshot(context.Background(), "77")
	assert.ErrorIs(t, err, wb.ErrServer)
}

func TestPricesService_WaitForUpload(t *testing.T) {
	t.Parallel()

	var historyCalls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/history/tasks":
			if historyCalls.Add(1) < 3 {
				writeJSON(w, http.StatusNotFound, `{}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"data":{"uploadID":77,"status":6,"overAllGoodsNumber":1}}`)
		case "/api/v2/buffer/tasks":
			writeJSON(w, http.StatusOK, `{"data":{"uploadID":77,"status":1,"overAllGoodsNumber":1}}`)
		case "/api/v2/history/goods/task":
			writeJSON(w, http.StatusOK, `{"data":{"historyGoods":[{"nmID":9,"errorText":"bad price"}]}}`)
		default:
			http.NotFound(w, r)
		}
	})

	clock := newFakeClock()
	var seen []string
	_, err := client.Prices.WaitForUpload(context.Background(), "77", func(s *wb.TaskSnapshot) {
		seen = append(seen, s.Status)
	}, wb.WithPollerClock(clock.Now, clock.Sleep))

	var failed *wb.TaskFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, wb.PriceTaskError, failed.Status)
	require.Len(t, failed.Errors, 1)

	var good wb.PriceTaskGood
	require.NoError(t, json.Unmarshal(failed.Errors[0], &good))
	assert.Equal(t, "bad price", good.ErrorText)
	assert.Equal(t, []string{wb.PriceTaskProcessing, wb.PriceTaskProcessing, wb.PriceTaskError}, seen)
}

func TestPricesService_AllGoods(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		offsets []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		mu.Lock()
		offsets = append(offsets, offset)
		mu.Unlock()
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		switch offset {
		case "0":
			writeJSON(w, http.StatusOK, `{"data":{"listGoods":[{"nmID":1},{"nmID":2}]}}`)
		case "2":
			writeJSON(w, http.StatusOK, `{"data":{"listGoods":[{"nmID":3}]}}`)
		default:
			t.Errorf("unexpected offset %s", offset)
		}
	})

	goods, err := wb.Collect(client.Prices.AllGoods(context.Background(), 2))
	require.NoError(t, err)
	require.Len(t, goods, 3)
	assert.Equal(t, 3, goods[2].NmID)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "2"}, offsets)
}

func TestPricesService_GoodsByVendorCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{name: "bare list", data: `[{"nmID":1,"vendorCode":"A-1"}]`},
		{name: "wrapped list", data: `{"listGoods":[{"nmID":1,"vendorCode":"A-1"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				body, _ := io.ReadAll(r.Body)
				assert.True(t, strings.Contains(string(body), `"vendorCodes":["A-1"]`))
				writeJSON(w, http.StatusOK, `{"data":`+tt.data+`}`)
			})

			goods, err := client.Prices.GoodsByVendorCodes(context.Background(), []string{"A-1"})
			require.NoError(t, err)
			require.Len(t, goods, 1)
			assert.Equal(t, "A-1", goods[0].VendorCode)
		})
	}
}
