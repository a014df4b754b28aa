// Package main implements a mock Wildberries seller API for local
// development. It simulates price uploads that finish after a delay,
// generated reports, the account balance and per-category rate limit
// headers, so the tracker can run against it with wb.base_url pointed
// at this server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

type priceItem struct {
	NmID     int `json:"nmID"`
	Price    int `json:"price"`
	Discount int `json:"discount"`
}

type upload struct {
	id      int
	created time.Time
	goods   []priceItem
}

type report struct {
	id      string
	family  string
	created time.Time
}

// mockAPI holds the simulated account. Uploads and reports complete once
// delay has passed since they were created.
type mockAPI struct {
	mu         sync.Mutex
	log        *slog.Logger
	now        func() time.Time
	delay      time.Duration
	nextUpload int
	uploads    map[int]*upload
	reports    map[string]*report

	rpm      int
	burst    int
	limiters map[string]*rate.Limiter
}

func newMockAPI(log *slog.Logger, delay time.Duration, rpm, burst int) *mockAPI {
	return &mockAPI{
		log:        log,
		now:        time.Now,
		delay:      delay,
		nextUpload: 100000,
		uploads:    make(map[int]*upload),
		reports:    make(map[string]*report),
		rpm:        rpm,
		burst:      burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	delay := flag.Duration("delay", 5*time.Second, "time until uploads and reports finish")
	rpm := flag.Int("rpm", 60, "requests per minute per category")
	burst := flag.Int("burst", 10, "burst size per category")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	api := newMockAPI(logger, *delay, *rpm, *burst)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock wb server", "addr", addr, "delay", *delay, "rpm", *rpm, "burst", *burst)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, api.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func (m *mockAPI) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ping", m.ping)
	mux.HandleFunc("GET /api/v1/account/balance", m.balance)
	mux.HandleFunc("POST /api/v2/upload/task", m.uploadPrices)
	mux.HandleFunc("GET /api/v2/buffer/tasks", m.bufferTask)
	mux.HandleFunc("GET /api/v2/history/tasks", m.historyTask)
	mux.HandleFunc("GET /api/v2/history/goods/task", m.historyGoods)
	mux.HandleFunc("GET /api/v1/{family}", m.createReport)
	mux.HandleFunc("GET /api/v1/{family}/tasks/{id}/status", m.reportStatus)
	mux.HandleFunc("GET /api/v1/{family}/tasks/{id}/download", m.reportDownload)
	return m.authorize(m.rateLimit(mux))
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeJSON(w, status, map[string]any{
		"title":     title,
		"detail":    detail,
		"status":    status,
		"requestId": uuid.NewString(),
		"origin":    "mock-server",
	})
}

func (m *mockAPI) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			m.log.Warn("request missing Authorization header", "path", r.URL.Path)
			writeProblem(w, http.StatusUnauthorized, "unauthorized", "empty Authorization header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// categoryFor maps a path to the rate limit category it is counted in.
func categoryFor(path string) string {
	switch {
	case path == "/ping":
		return "common"
	case strings.HasPrefix(path, "/api/v1/account/"):
		return "finance"
	case strings.HasPrefix(path, "/api/v2/"):
		return "prices"
	default:
		return "analytics"
	}
}

func (m *mockAPI) limiter(cat string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	lim, ok := m.limiters[cat]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.burst)
		m.limiters[cat] = lim
	}
	return lim
}

func (m *mockAPI) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cat := categoryFor(r.URL.Path)
		lim := m.limiter(cat)
		now := m.now()

		w.Header().Set("X-Ratelimit-Limit", strconv.Itoa(m.burst))
		res := lim.ReserveN(now, 1)
		if wait := res.DelayFrom(now); wait > 0 {
			res.CancelAt(now)
			retry := max(int(math.Ceil(wait.Seconds())), 1)
			w.Header().Set("X-Ratelimit-Retry", strconv.Itoa(retry))
			w.Header().Set("X-Ratelimit-Reset", strconv.Itoa(retry))
			w.Header().Set("X-Ratelimit-Remaining", "0")
			m.log.Info("rate limited", "category", cat, "retry", retry)
			writeProblem(w, http.StatusTooManyRequests, "too many requests", "limited by category "+cat)
			return
		}
		w.Header().Set("X-Ratelimit-Remaining", strconv.Itoa(max(int(lim.TokensAt(now)), 0)))
		next.ServeHTTP(w, r)
	})
}

func (m *mockAPI) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"TS":     m.now().UTC().Format(time.RFC3339),
		"Status": "OK",
	})
}

func (m *mockAPI) balance(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"currency":    "RUB",
		"current":     152340.5,
		"forWithdraw": 98000,
	})
}

func envelope(data any) map[string]any {
	return map[string]any{"data": data, "error": false, "errorText": ""}
}

func (m *mockAPI) uploadPrices(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Data []priceItem `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Data) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"data": nil, "error": true, "errorText": "Invalid data format",
		})
		return
	}

	m.mu.Lock()
	m.nextUpload++
	u := &upload{id: m.nextUpload, created: m.now(), goods: body.Data}
	m.uploads[u.id] = u
	m.mu.Unlock()

	m.log.Info("price upload accepted", "id", u.id, "goods", len(u.goods))
	writeJSON(w, http.StatusOK, envelope(map[string]any{"id": u.id, "alreadyExists": false}))
}

func (m *mockAPI) lookupUpload(r *http.Request) (*upload, bool) {
	id, err := strconv.Atoi(r.URL.Query().Get("uploadID"))
	if err != nil {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[id]
	return u, ok
}

func (m *mockAPI) finished(created time.Time) bool {
	return !m.now().Before(created.Add(m.delay))
}

func goodError(g priceItem) string {
	switch {
	case g.Price <= 0:
		return "The new price is zero"
	case g.Discount < 0 || g.Discount > 99:
		return "The discount is out of range"
	default:
		return ""
	}
}

// uploadStatus returns the history status code of a finished upload.
func uploadStatus(u *upload) (status, success int) {
	for _, g := range u.goods {
		if goodError(g) == "" {
			success++
		}
	}
	switch {
	case success == len(u.goods):
		return 3, success
	case success == 0:
		return 6, success
	default:
		return 5, success
	}
}

func (m *mockAPI) bufferTask(w http.ResponseWriter, r *http.Request) {
	u, ok := m.lookupUpload(r)
	if !ok || m.finished(u.created) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{}))
		return
	}
	writeJSON(w, http.StatusOK, envelope(map[string]any{
		"uploadID":           u.id,
		"status":             1,
		"uploadDate":         u.created.UTC(),
		"overAllGoodsNumber": len(u.goods),
		"successGoodsNumber": 0,
	}))
}

func (m *mockAPI) historyTask(w http.ResponseWriter, r *http.Request) {
	u, ok := m.lookupUpload(r)
	if !ok || !m.finished(u.created) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{}))
		return
	}
	status, success := uploadStatus(u)
	writeJSON(w, http.StatusOK, envelope(map[string]any{
		"uploadID":           u.id,
		"status":             status,
		"uploadDate":         u.created.UTC(),
		"activationDate":     u.created.Add(m.delay).UTC(),
		"overAllGoodsNumber": len(u.goods),
		"successGoodsNumber": success,
	}))
}

func (m *mockAPI) historyGoods(w http.ResponseWriter, r *http.Request) {
	u, ok := m.lookupUpload(r)
	if !ok || !m.finished(u.created) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{"historyGoods": []any{}}))
		return
	}
	goods := make([]map[string]any, 0, len(u.goods))
	for _, g := range u.goods {
		status := 2
		errText := goodError(g)
		if errText != "" {
			status = 3
		}
		goods = append(goods, map[string]any{
			"nmID":                g.NmID,
			"vendorCode":          "vc-" + strconv.Itoa(g.NmID),
			"price":               g.Price,
			"currencyIsoCode4217": "RUB",
			"discount":            g.Discount,
			"status":              status,
			"errorText":           errText,
		})
	}
	writeJSON(w, http.StatusOK, envelope(map[string]any{"uploadID": u.id, "historyGoods": goods}))
}

var reportFamilies = map[string]bool{
	"warehouse_remains": true,
	"acceptance_report": true,
	"paid_storage":      true,
}

func (m *mockAPI) createReport(w http.ResponseWriter, r *http.Request) {
	family := r.PathValue("family")
	if !reportFamilies[family] {
		writeProblem(w, http.StatusNotFound, "not found", "unknown report "+family)
		return
	}
	if family != "warehouse_remains" && (r.URL.Query().Get("dateFrom") == "" || r.URL.Query().Get("dateTo") == "") {
		writeProblem(w, http.StatusBadRequest, "bad request", "dateFrom and dateTo are required")
		return
	}

	rep := &report{id: uuid.NewString(), family: family, created: m.now()}
	m.mu.Lock()
	m.reports[rep.id] = rep
	m.mu.Unlock()

	m.log.Info("report requested", "family", family, "task", rep.id)
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"taskId": rep.id}})
}

func (m *mockAPI) lookupReport(r *http.Request) (*report, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[r.PathValue("id")]
	if !ok || rep.family != r.PathValue("family") {
		return nil, false
	}
	return rep, true
}

func (m *mockAPI) reportStatus(w http.ResponseWriter, r *http.Request) {
	rep, ok := m.lookupReport(r)
	if !ok {
		writeProblem(w, http.StatusNotFound, "not found", "unknown task")
		return
	}

	status := "done"
	switch elapsed := m.now().Sub(rep.created); {
	case elapsed < m.delay/2:
		status = "new"
	case elapsed < m.delay:
		status = "processing"
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"id": rep.id, "status": status}})
}

func (m *mockAPI) reportDownload(w http.ResponseWriter, r *http.Request) {
	rep, ok := m.lookupReport(r)
	if !ok {
		writeProblem(w, http.StatusNotFound, "not found", "unknown task")
		return
	}
	if !m.finished(rep.created) {
		writeProblem(w, http.StatusConflict, "conflict", "report is not ready")
		return
	}
	writeJSON(w, http.StatusOK, reportRows(rep.family))
}

func reportRows(family string) []map[string]any {
	switch family {
	case "warehouse_remains":
		return []map[string]any{
			{
				"brand": "Acme", "subjectName": "Socks", "vendorCode": "SOCK-1", "nmId": 101,
				"barcode": "2000000000011", "techSize": "42",
				"warehouses": []map[string]any{
					{"warehouseName": "Koledino", "quantity": 12},
					{"warehouseName": "Kazan", "quantity": 4},
				},
			},
			{
				"brand": "Acme", "subjectName": "Caps", "vendorCode": "CAP-7", "nmId": 102,
				"barcode": "2000000000028", "techSize": "0",
				"warehouses": []map[string]any{{"warehouseName": "Koledino", "quantity": 30}},
			},
		}
	case "paid_storage":
		return []map[string]any{
			{"date": "2025-03-01", "warehouse": "Koledino", "nmId": 101, "barcode": "2000000000011", "warehousePrice": 3.42},
		}
	default:
		return []map[string]any{
			{"count": 20, "giCreateDate": "2025-03-01", "nmID": 101, "subjectName": "Socks", "total": 60},
		}
	}
}
