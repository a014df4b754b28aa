package wb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ReportFamily names a generated-report endpoint family. Each family is
// created, polled and downloaded through the same three paths.
type ReportFamily string

// Generated report families.
const (
	ReportWarehouseRemains ReportFamily = "warehouse_remains"
	ReportAcceptance       ReportFamily = "acceptance_report"
	ReportPaidStorage      ReportFamily = "paid_storage"
)

// ReportFamilies returns every generated report family.
func ReportFamilies() []ReportFamily {
	return []ReportFamily{ReportWarehouseRemains, ReportAcceptance, ReportPaidStorage}
}

// ParseReportFamily resolves a family name.
func ParseReportFamily(s string) (ReportFamily, error) {
	for _, f := range ReportFamilies() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown report family %q", s)
}

// ReportsService reads seller analytics and drives generated reports.
type ReportsService struct {
	client *Client
}

// ReportTask is the creation response of a generated report.
type ReportTask struct {
	TaskID    string    `json:"taskId"`
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// ReportTaskStatus is one status read of a generated report.
type ReportTaskStatus struct {
	TaskID    string    `json:"id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
	FileURL   string    `json:"fileUrl,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// ReportOptions are the optional parameters of a generated report. Date
// bounds are required by acceptance and paid storage reports.
type ReportOptions struct {
	DateFrom time.Time
	DateTo   time.Time
	// GroupBy holds warehouse remains grouping flags such as groupByBrand.
	GroupBy []string
	Locale  string
}

func (o ReportOptions) query(family ReportFamily) (url.Values, error) {
	q := url.Values{}
	switch family {
	case ReportAcceptance, ReportPaidStorage:
		if o.DateFrom.IsZero() || o.DateTo.IsZero() {
			return nil, fmt.Errorf("%s report requires both dates", family)
		}
	}
	if !o.DateFrom.IsZero() {
		q.Set("dateFrom", o.DateFrom.Format(time.DateOnly))
	}
	if !o.DateTo.IsZero() {
		q.Set("dateTo", o.DateTo.Format(time.DateOnly))
	}
	for _, g := range o.GroupBy {
		q.Set(g, "true")
	}
	if o.Locale != "" {
		q.Set("locale", o.Locale)
	}
	return q, nil
}

// Create starts a generated report and returns its task.
func (s *ReportsService) Create(ctx context.Context, family ReportFamily, opts ReportOptions) (*ReportTask, error) {
	q, err := opts.query(family)
	if err != nil {
		return nil, err
	}
	// The task is either enveloped in data or returned bare.
	var out struct {
		ReportTask
		Data *ReportTask `json:"data"`
	}
	if err := s.client.get(ctx, CategoryAnalytics, "/api/v1/"+string(family), q, &out); err != nil {
		return nil, err
	}
	task := out.ReportTask
	if out.Data != nil {
		task = *out.Data
	}
	if task.TaskID == "" {
		return nil, fmt.Errorf("creating %s report: response has no task id", family)
	}
	return &task, nil
}

// Status reads the state of a generated report.
func (s *ReportsService) Status(ctx context.Context, family ReportFamily, taskID string) (*ReportTaskStatus, error) {
	var out struct {
		ReportTaskStatus
		TaskIDAlt string            `json:"taskId"`
		Data      *ReportTaskStatus `json:"data"`
	}
	path := "/api/v1/" + string(family) + "/tasks/" + url.PathEscape(taskID) + "/status"
	if err := s.client.get(ctx, CategoryAnalytics, path, nil, &out); err != nil {
		return nil, err
	}
	st := out.ReportTaskStatus
	if out.Data != nil {
		st = *out.Data
	}
	if st.TaskID == "" {
		st.TaskID = out.TaskIDAlt
	}
	if st.TaskID == "" {
		st.TaskID = taskID
	}
	return &st, nil
}

// Download returns the rows of a finished report undecoded.
func (s *ReportsService) Download(ctx context.Context, family ReportFamily, taskID string) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/api/v1/" + string(family) + "/tasks/" + url.PathEscape(taskID) + "/download"
	if err := s.client.get(ctx, CategoryAnalytics, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// TaskSnapshot adapts Status to the poller.
func (s *ReportsService) TaskSnapshot(family ReportFamily) CheckFunc {
	return func(ctx context.Context, taskID string) (*TaskSnapshot, error) {
		st, err := s.Status(ctx, family, taskID)
		if err != nil {
			return nil, err
		}
		snap := &TaskSnapshot{TaskID: st.TaskID, Status: st.Status}
		if st.Error != "" {
			msg, _ := json.Marshal(map[string]string{"error": st.Error})
			snap.Errors = []json.RawMessage{msg}
			snap.ErrorsCount = 1
		}
		snap.Raw, _ = json.Marshal(st)
		return snap, nil
	}
}

// NewReportPoller creates a poller for a generated report using
// ReportTaskClassifier. Reports are slower than uploads, so the initial
// interval defaults to ten seconds.
func (s *ReportsService) NewReportPoller(family ReportFamily, taskID string, opts ...PollerOption) *Poller {
	all := append([]PollerOption{WithClassifier(ReportTaskClassifier), WithInterval(10 * time.Second)}, opts...)
	return s.client.NewPoller(taskID, s.TaskSnapshot(family), all...)
}

// Wait polls a generated report until it finishes.
func (s *ReportsService) Wait(
	ctx context.Context,
	family ReportFamily,
	taskID string,
	onProgress ProgressFunc,
	opts ...PollerOption,
) (*TaskSnapshot, error) {
	return s.NewReportPoller(family, taskID, opts...).Wait(ctx, onProgress)
}

// Generate creates a report, waits for it and downloads the result.
func (s *ReportsService) Generate(
	ctx context.Context,
	family ReportFamily,
	opts ReportOptions,
	onProgress ProgressFunc,
	pollOpts ...PollerOption,
) (json.RawMessage, error) {
	task, err := s.Create(ctx, family, opts)
	if err != nil {
		return nil, err
	}
	if _, err := s.Wait(ctx, family, task.TaskID, onProgress, pollOpts...); err != nil {
		return nil, err
	}
	return s.Download(ctx, family, task.TaskID)
}

// ExciseReport returns marked goods sold within the period.
func (s *ReportsService) ExciseReport(ctx context.Context, from, to time.Time) (json.RawMessage, error) {
	body := map[string]string{
		"dateFrom": from.Format(time.DateOnly),
		"dateTo":   to.Format(time.DateOnly),
	}
	return postData[json.RawMessage](ctx, s.client, CategoryAnalytics, "/api/v1/analytics/excise-report", body)
}

// DeductionTab selects a tab of the warehouse measurements report.
type DeductionTab string

// Measurement tabs.
const (
	DeductionPenalty   DeductionTab = "penalty"
	DeductionDeduction DeductionTab = "deduction"
)

// WarehouseMeasurements returns penalties or deductions for incorrect
// package dimensions. A zero from is not sent.
func (s *ReportsService) WarehouseMeasurements(
	ctx context.Context,
	tab DeductionTab,
	from, to time.Time,
	limit, offset int,
) (json.RawMessage, error) {
	q := url.Values{
		"dateTo": {to.UTC().Format(time.RFC3339)},
		"tab":    {string(tab)},
		"limit":  {strconv.Itoa(clampLimit(limit, 1000))},
		"offset": {strconv.Itoa(max(offset, 0))},
	}
	if !from.IsZero() {
		q.Set("dateFrom", from.UTC().Format(time.RFC3339))
	}
	return s.raw(ctx, "/api/v1/analytics/warehouse-measurements", q)
}

// AntifraudDetails returns self-purchase deductions for the week of date.
func (s *ReportsService) AntifraudDetails(ctx context.Context, date time.Time) (json.RawMessage, error) {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.Format(time.DateOnly))
	}
	return s.raw(ctx, "/api/v1/analytics/antifraud-details", q)
}

// IncorrectAttachments returns substitution penalties within the period.
func (s *ReportsService) IncorrectAttachments(ctx context.Context, from, to time.Time) (json.RawMessage, error) {
	return s.raw(ctx, "/api/v1/analytics/incorrect-attachments", dateRangeQuery(from, to))
}

// GoodsLabeling returns labeling penalties within the period.
func (s *ReportsService) GoodsLabeling(ctx context.Context, from, to time.Time) (json.RawMessage, error) {
	return s.raw(ctx, "/api/v1/analytics/goods-labeling", dateRangeQuery(from, to))
}

// CharacteristicsChange returns penalties for changed characteristics.
func (s *ReportsService) CharacteristicsChange(ctx context.Context, from, to time.Time) (json.RawMessage, error) {
	return s.raw(ctx, "/api/v1/analytics/characteristics-change", dateRangeQuery(from, to))
}

// RegionSale returns sales grouped by region.
func (s *ReportsService) RegionSale(ctx context.Context, from, to time.Time) (json.RawMessage, error) {
	var out struct {
		Report json.RawMessage `json:"report"`
	}
	if err := s.client.get(ctx, CategoryAnalytics, "/api/v1/analytics/region-sale", dateRangeQuery(from, to), &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

// BrandParentSubject is a parent category in which a brand sells.
type BrandParentSubject struct {
	ParentID   int    `json:"parentId"`
	ParentName string `json:"parentName"`
}

// Brands returns the seller's brands.
func (s *ReportsService) Brands(ctx context.Context) ([]string, error) {
	return getData[[]string](ctx, s.client, CategoryAnalytics, "/api/v1/analytics/brand-share/brands", nil)
}

// BrandParentSubjects returns the parent categories of a brand.
func (s *ReportsService) BrandParentSubjects(ctx context.Context, brand string, from, to time.Time) ([]BrandParentSubject, error) {
	q := dateRangeQuery(from, to)
	q.Set("brand", brand)
	return getData[[]BrandParentSubject](ctx, s.client, CategoryAnalytics, "/api/v1/analytics/brand-share/parent-subjects", q)
}

// BrandShare returns the brand's share of sales in a parent category.
func (s *ReportsService) BrandShare(ctx context.Context, parentID int, brand string, from, to time.Time) (json.RawMessage, error) {
	q := dateRangeQuery(from, to)
	q.Set("parentId", strconv.Itoa(parentID))
	q.Set("brand", brand)
	var out struct {
		Report json.RawMessage `json:"report"`
	}
	if err := s.client.get(ctx, CategoryAnalytics, "/api/v1/analytics/brand-share", q, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}

func (s *ReportsService) raw(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	var out json.RawMessage
	if err := s.client.get(ctx, CategoryAnalytics, path, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func dateRangeQuery(from, to time.Time) url.Values {
	return url.Values{
		"dateFrom": {from.Format(time.DateOnly)},
		"dateTo":   {to.Format(time.DateOnly)},
	}
}
