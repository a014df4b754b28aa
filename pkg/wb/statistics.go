package wb

import (
	"context"
	"fmt"
	"iter"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MaxReportRows is the largest page reportDetailByPeriod returns.
const MaxReportRows = 100000

// ReportPeriod selects daily or weekly realization reports.
type ReportPeriod string

// Report periods.
const (
	PeriodDaily  ReportPeriod = "daily"
	PeriodWeekly ReportPeriod = "weekly"
)

// StatisticsService reads sales and realization statistics.
type StatisticsService struct {
	client *Client
}

// ReportRow is one row of the realization report.
type ReportRow struct {
	RealizationReportID int     `json:"realizationreport_id"`
	DateFrom            string  `json:"date_from"`
	DateTo              string  `json:"date_to"`
	CreateDT            string  `json:"create_dt"`
	RrdID               int64   `json:"rrd_id"`
	GiID                int64   `json:"gi_id"`
	SubjectName         string  `json:"subject_name"`
	NmID                int     `json:"nm_id"`
	BrandName           string  `json:"brand_name"`
	SaName              string  `json:"sa_name"`
	TsName              string  `json:"ts_name"`
	Barcode             string  `json:"barcode"`
	DocTypeName         string  `json:"doc_type_name"`
	Quantity            int     `json:"quantity"`
	RetailPrice         float64 `json:"retail_price"`
	RetailAmount        float64 `json:"retail_amount"`
	SalePercent         float64 `json:"sale_percent"`
	CommissionPercent   float64 `json:"commission_percent"`
	OfficeName          string  `json:"office_name"`
	SupplierOperName    string  `json:"supplier_oper_name"`
	OrderDT             string  `json:"order_dt"`
	SaleDT              string  `json:"sale_dt"`
	RrDT                string  `json:"rr_dt"`
	ShkID               int64   `json:"shk_id"`
	RetailPriceWithDisc float64 `json:"retail_price_withdisc_rub"`
	DeliveryAmount      int     `json:"delivery_amount"`
	ReturnAmount        int     `json:"return_amount"`
	DeliveryRub         float64 `json:"delivery_rub"`
	ProductDiscount     float64 `json:"product_discount_for_report"`
	SupplierPromo       float64 `json:"supplier_promo"`
	SalesCommission     float64 `json:"ppvz_sales_commission"`
	ForPay              float64 `json:"ppvz_for_pay"`
	Reward              float64 `json:"ppvz_reward"`
	AcquiringFee        float64 `json:"acquiring_fee"`
	AcquiringPercent    float64 `json:"acquiring_percent"`
	AcquiringBank       string  `json:"acquiring_bank"`
	BonusTypeName       string  `json:"bonus_type_name"`
	SiteCountry         string  `json:"site_country"`
	Penalty             float64 `json:"penalty"`
	AdditionalPayment   float64 `json:"additional_payment"`
	RebillLogisticCost  float64 `json:"rebill_logistic_cost"`
	StorageFee          float64 `json:"storage_fee"`
	Deduction           float64 `json:"deduction"`
	Acceptance          float64 `json:"acceptance"`
	Srid                string  `json:"srid"`
}

// TotalFees returns commission, acquiring, delivery and storage.
func (r *ReportRow) TotalFees() float64 {
	return r.SalesCommission + r.AcquiringFee + math.Abs(r.DeliveryRub) + r.StorageFee
}

// NetProfit returns the payout less penalties plus additional payments.
func (r *ReportRow) NetProfit() float64 {
	return r.ForPay - r.Penalty + r.AdditionalPayment
}

// ReportParams selects a slice of the realization report.
type ReportParams struct {
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	// RrdID is the row id to continue after; zero starts from the beginning.
	RrdID  int64
	Period ReportPeriod
}

// ReportDetailByPeriod returns one page of the realization report. An
// empty page is returned as a nil slice.
func (s *StatisticsService) ReportDetailByPeriod(ctx context.Context, p ReportParams) ([]ReportRow, error) {
	if p.DateFrom.IsZero() || p.DateTo.IsZero() {
		return nil, fmt.Errorf("report period requires both dates")
	}
	q := url.Values{
		"dateFrom": {p.DateFrom.Format(time.DateOnly)},
		"dateTo":   {p.DateTo.Format(time.DateOnly)},
		"limit":    {strconv.Itoa(clampLimit(p.Limit, MaxReportRows))},
		"rrdid":    {strconv.FormatInt(p.RrdID, 10)},
	}
	if p.Period != "" {
		q.Set("period", string(p.Period))
	}

	res, err := s.client.exec.Execute(ctx, Request{
		Method:   http.MethodGet,
		Path:     "/api/v5/supplier/reportDetailByPeriod",
		Category: CategoryStatistics,
		Query:    q,
	})
	if err != nil {
		return nil, err
	}
	var rows []ReportRow
	if err := res.Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AllReportDetails iterates over the whole report, continuing each page
// after the last row id of the previous one.
func (s *StatisticsService) AllReportDetails(ctx context.Context, p ReportParams) iter.Seq2[ReportRow, error] {
	p.Limit = clampLimit(p.Limit, MaxReportRows)
	return func(yield func(ReportRow, error) bool) {
		for {
			rows, err := s.ReportDetailByPeriod(ctx, p)
			if err != nil {
				yield(ReportRow{}, err)
				return
			}
			for _, r := range rows {
				if !yield(r, nil) {
					return
				}
			}
			if len(rows) < p.Limit {
				return
			}
			p.RrdID = rows[len(rows)-1].RrdID
		}
	}
}

// SalesSummary aggregates realization report rows.
type SalesSummary struct {
	DateFrom          time.Time `json:"date_from"`
	DateTo            time.Time `json:"date_to"`
	Rows              int       `json:"rows"`
	QuantitySold      int       `json:"quantity_sold"`
	Revenue           float64   `json:"revenue"`
	ToSeller          float64   `json:"to_seller"`
	Commission        float64   `json:"commission"`
	DeliveryCost      float64   `json:"delivery_cost"`
	AcquiringFee      float64   `json:"acquiring_fee"`
	Penalty           float64   `json:"penalty"`
	StorageFee        float64   `json:"storage_fee"`
	AdditionalPayment float64   `json:"additional_payment"`
}

// CommissionPercent returns commission as a percentage of revenue.
func (s *SalesSummary) CommissionPercent() float64 {
	if s.Revenue == 0 {
		return 0
	}
	return s.Commission / s.Revenue * 100
}

// NetToSeller returns the payout after delivery, penalties and storage.
func (s *SalesSummary) NetToSeller() float64 {
	return s.ToSeller - s.DeliveryCost - s.Penalty - s.StorageFee + s.AdditionalPayment
}

// Add folds one row into the summary.
func (s *SalesSummary) Add(r *ReportRow) {
	s.Rows++
	s.QuantitySold += r.Quantity
	s.Revenue += r.RetailAmount
	s.ToSeller += r.ForPay
	s.Commission += r.SalesCommission
	s.DeliveryCost += math.Abs(r.DeliveryRub)
	s.AcquiringFee += r.AcquiringFee
	s.Penalty += r.Penalty
	s.StorageFee += r.StorageFee
	s.AdditionalPayment += r.AdditionalPayment
}

// SalesSummary reads the whole report for the period and aggregates it.
func (s *StatisticsService) SalesSummary(ctx context.Context, p ReportParams) (*SalesSummary, error) {
	sum := &SalesSummary{DateFrom: p.DateFrom, DateTo: p.DateTo}
	for row, err := range s.AllReportDetails(ctx, p) {
		if err != nil {
			return nil, fmt.Errorf("reading sales report: %w", err)
		}
		sum.Add(&row)
	}
	return sum, nil
}
