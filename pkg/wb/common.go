package wb

import (
	"context"
	"encoding/json"
	"net/url"
	"time"
)

// CommonService covers endpoints shared by every seller: health check,
// seller profile and tariffs.
type CommonService struct {
	client *Client
}

// PingResult is the response of the connectivity check.
type PingResult struct {
	TS     string `json:"TS"`
	Status string `json:"Status"`
}

// SellerInfo is the seller's profile.
type SellerInfo struct {
	Name      string `json:"name"`
	SID       string `json:"sid"`
	TradeMark string `json:"tradeMark"`
}

// Ping checks connectivity and token validity against cat's host.
func (s *CommonService) Ping(ctx context.Context, cat Category) (*PingResult, error) {
	var out PingResult
	if err := s.client.get(ctx, cat, "/ping", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SellerInfo returns the seller profile.
func (s *CommonService) SellerInfo(ctx context.Context) (*SellerInfo, error) {
	var out SellerInfo
	if err := s.client.get(ctx, CategoryCommon, "/api/v1/seller-info", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// BoxTariffs returns box delivery and storage tariffs for date. The
// payload is returned undecoded; its shape changes with the tariff season.
func (s *CommonService) BoxTariffs(ctx context.Context, date time.Time) (json.RawMessage, error) {
	q := url.Values{}
	if !date.IsZero() {
		q.Set("date", date.Format(time.DateOnly))
	}
	var out json.RawMessage
	if err := s.client.get(ctx, CategoryCommon, "/api/v1/tariffs/box", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Commission is the marketplace commission for one subject.
type Commission struct {
	ParentID            int     `json:"parentID"`
	ParentName          string  `json:"parentName"`
	SubjectID           int     `json:"subjectID"`
	SubjectName         string  `json:"subjectName"`
	KGVPMarketplace     float64 `json:"kgvpMarketplace"`
	KGVPSupplier        float64 `json:"kgvpSupplier"`
	KGVPSupplierExpress float64 `json:"kgvpSupplierExpress"`
	PaidStorageKGVP     float64 `json:"paidStorageKgvp"`
}

// Commissions returns commission rates for every subject.
func (s *CommonService) Commissions(ctx context.Context, locale string) ([]Commission, error) {
	q := url.Values{}
	if locale != "" {
		q.Set("locale", locale)
	}
	var out struct {
		Report []Commission `json:"report"`
	}
	if err := s.client.get(ctx, CategoryCommon, "/api/v1/tariffs/commission", q, &out); err != nil {
		return nil, err
	}
	return out.Report, nil
}
