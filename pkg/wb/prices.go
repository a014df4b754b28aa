package wb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
	"time"
)

// MaxPriceBatch is the largest page and upload size the prices API accepts.
const MaxPriceBatch = 1000

// Upload task statuses as reported by the prices API.
const (
	priceStatusProcessing         = 1
	priceStatusProcessed          = 3
	priceStatusCanceled           = 4
	priceStatusProcessedWithError = 5
	priceStatusFailed             = 6
)

// Upload task status labels used in snapshots.
const (
	PriceTaskPending             = "pending"
	PriceTaskProcessing          = "processing"
	PriceTaskCompleted           = "completed"
	PriceTaskCompletedWithErrors = "completed_with_errors"
	PriceTaskCanceled            = "canceled"
	PriceTaskError               = "error"
)

// PriceTaskClassifier covers price and discount upload tasks.
var PriceTaskClassifier = StatusClassifier{
	Name:    "prices",
	Success: []string{PriceTaskCompleted, PriceTaskCompletedWithErrors},
	Failure: []string{PriceTaskCanceled, PriceTaskError},
}

// PriceStatusLabel maps a numeric upload status to its label.
func PriceStatusLabel(status int) string {
	switch status {
	case priceStatusProcessing:
		return PriceTaskProcessing
	case priceStatusProcessed:
		return PriceTaskCompleted
	case priceStatusCanceled:
		return PriceTaskCanceled
	case priceStatusProcessedWithError:
		return PriceTaskCompletedWithErrors
	case priceStatusFailed:
		return PriceTaskError
	default:
		return PriceTaskPending
	}
}

// PricesService manages prices and discounts.
type PricesService struct {
	client *Client
}

// Price sets the price and discount of a product.
type Price struct {
	NmID     int `json:"nmID"`
	Price    int `json:"price,omitempty"`
	Discount int `json:"discount,omitempty"`
}

// SizePriceUpdate sets the price of one size of a product.
type SizePriceUpdate struct {
	NmID   int `json:"nmID"`
	SizeID int `json:"sizeID"`
	Price  int `json:"price"`
}

// ClubDiscount sets the WB Club discount of a product, 0 to 50 percent.
type ClubDiscount struct {
	NmID         int `json:"nmID"`
	ClubDiscount int `json:"clubDiscount"`
}

// UploadTask identifies an accepted upload.
type UploadTask struct {
	ID            int  `json:"id"`
	AlreadyExists bool `json:"alreadyExists"`
}

// TaskID returns the upload id as a task id.
func (u *UploadTask) TaskID() string {
	return strconv.Itoa(u.ID)
}

// PriceTask is the state of an upload in history or in the buffer.
type PriceTask struct {
	UploadID           int        `json:"uploadID"`
	Status             int        `json:"status"`
	UploadDate         *time.Time `json:"uploadDate"`
	ActivationDate     *time.Time `json:"activationDate"`
	OverAllGoodsNumber int        `json:"overAllGoodsNumber"`
	SuccessGoodsNumber int        `json:"successGoodsNumber"`
}

// PriceTaskGood is the per-product result of an upload.
type PriceTaskGood struct {
	NmID         int    `json:"nmID"`
	VendorCode   string `json:"vendorCode"`
	SizeID       int    `json:"sizeID"`
	TechSizeName string `json:"techSizeName"`
	Price        int    `json:"price"`
	Currency     string `json:"currencyIsoCode4217"`
	Discount     int    `json:"discount"`
	ClubDiscount int    `json:"clubDiscount"`
	Status       int    `json:"status"`
	ErrorText    string `json:"errorText"`
}

// SizePrice is the price of one size within GoodPrice.
type SizePrice struct {
	SizeID              int     `json:"sizeID"`
	Price               int     `json:"price"`
	DiscountedPrice     float64 `json:"discountedPrice"`
	ClubDiscountedPrice float64 `json:"clubDiscountedPrice"`
	TechSizeName        string  `json:"techSizeName"`
}

// GoodPrice is a product with its current prices.
type GoodPrice struct {
	NmID              int         `json:"nmID"`
	VendorCode        string      `json:"vendorCode"`
	Sizes             []SizePrice `json:"sizes"`
	Currency          string      `json:"currencyIsoCode4217"`
	Discount          int         `json:"discount"`
	ClubDiscount      int         `json:"clubDiscount"`
	EditableSizePrice bool        `json:"editableSizePrice"`
	IsBadTurnover     bool        `json:"isBadTurnover"`
}

// GoodSize is the price of one size of a product with per-size pricing.
type GoodSize struct {
	NmID                int     `json:"nmID"`
	SizeID              int     `json:"sizeID"`
	VendorCode          string  `json:"vendorCode"`
	Price               int     `json:"price"`
	Currency            string  `json:"currencyIsoCode4217"`
	DiscountedPrice     float64 `json:"discountedPrice"`
	ClubDiscountedPrice float64 `json:"clubDiscountedPrice"`
	Discount            int     `json:"discount"`
	ClubDiscount        int     `json:"clubDiscount"`
	TechSizeName        string  `json:"techSizeName"`
	EditableSizePrice   bool    `json:"editableSizePrice"`
}

// QuarantineGood is a product held back because of a suspicious price change.
type QuarantineGood struct {
	NmID         int     `json:"nmID"`
	SizeID       int     `json:"sizeID"`
	TechSizeName string  `json:"techSizeName"`
	Currency     string  `json:"currencyIsoCode4217"`
	NewPrice     float64 `json:"newPrice"`
	OldPrice     float64 `json:"oldPrice"`
	NewDiscount  int     `json:"newDiscount"`
	OldDiscount  int     `json:"oldDiscount"`
	PriceDiff    float64 `json:"priceDiff"`
}

// UploadPrices uploads product prices and discounts.
func (s *PricesService) UploadPrices(ctx context.Context, prices []Price) (*UploadTask, error) {
	return s.upload(ctx, "/api/v2/upload/task", prices, len(prices))
}

// UploadSizePrices uploads per-size prices.
func (s *PricesService) UploadSizePrices(ctx context.Context, prices []SizePriceUpdate) (*UploadTask, error) {
	return s.upload(ctx, "/api/v2/upload/task/size", prices, len(prices))
}

// UploadClubDiscounts uploads WB Club discounts.
func (s *PricesService) UploadClubDiscounts(ctx context.Context, discounts []ClubDiscount) (*UploadTask, error) {
	for _, d := range discounts {
		if d.ClubDiscount < 0 || d.ClubDiscount > 50 {
			return nil, fmt.Errorf("club discount for %d must be within 0-50, got %d", d.NmID, d.ClubDiscount)
		}
	}
	return s.upload(ctx, "/api/v2/upload/task/club-discount", discounts, len(discounts))
}

func (s *PricesService) upload(ctx context.Context, path string, items any, n int) (*UploadTask, error) {
	if n == 0 {
		return nil, errors.New("nothing to upload")
	}
	if n > MaxPriceBatch {
		return nil, fmt.Errorf("upload of %d items exceeds the limit of %d", n, MaxPriceBatch)
	}
	task, err := postData[UploadTask](ctx, s.client, CategoryPrices, path, map[string]any{"data": items})
	if err != nil {
		return nil, fmt.Errorf("uploading prices: %w", err)
	}
	return &task, nil
}

// ProcessedTask returns an upload that has left the buffer.
func (s *PricesService) ProcessedTask(ctx context.Context, uploadID int) (*PriceTask, error) {
	q := url.Values{"uploadID": {strconv.Itoa(uploadID)}}
	task, err := getData[PriceTask](ctx, s.client, CategoryPrices, "/api/v2/history/tasks", q)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// BufferTask returns an upload that is still waiting to be processed.
func (s *PricesService) BufferTask(ctx context.Context, uploadID int) (*PriceTask, error) {
	q := url.Values{"uploadID": {strconv.Itoa(uploadID)}}
	task, err := getData[PriceTask](ctx, s.client, CategoryPrices, "/api/v2/buffer/tasks", q)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// ProcessedTaskGoods returns per-product results of a processed upload.
func (s *PricesService) ProcessedTaskGoods(ctx context.Context, uploadID, limit, offset int) ([]PriceTaskGood, error) {
	data, err := getData[struct {
		HistoryGoods []PriceTaskGood `json:"historyGoods"`
	}](ctx, s.client, CategoryPrices, "/api/v2/history/goods/task", taskGoodsQuery(uploadID, limit, offset))
	if err != nil {
		return nil, err
	}
	return data.HistoryGoods, nil
}

// BufferTaskGoods returns per-product state of an upload still in the buffer.
func (s *PricesService) BufferTaskGoods(ctx context.Context, uploadID, limit, offset int) ([]PriceTaskGood, error) {
	data, err := getData[struct {
		BufferGoods []PriceTaskGood `json:"bufferGoods"`
	}](ctx, s.client, CategoryPrices, "/api/v2/buffer/goods/task", taskGoodsQuery(uploadID, limit, offset))
	if err != nil {
		return nil, err
	}
	return data.BufferGoods, nil
}

func taskGoodsQuery(uploadID, limit, offset int) url.Values {
	return url.Values{
		"uploadID": {strconv.Itoa(uploadID)},
		"limit":    {strconv.Itoa(clampLimit(limit, MaxPriceBatch))},
		"offset":   {strconv.Itoa(max(offset, 0))},
	}
}

// GoodsFilter narrows GoodsWithPrices.
type GoodsFilter struct {
	NmID int
}

// GoodsWithPrices returns one page of products with their prices.
func (s *PricesService) GoodsWithPrices(ctx context.Context, limit, offset int, f GoodsFilter) ([]GoodPrice, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(clampLimit(limit, MaxPriceBatch))},
		"offset": {strconv.Itoa(max(offset, 0))},
	}
	if f.NmID > 0 {
		q.Set("filterNmID", strconv.Itoa(f.NmID))
	}
	data, err := getData[struct {
		ListGoods []GoodPrice `json:"listGoods"`
	}](ctx, s.client, CategoryPrices, "/api/v2/list/goods/filter", q)
	if err != nil {
		return nil, err
	}
	return data.ListGoods, nil
}

// AllGoods iterates over every product with prices, batch items per request.
func (s *PricesService) AllGoods(ctx context.Context, batch int) iter.Seq2[GoodPrice, error] {
	return offsetPages(ctx, clampLimit(batch, MaxPriceBatch), func(ctx context.Context, limit, offset int) ([]GoodPrice, error) {
		return s.GoodsWithPrices(ctx, limit, offset, GoodsFilter{})
	})
}

// GoodsByVendorCodes returns products with prices for up to 1000 vendor codes.
func (s *PricesService) GoodsByVendorCodes(ctx context.Context, vendorCodes []string) ([]GoodPrice, error) {
	if len(vendorCodes) == 0 {
		return nil, nil
	}
	if len(vendorCodes) > MaxPriceBatch {
		vendorCodes = vendorCodes[:MaxPriceBatch]
	}
	data, err := postData[json.RawMessage](ctx, s.client, CategoryPrices, "/api/v2/list/goods/filter",
		map[string]any{"vendorCodes": vendorCodes})
	if err != nil {
		return nil, err
	}
	return decodeGoodsList(data)
}

// decodeGoodsList accepts both a bare list and a {"listGoods": [...]} object.
func decodeGoodsList(data json.RawMessage) ([]GoodPrice, error) {
	var list []GoodPrice
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		ListGoods []GoodPrice `json:"listGoods"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding goods: %w", err)
	}
	return wrapped.ListGoods, nil
}

// SizePrices returns per-size prices of a product.
func (s *PricesService) SizePrices(ctx context.Context, nmID, limit, offset int) ([]GoodSize, error) {
	q := url.Values{
		"nmID":   {strconv.Itoa(nmID)},
		"limit":  {strconv.Itoa(clampLimit(limit, MaxPriceBatch))},
		"offset": {strconv.Itoa(max(offset, 0))},
	}
	data, err := getData[struct {
		ListGoods []GoodSize `json:"listGoods"`
	}](ctx, s.client, CategoryPrices, "/api/v2/list/goods/size/nm", q)
	if err != nil {
		return nil, err
	}
	return data.ListGoods, nil
}

// QuarantineGoods returns one page of quarantined products.
func (s *PricesService) QuarantineGoods(ctx context.Context, limit, offset int) ([]QuarantineGood, error) {
	q := url.Values{
		"limit":  {strconv.Itoa(clampLimit(limit, MaxPriceBatch))},
		"offset": {strconv.Itoa(max(offset, 0))},
	}
	data, err := getData[struct {
		QuarantineGoods []QuarantineGood `json:"quarantineGoods"`
	}](ctx, s.client, CategoryPrices, "/api/v2/quarantine/goods", q)
	if err != nil {
		return nil, err
	}
	return data.QuarantineGoods, nil
}

// TaskSnapshot reads the current state of an upload. Uploads not yet in
// history are looked up in the buffer. Failed uploads carry the
// per-product error texts as error records.
func (s *PricesService) TaskSnapshot(ctx context.Context, taskID string) (*TaskSnapshot, error) {
	uploadID, err := strconv.Atoi(taskID)
	if err != nil {
		return nil, fmt.Errorf("invalid price task id %q: %w", taskID, err)
	}

	task, err := s.ProcessedTask(ctx, uploadID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err != nil || task.UploadID == 0 {
		task, err = s.BufferTask(ctx, uploadID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err != nil || task.UploadID == 0 {
			return &TaskSnapshot{TaskID: taskID, Status: PriceTaskPending}, nil
		}
		task.Status = priceStatusProcessing
	}

	snap := priceTaskSnapshot(taskID, task)
	if task.Status == priceStatusProcessedWithError || task.Status == priceStatusFailed {
		goods, err := s.ProcessedTaskGoods(ctx, uploadID, MaxPriceBatch, 0)
		if err != nil {
			return nil, fmt.Errorf("reading failed goods of task %s: %w", taskID, err)
		}
		for _, g := range goods {
			if g.ErrorText == "" {
				continue
			}
			raw, err := json.Marshal(g)
			if err != nil {
				return nil, fmt.Errorf("encoding task error: %w", err)
			}
			snap.Errors = append(snap.Errors, raw)
		}
	}
	return snap, nil
}

func priceTaskSnapshot(taskID string, t *PriceTask) *TaskSnapshot {
	raw, _ := json.Marshal(t) //nolint:errcheck // plain struct
	return &TaskSnapshot{
		TaskID:         taskID,
		Status:         PriceStatusLabel(t.Status),
		TotalItems:     t.OverAllGoodsNumber,
		ProcessedItems: t.SuccessGoodsNumber,
		ErrorsCount:    max(t.OverAllGoodsNumber-t.SuccessGoodsNumber, 0),
		Raw:            raw,
	}
}

// NewUploadPoller returns a poller for an upload, ready to Wait on.
func (s *PricesService) NewUploadPoller(taskID string, opts ...PollerOption) *Poller {
	all := append([]PollerOption{WithClassifier(PriceTaskClassifier)}, opts...)
	return s.client.NewPoller(taskID, s.TaskSnapshot, all...)
}

// WaitForUpload blocks until the upload is processed.
func (s *PricesService) WaitForUpload(
	ctx context.Context,
	taskID string,
	onProgress ProgressFunc,
	opts ...PollerOption,
) (*TaskSnapshot, error) {
	return s.NewUploadPoller(taskID, opts...).Wait(ctx, onProgress)
}

func clampLimit(limit, maxLimit int) int {
	if limit <= 0 || limit > maxLimit {
		return maxLimit
	}
	return limit
}
