package wb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// MaxCardsBatch is the largest page the cards list accepts.
const MaxCardsBatch = 100

// ContentService manages product cards and the category tree.
type ContentService struct {
	client *Client
}

// ParentCategory is a top-level product category.
type ParentCategory struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsVisible bool   `json:"isVisible"`
}

// Subject is a product subcategory.
type Subject struct {
	SubjectID   int    `json:"subjectID"`
	ParentID    int    `json:"parentID"`
	SubjectName string `json:"subjectName"`
	ParentName  string `json:"parentName"`
}

// Characteristic describes one attribute a subject's cards may carry.
type Characteristic struct {
	CharcID   int    `json:"charcID"`
	Name      string `json:"name"`
	Required  bool   `json:"required"`
	UnitName  string `json:"unitName"`
	MaxCount  int    `json:"maxCount"`
	Popular   bool   `json:"popular"`
	CharcType int    `json:"charcType"`
}

// CardSize is one size of a product card.
type CardSize struct {
	ChrtID   int      `json:"chrtID"`
	TechSize string   `json:"techSize"`
	SKUs     []string `json:"skus"`
}

// CardDimensions is the packaged size of a product.
type CardDimensions struct {
	Length       int     `json:"length"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	WeightBrutto float64 `json:"weightBrutto"`
	IsValid      bool    `json:"isValid"`
}

// CardPhoto holds the URLs of one photo.
type CardPhoto struct {
	Big    string `json:"big"`
	Medium string `json:"c516x688"`
	Small  string `json:"tm"`
}

// CardTag is a seller-defined label attached to a card.
type CardTag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CardCharacteristic is a characteristic value on a card.
type CardCharacteristic struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Card is a product card.
type Card struct {
	NmID            int                  `json:"nmID"`
	ImtID           int                  `json:"imtID"`
	NmUUID          string               `json:"nmUUID"`
	SubjectID       int                  `json:"subjectID"`
	SubjectName     string               `json:"subjectName"`
	VendorCode      string               `json:"vendorCode"`
	Brand           string               `json:"brand"`
	Title           string               `json:"title"`
	Description     string               `json:"description"`
	Photos          []CardPhoto          `json:"photos"`
	Video           string               `json:"video"`
	Dimensions      *CardDimensions      `json:"dimensions"`
	Characteristics []CardCharacteristic `json:"characteristics"`
	Sizes           []CardSize           `json:"sizes"`
	Tags            []CardTag            `json:"tags"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// CardsCursor positions a cards listing. The zero value starts from the
// beginning.
type CardsCursor struct {
	UpdatedAt string `json:"updatedAt,omitempty"`
	NmID      int    `json:"nmID,omitempty"`
	Total     int    `json:"total,omitempty"`
}

// CardsFilter narrows a cards listing.
type CardsFilter struct {
	TextSearch string
	// WithPhoto is -1 for all cards, 0 for cards without photos, 1 with.
	WithPhoto int
	Locale    string
}

// CardsPage is one page of cards and the cursor for the next.
type CardsPage struct {
	Cards  []Card      `json:"cards"`
	Cursor CardsCursor `json:"cursor"`
}

// ParentCategories returns the top-level category tree.
func (s *ContentService) ParentCategories(ctx context.Context, locale string) ([]ParentCategory, error) {
	return getData[[]ParentCategory](ctx, s.client, CategoryContent, "/content/v2/object/parent/all", localeQuery(locale))
}

// SubjectsFilter narrows Subjects.
type SubjectsFilter struct {
	Name     string
	ParentID int
	Limit    int
	Offset   int
	Locale   string
}

// Subjects returns product subcategories.
func (s *ContentService) Subjects(ctx context.Context, f SubjectsFilter) ([]Subject, error) {
	q := localeQuery(f.Locale)
	q.Set("limit", strconv.Itoa(clampLimit(f.Limit, 1000)))
	q.Set("offset", strconv.Itoa(max(f.Offset, 0)))
	if f.Name != "" {
		q.Set("name", f.Name)
	}
	if f.ParentID > 0 {
		q.Set("parentID", strconv.Itoa(f.ParentID))
	}
	return getData[[]Subject](ctx, s.client, CategoryContent, "/content/v2/object/all", q)
}

// Characteristics returns the characteristics available for a subject.
func (s *ContentService) Characteristics(ctx context.Context, subjectID int, locale string) ([]Characteristic, error) {
	path := "/content/v2/object/charcs/" + strconv.Itoa(subjectID)
	return getData[[]Characteristic](ctx, s.client, CategoryContent, path, localeQuery(locale))
}

// Cards returns one page of cards starting at cursor.
func (s *ContentService) Cards(ctx context.Context, limit int, cursor CardsCursor, f CardsFilter) (*CardsPage, error) {
	withPhoto := f.WithPhoto
	if withPhoto < -1 || withPhoto > 1 {
		withPhoto = -1
	}
	cur := map[string]any{"limit": clampLimit(limit, MaxCardsBatch)}
	if cursor.UpdatedAt != "" && cursor.NmID != 0 {
		cur["updatedAt"] = cursor.UpdatedAt
		cur["nmID"] = cursor.NmID
	}
	filter := map[string]any{"withPhoto": withPhoto}
	if f.TextSearch != "" {
		filter["textSearch"] = f.TextSearch
	}
	body := map[string]any{"settings": map[string]any{"cursor": cur, "filter": filter}}

	var page CardsPage
	err := s.client.do(ctx, Request{
		Method:   http.MethodPost,
		Path:     "/content/v2/get/cards/list",
		Category: CategoryContent,
		Query:    localeQuery(f.Locale),
		Body:     body,
	}, &page)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// AllCards iterates over every card matching f. Iteration ends when the
// server reports fewer cards than requested.
func (s *ContentService) AllCards(ctx context.Context, batch int, f CardsFilter) iter.Seq2[Card, error] {
	batch = clampLimit(batch, MaxCardsBatch)
	return func(yield func(Card, error) bool) {
		var cursor CardsCursor
		for {
			page, err := s.Cards(ctx, batch, cursor, f)
			if err != nil {
				yield(Card{}, err)
				return
			}
			for _, c := range page.Cards {
				if !yield(c, nil) {
					return
				}
			}
			if page.Cursor.Total < batch {
				return
			}
			cursor = CardsCursor{UpdatedAt: page.Cursor.UpdatedAt, NmID: page.Cursor.NmID}
		}
	}
}

// NewCardVariant is one variant of a card being created.
type NewCardVariant struct {
	VendorCode      string          `json:"vendorCode"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	Brand           string          `json:"brand,omitempty"`
	Dimensions      *CardDimensions `json:"dimensions,omitempty"`
	Characteristics []NewCardCharc  `json:"characteristics,omitempty"`
	Sizes           []NewCardSize   `json:"sizes,omitempty"`
}

// NewCardCharc is a characteristic value on a card being created.
type NewCardCharc struct {
	ID    int `json:"id"`
	Value any `json:"value"`
}

// NewCardSize is a size of a card being created.
type NewCardSize struct {
	TechSize string   `json:"techSize,omitempty"`
	WBSize   string   `json:"wbSize,omitempty"`
	Price    int      `json:"price,omitempty"`
	SKUs     []string `json:"skus,omitempty"`
}

// NewCard groups variants that share a subject.
type NewCard struct {
	SubjectID int              `json:"subjectID"`
	Variants  []NewCardVariant `json:"variants"`
}

// UploadCards creates product cards.
func (s *ContentService) UploadCards(ctx context.Context, cards []NewCard) error {
	if len(cards) == 0 {
		return errors.New("no cards to upload")
	}
	return s.mutate(ctx, "/content/v2/cards/upload", cards)
}

// UpdateCards replaces card contents. Each card must carry its nmID and
// vendorCode; omitted fields are cleared by the server.
func (s *ContentService) UpdateCards(ctx context.Context, cards []map[string]any) error {
	if len(cards) == 0 {
		return errors.New("no cards to update")
	}
	return s.mutate(ctx, "/content/v2/cards/update", cards)
}

// TrashCards moves cards to the trash.
func (s *ContentService) TrashCards(ctx context.Context, nmIDs []int) error {
	return s.mutate(ctx, "/content/v2/cards/delete/trash", map[string]any{"nmIDs": nmIDs})
}

// RecoverCards restores cards from the trash.
func (s *ContentService) RecoverCards(ctx context.Context, nmIDs []int) error {
	return s.mutate(ctx, "/content/v2/cards/recover", map[string]any{"nmIDs": nmIDs})
}

// SaveMedia replaces a card's media with the files at urls.
func (s *ContentService) SaveMedia(ctx context.Context, nmID int, urls []string) error {
	return s.mutate(ctx, "/content/v3/media/save", map[string]any{"nmId": nmID, "data": urls})
}

// CreateTag creates a seller tag. Color is a hex code without '#'.
func (s *ContentService) CreateTag(ctx context.Context, name, color string) error {
	if color == "" {
		color = "D1CFD7"
	}
	return s.mutate(ctx, "/content/v2/tag", map[string]any{"name": name, "color": color})
}

// DeleteTag deletes a seller tag.
func (s *ContentService) DeleteTag(ctx context.Context, tagID int) error {
	return s.client.del(ctx, CategoryContent, "/content/v2/tag/"+strconv.Itoa(tagID), nil)
}

func (s *ContentService) mutate(ctx context.Context, path string, body any) error {
	if _, err := postData[json.RawMessage](ctx, s.client, CategoryContent, path, body); err != nil {
		return fmt.Errorf("content %s: %w", path, err)
	}
	return nil
}

func localeQuery(locale string) url.Values {
	if locale == "" {
		locale = "ru"
	}
	return url.Values{"locale": {locale}}
}
