package wb

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token validation errors.
var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrCategoryNotAllowed = errors.New("token has no access to category")
)

const readOnlyBit = 30

var tokenCategoryBitsOrder = []int{1, 2, 3, 4, 5, 6, 7, 9, 10, 11, 12, 13}

// tokenCategoryBits maps permission bits in the "s" claim to categories.
var tokenCategoryBits = map[int]Category{
	1:  CategoryContent,
	2:  CategoryAnalytics,
	3:  CategoryPrices,
	4:  CategoryMarketplace,
	5:  CategoryStatistics,
	6:  CategoryPromotion,
	7:  CategoryFeedbacks,
	9:  CategoryChat,
	10: CategorySupplies,
	11: CategoryReturns,
	12: CategoryDocuments,
	13: CategoryFinance,
}

// AccessType is the kind of token issued by the seller portal.
type AccessType string

// Access types, from the "acc" claim.
const (
	AccessBase     AccessType = "base"
	AccessTest     AccessType = "test"
	AccessPersonal AccessType = "personal"
	AccessService  AccessType = "service"
	AccessUnknown  AccessType = "unknown"
)

// TokenInfo is the decoded payload of an API token.
type TokenInfo struct {
	TokenID    string     `json:"token_id"`
	SellerID   string     `json:"seller_id"`
	AccessType AccessType `json:"access_type"`
	ExpiresAt  time.Time  `json:"expires_at"`
	Categories []Category `json:"categories"`
	ReadOnly   bool       `json:"read_only"`
}

// ParseToken decodes an API token without verifying its signature. The
// token is only inspected locally; the server remains the authority.
func ParseToken(token string) (*TokenInfo, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	info := &TokenInfo{
		TokenID:    claimString(claims, "id"),
		SellerID:   claimString(claims, "sid"),
		AccessType: accessType(claimInt(claims, "acc")),
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}

	mask := claimInt(claims, "s")
	for _, bit := range tokenCategoryBitsOrder {
		if mask&(1<<bit) != 0 {
			info.Categories = append(info.Categories, tokenCategoryBits[bit])
		}
	}
	info.ReadOnly = mask&(1<<readOnlyBit) != 0

	return info, nil
}

// IsExpired reports whether the token is expired at now. A token without
// an expiry is treated as expired.
func (t *TokenInfo) IsExpired(now time.Time) bool {
	return t.ExpiresAt.IsZero() || now.After(t.ExpiresAt)
}

// HasCategory reports whether the token grants access to cat. The common
// category needs no permission bit.
func (t *TokenInfo) HasCategory(cat Category) bool {
	return cat == CategoryCommon || slices.Contains(t.Categories, cat)
}

// Validate checks expiry at now and access to each of cats.
func (t *TokenInfo) Validate(now time.Time, cats ...Category) error {
	if t.IsExpired(now) {
		return fmt.Errorf("%w (expired at %s)", ErrTokenExpired, t.ExpiresAt.Format(time.RFC3339))
	}
	for _, cat := range cats {
		if !t.HasCategory(cat) {
			return fmt.Errorf("%w: %s", ErrCategoryNotAllowed, cat)
		}
	}
	return nil
}

func accessType(acc int64) AccessType {
	switch acc {
	case 1:
		return AccessBase
	case 2:
		return AccessTest
	case 3:
		return AccessPersonal
	case 4:
		return AccessService
	default:
		return AccessUnknown
	}
}

func claimString(c jwt.MapClaims, key string) string {
	switch v := c[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

func claimInt(c jwt.MapClaims, key string) int64 {
	if v, ok := c[key].(float64); ok {
		return int64(v)
	}
	return 0
}
