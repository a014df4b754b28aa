package wb

import "context"

// FinanceService reads the seller's account balance.
type FinanceService struct {
	client *Client
}

// Balance is the seller account balance.
type Balance struct {
	Currency    string  `json:"currency"`
	Current     float64 `json:"current"`
	ForWithdraw float64 `json:"forWithdraw"`
}

// Blocked returns the part of the balance that cannot be withdrawn yet.
func (b *Balance) Blocked() float64 {
	return b.Current - b.ForWithdraw
}

// BlockedPercent returns Blocked as a percentage of Current.
func (b *Balance) BlockedPercent() float64 {
	if b.Current == 0 {
		return 0
	}
	return b.Blocked() / b.Current * 100
}

// Balance returns the current account balance.
func (s *FinanceService) Balance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := s.client.get(ctx, CategoryFinance, "/api/v1/account/balance", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
