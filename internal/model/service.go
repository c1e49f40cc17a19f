package model

// Service is a catalog offering. Catalog entries are immutable.
type Service struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Tier        string  `json:"tier"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
	IconName    string  `json:"icon_name"`
}

// Service tiers.
const (
	TierStandard = "Standard"
	TierPremium  = "Premium"
)

// RequiresAccount reports whether ordering the service needs a signed-in customer.
func (s Service) RequiresAccount() bool {
	return s.Tier == TierPremium
}
