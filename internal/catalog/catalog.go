// Package catalog holds the shop's fixed list of print services.
package catalog

import "github.com/erazemk/tiskarna/internal/model"

var services = []model.Service{
	{
		ID:          "s-1",
		Name:        "Business Cards",
		Type:        "card",
		Tier:        model.TierStandard,
		Description: "Premium quality cards to make a lasting impression.",
		BasePrice:   0.15,
		IconName:    "CreditCard",
	},
	{
		ID:          "s-2",
		Name:        "Event Posters",
		Type:        "poster",
		Tier:        model.TierPremium,
		Description: "High-gloss posters available in A3, A2, and A1 sizes.",
		BasePrice:   5.00,
		IconName:    "Image",
	},
	{
		ID:          "s-3",
		Name:        "Thesis Binding",
		Type:        "thesis",
		Tier:        model.TierPremium,
		Description: "Professional hard-cover binding for your dissertation.",
		BasePrice:   25.00,
		IconName:    "Book",
	},
	{
		ID:          "s-4",
		Name:        "Custom Stickers",
		Type:        "sticker",
		Tier:        model.TierStandard,
		Description: "Die-cut vinyl stickers, waterproof and durable.",
		BasePrice:   0.50,
		IconName:    "Sticker",
	},
	{
		ID:          "s-5",
		Name:        "Marketing Flyers",
		Type:        "flyer",
		Tier:        model.TierStandard,
		Description: "Vibrant colors on lightweight paper for mass distribution.",
		BasePrice:   0.20,
		IconName:    "Files",
	},
	{
		ID:          "s-6",
		Name:        "Large Banners",
		Type:        "banner",
		Tier:        model.TierPremium,
		Description: "Heavy-duty vinyl banners with grommets for hanging.",
		BasePrice:   45.00,
		IconName:    "Flag",
	},
}

// List returns a copy of every catalog service in display order.
func List() []model.Service {
	out := make([]model.Service, len(services))
	copy(out, services)
	return out
}

// Get returns the service with the given ID.
func Get(id string) (model.Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return model.Service{}, false
}
