package apitest

import (
	"usha_storefront/internal/models"

	"github.com/shopspring/decimal"
)

// Mug : prix 1000, gravure obligatoire (+200), couleur facultative (+50)
func Mug() models.Product {
	return models.Product{
		ID:             1,
		Name:           "Mug personnalisé",
		Price:          decimal.NewFromInt(1000),
		Category:       "Mugs",
		IsCustomizable: true,
		IsActive:       true,
		CustomizationOptions: []models.CustomizationOption{
			{ID: 11, Name: "Engraving", Type: models.OptionTypeText, MinValue: 1, MaxValue: 20, AdditionalPrice: decimal.NewFromInt(200), IsRequired: true},
			{ID: 12, Name: "Color", Type: models.OptionTypeDropdown, AvailableValues: []string{"Red", "Blue"}, AdditionalPrice: decimal.NewFromInt(50)},
		},
	}
}

// Poster : prix 450.50, sans personnalisation
func Poster() models.Product {
	return models.Product{
		ID:       2,
		Name:     "Poster",
		Price:    decimal.RequireFromString("450.50"),
		Category: "Décoration",
		IsActive: true,
	}
}
