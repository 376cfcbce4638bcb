package models

import (
	"fmt"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Types d'options de personnalisation définis par l'administrateur
const (
	OptionTypeText     = "text"
	OptionTypeNumber   = "number"
	OptionTypeDropdown = "dropdown"
	OptionTypeColor    = "color"
)

type ProductFeature struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type CustomizationOption struct {
	ID              ID              `json:"id"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	AvailableValues []string        `json:"available_values,omitempty"`
	MinValue        float64         `json:"min_value"`
	MaxValue        float64         `json:"max_value"`
	AdditionalPrice decimal.Decimal `json:"additional_price"`
	IsRequired      bool            `json:"is_required"`
}

// Validate vérifie qu'une valeur choisie respecte la plage ou l'ensemble autorisé de l'option.
// Pour le texte, min/max bornent la longueur ; une borne max à 0 signifie "sans limite".
func (o CustomizationOption) Validate(value string) error {
	switch o.Type {
	case OptionTypeText:
		n := float64(utf8.RuneCountInString(value))
		if o.MaxValue > 0 && (n < o.MinValue || n > o.MaxValue) {
			return fmt.Errorf("%s: longueur attendue entre %g et %g caractères", o.Name, o.MinValue, o.MaxValue)
		}
	case OptionTypeNumber:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: valeur numérique attendue", o.Name)
		}
		if o.MaxValue > 0 && (v < o.MinValue || v > o.MaxValue) {
			return fmt.Errorf("%s: valeur attendue entre %g et %g", o.Name, o.MinValue, o.MaxValue)
		}
	default:
		if len(o.AvailableValues) > 0 && !slices.Contains(o.AvailableValues, value) {
			return fmt.Errorf("%s: valeur %q non autorisée", o.Name, value)
		}
	}
	return nil
}

type Product struct {
	ID                   ID                    `json:"id"`
	Name                 string                `json:"name"`
	Description          string                `json:"description"`
	Price                decimal.Decimal       `json:"price"`
	ImageURL             string                `json:"img_url"`
	Category             string                `json:"category"`
	IsCustomizable       bool                  `json:"is_customizable"`
	IsActive             bool                  `json:"is_active"`
	Features             []ProductFeature      `json:"features,omitempty"`
	CustomizationOptions []CustomizationOption `json:"customization_options,omitempty"`
}

// Option retourne l'option de personnalisation portant ce nom
func (p Product) Option(name string) (CustomizationOption, bool) {
	for _, opt := range p.CustomizationOptions {
		if opt.Name == name {
			return opt, true
		}
	}
	return CustomizationOption{}, false
}

// MissingRequiredOptions liste les options obligatoires sans sélection
func (p Product) MissingRequiredOptions(selections map[string]string) []string {
	var missing []string
	for _, opt := range p.CustomizationOptions {
		if !opt.IsRequired {
			continue
		}
		if v, ok := selections[opt.Name]; !ok || v == "" {
			missing = append(missing, opt.Name)
		}
	}
	return missing
}
