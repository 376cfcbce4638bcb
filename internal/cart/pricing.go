package cart

import (
	"fmt"

	"usha_storefront/internal/models"

	"github.com/shopspring/decimal"
)

// UnitPrice = prix du produit + somme des suppléments des options sélectionnées.
// Les suppléments s'appliquent à chaque unité.
func UnitPrice(p models.Product, selections map[string]string) decimal.Decimal {
	total := p.Price
	for _, opt := range p.CustomizationOptions {
		if v, ok := selections[opt.Name]; ok && v != "" {
			total = total.Add(opt.AdditionalPrice)
		}
	}
	return total
}

// LineTotal vaut zéro tant que le produit n'est pas embarqué dans la ligne
func LineTotal(item models.CartItem) decimal.Decimal {
	if item.Product == nil {
		return decimal.Zero
	}
	return UnitPrice(*item.Product, item.CustomizationData).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Total est recalculé à chaque appel depuis le panier courant
func Total(c models.Cart) decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(LineTotal(it))
	}
	return total
}

// MinorUnits convertit un montant en centimes, arrondi au plus proche (demi vers le haut)
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// MissingSelections liste, pour chaque ligne, les options obligatoires sans valeur
// sous la forme "ligne/produit: option".
func MissingSelections(c models.Cart) []string {
	var problems []string
	for _, it := range c.Items {
		if it.Product == nil {
			problems = append(problems, fmt.Sprintf("%d/%d: produit inconnu", it.ID, it.ProductID))
			continue
		}
		for _, name := range it.Product.MissingRequiredOptions(it.CustomizationData) {
			problems = append(problems, fmt.Sprintf("%d/%s: %s", it.ID, it.Product.Name, name))
		}
	}
	return problems
}
