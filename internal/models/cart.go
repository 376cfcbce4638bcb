package models

import "maps"

// CartItem est une ligne du panier telle que persistée par le service de données.
// Product est renvoyé embarqué par GET /cart/{userId} ; il sert au calcul des prix.
type CartItem struct {
	ID                ID                `json:"id,omitempty"`
	ProductID         ID                `json:"productId"`
	Product           *Product          `json:"product,omitempty"`
	Quantity          int               `json:"quantity"`
	CustomizationData map[string]string `json:"customization_data,omitempty"`
}

// SameSelections indique si deux lignes portent exactement les mêmes personnalisations
func (i CartItem) SameSelections(other map[string]string) bool {
	return maps.Equal(i.CustomizationData, other)
}

type CartOwner struct {
	ID ID `json:"id"`
}

type Cart struct {
	ID    ID         `json:"id"`
	User  CartOwner  `json:"user"`
	Items []CartItem `json:"items"`
}

// Item retourne la ligne d'identifiant itemID
func (c *Cart) Item(itemID ID) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ID == itemID {
			return it, true
		}
	}
	return CartItem{}, false
}

// Clone copie le panier, y compris les sélections de chaque ligne
func (c Cart) Clone() Cart {
	out := c
	out.Items = make([]CartItem, len(c.Items))
	for i, it := range c.Items {
		it.CustomizationData = maps.Clone(it.CustomizationData)
		out.Items[i] = it
	}
	return out
}

// CartItemInput est le corps envoyé pour créer ou modifier une ligne
type CartItemInput struct {
	ProductID         ID                `json:"productId"`
	Quantity          int               `json:"quantity"`
	CustomizationData map[string]string `json:"customization_data,omitempty"`
}
