package models

type WishlistItem struct {
	ID        ID       `json:"id,omitempty"`
	ProductID ID       `json:"productId"`
	Product   *Product `json:"product,omitempty"`
}

type Wishlist struct {
	ID    ID             `json:"id"`
	User  CartOwner      `json:"user"`
	Items []WishlistItem `json:"items"`
}
