package models

import "github.com/shopspring/decimal"

// Tableaux de bord admin, agrégés par le service de données

type MonthlyRevenue struct {
	Month             string          `json:"month"`
	Revenue           decimal.Decimal `json:"revenue"`
	TotalOrders       int             `json:"total_orders"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

type MostOrderedProduct struct {
	ProductID     ID              `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalOrders   int             `json:"total_orders"`
	TotalQuantity int             `json:"total_quantity"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
}

type CategoryStats struct {
	Category     string          `json:"category"`
	ProductCount int             `json:"product_count"`
	TotalValue   decimal.Decimal `json:"total_value"`
}
