package store

import "github.com/shopcore/go-cart-checkout/internal/shop"

// Seed loads the sample catalog used by local runs and tests.
func (m *Memory) Seed() {
	products := []shop.Product{
		{ID: 1, Name: "Laptop", Description: "High-performance laptop", Price: 999.99, Stock: 10},
		{ID: 2, Name: "Mouse", Description: "Wireless mouse", Price: 29.99, Stock: 50},
		{ID: 3, Name: "Keyboard", Description: "Mechanical keyboard", Price: 79.99, Stock: 30},
		{ID: 4, Name: "Monitor", Description: "27-inch 4K monitor", Price: 299.99, Stock: 15},
	}
	for _, p := range products {
		m.PutProduct(p)
	}

	codes := []shop.DiscountCode{
		{ID: 1, Code: "SAVE10", Percent: 10.0, Active: true},
		{ID: 2, Code: "WELCOME20", Percent: 20.0, Active: true},
		{ID: 3, Code: "EXPIRED", Percent: 15.0, Active: false},
	}
	for _, d := range codes {
		m.PutDiscountCode(d)
	}
}
