package main

import (
	"math"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/magpieiq/backend/internal/domain/integration"
)

var feedStatuses = []string{"pending", "processing", "shipped", "delivered", "cancelled"}

// Catalog is the fixed content the mock feed serves
type Catalog struct {
	Products []integration.FeedProduct
	Orders   []integration.FeedOrder
}

// GenerateCatalog builds a catalog whose content is fixed by seed. Order
// items always reference generated products.
func GenerateCatalog(seed uint64, productCount, orderCount int) Catalog {
	f := gofakeit.New(seed)
	cat := Catalog{
		Products: make([]integration.FeedProduct, 0, productCount),
		Orders:   make([]integration.FeedOrder, 0, orderCount),
	}

	for i := 1; i <= productCount; i++ {
		cat.Products = append(cat.Products, integration.FeedProduct{
			ProductID:    i,
			Name:         f.ProductName(),
			Description:  f.ProductDescription(),
			Price:        f.Price(1, 250),
			Unit:         f.RandomString([]string{"piece", "kg", "pack", "box"}),
			Image:        f.URL(),
			Discount:     round(f.Float64Range(0, 25), 0),
			Availability: f.Number(0, 9) > 0,
			Brand:        f.Company(),
			Category:     f.ProductCategory(),
			Rating:       round(f.Float64Range(1, 5), 1),
		})
	}

	for i := 1; i <= orderCount; i++ {
		order := integration.FeedOrder{
			OrderID: 1000 + i,
			UserID:  f.Number(1, 500),
			Status:  f.RandomString(feedStatuses),
		}
		if productCount > 0 {
			for n := f.Number(1, 4); n > 0; n-- {
				p := cat.Products[f.Number(0, productCount-1)]
				qty := f.Number(1, 5)
				order.Items = append(order.Items, integration.FeedOrderItem{ProductID: p.ProductID, Quantity: qty})
				order.TotalPrice += p.Price * float64(qty)
			}
			order.TotalPrice = round(order.TotalPrice, 2)
		}
		cat.Orders = append(cat.Orders, order)
	}
	return cat
}

func round(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
