// Package matching pairs marketplace listings against standing limit
// orders. Listing creation fills matching orders as a side effect; the
// dashboard read recomputes matches without touching order state.
package matching

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/models"
)

// Engine runs the match scans against the order and product stores.
type Engine struct {
	orders   *data.OrdersStore
	products *data.ProductsStore
}

// NewEngine constructs an Engine.
func NewEngine(orders *data.OrdersStore, products *data.ProductsStore) *Engine {
	return &Engine{orders: orders, products: products}
}

// FillMatchingOrders transitions every ACTIVE order satisfied by the new
// listing to FILLED and returns how many orders were filled. Each fill
// is a conditional write that re-checks ACTIVE status, so an order raced
// by two concurrent listing creations is filled exactly once.
func (e *Engine) FillMatchingOrders(ctx context.Context, product *models.Product) (int, error) {
	candidates, err := e.orders.FindActiveMatching(ctx, product.CategoryKey, product.Price, product.UserID)
	if err != nil {
		return 0, err
	}

	filled := 0
	now := time.Now()
	for _, order := range candidates {
		if !Satisfies(order, product) {
			continue
		}
		ok, err := e.orders.Fill(ctx, order.ID, now)
		if err != nil {
			return filled, err
		}
		if !ok {
			// Lost the race to a concurrent fill; skip quietly.
			log.Printf("order %s already filled, skipping", order.ID.Hex())
			continue
		}
		filled++
	}
	return filled, nil
}

// MatchesForOrder returns the Available listings currently satisfying
// the order, excluding listings owned by excludeUserID. Pure query: no
// order or listing state changes.
func (e *Engine) MatchesForOrder(ctx context.Context, order *models.LimitOrder, excludeUserID bson.ObjectID) ([]*models.Product, error) {
	if order.Status != models.OrderActive {
		return nil, nil
	}
	return e.products.FindMatches(ctx, order.SectorKey, order.MaxPrice, excludeUserID)
}

// Satisfies reports whether a listing meets an order's criteria: same
// folded sector, price within the ceiling, different owners. Sellers
// cannot fill their own orders.
func Satisfies(order *models.LimitOrder, product *models.Product) bool {
	if order.Status != models.OrderActive || product.Status != models.ProductAvailable {
		return false
	}
	if order.SectorKey != product.CategoryKey {
		return false
	}
	if product.Price > order.MaxPrice {
		return false
	}
	return order.UserID != product.UserID
}
