package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/matching"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
)

// DashboardHandler assembles the user's dashboard view: their listings
// and their orders annotated with current matches.
type DashboardHandler struct {
	products *data.ProductsStore
	orders   *data.OrdersStore
	engine   *matching.Engine
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(products *data.ProductsStore, orders *data.OrdersStore, engine *matching.Engine) *DashboardHandler {
	return &DashboardHandler{products: products, orders: orders, engine: engine}
}

// orderWithMatches pairs a limit order with the listings currently
// satisfying it. Matches are recomputed on every read and nothing is
// mutated, so the view tracks live listing state without side effects.
type orderWithMatches struct {
	*models.LimitOrder
	Matches []*models.Product `json:"matches"`
}

// Dashboard returns the caller's listings and matched orders.
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	myProducts, err := h.products.FindByUser(c.Context(), user.ID)
	if err != nil {
		return err
	}

	myOrders, err := h.orders.FindByUser(c.Context(), user.ID)
	if err != nil {
		return err
	}

	annotated := make([]orderWithMatches, 0, len(myOrders))
	for _, order := range myOrders {
		matches, err := h.engine.MatchesForOrder(c.Context(), order, user.ID)
		if err != nil {
			return err
		}
		if matches == nil {
			matches = []*models.Product{}
		}
		annotated = append(annotated, orderWithMatches{LimitOrder: order, Matches: matches})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"products": myProducts,
		"orders":   annotated,
	})
}
