package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/normalize"
)

// OrderHandler manages standing limit orders.
type OrderHandler struct {
	orders *data.OrdersStore
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders *data.OrdersStore) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type createOrderRequest struct {
	Sector   string  `json:"sector" form:"sector"`
	MaxPrice float64 `json:"max_price" form:"max_price"`
}

// CreateOrder places a standing buy order for a sector with a price
// ceiling.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Sector == "" {
		return fiber.NewError(fiber.StatusBadRequest, "sector is required")
	}
	if req.MaxPrice <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "max price must be positive")
	}

	order := &models.LimitOrder{
		UserID:    user.ID,
		Sector:    req.Sector,
		SectorKey: normalize.Sector(req.Sector),
		MaxPrice:  req.MaxPrice,
		Status:    models.OrderActive,
	}

	if err := h.orders.Create(c.Context(), order); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    order,
	})
}

// DeleteOrder cancels a standing order. Only the owner may cancel it.
func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.orders.FindByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		}
		return err
	}

	if order.UserID != user.ID {
		return fiber.NewError(fiber.StatusUnauthorized, "not authorized")
	}

	if err := h.orders.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}
