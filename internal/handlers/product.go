package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/example/unimart/internal/data"
	"github.com/example/unimart/internal/matching"
	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
	"github.com/example/unimart/internal/normalize"
	"github.com/example/unimart/internal/utils"
)

const maxListingImages = 5

// ProductHandler manages marketplace listings.
type ProductHandler struct {
	products *data.ProductsStore
	users    *data.UsersStore
	engine   *matching.Engine
	storage  Uploader
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *data.ProductsStore, users *data.UsersStore, engine *matching.Engine, storage Uploader) *ProductHandler {
	return &ProductHandler{products: products, users: users, engine: engine, storage: storage}
}

// ListProducts returns Available listings with optional sector and max
// price filters. Authenticated browsing hides the caller's own items.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	filter := data.BrowseFilter{
		SectorKey: normalize.Sector(c.Query("sector")),
	}
	if v := c.Query("max_price"); v != "" {
		if price, err := strconv.ParseFloat(v, 64); err == nil {
			filter.MaxPrice = price
		}
	}

	viewer, loggedIn := middleware.CurrentUser(c)
	if loggedIn {
		filter.Exclude = viewer.ID
	}

	products, total, err := h.products.FindAvailable(c.Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	listings, err := h.attachOwners(c, products, viewer)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    listings,
		"pagination": fiber.Map{
			"current_page":   pg.Page,
			"items_per_page": pg.Limit,
			"total_items":    total,
		},
	})
}

// GetProduct loads a single listing with its owner info.
func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	product, err := h.products.FindByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	viewer, _ := middleware.CurrentUser(c)
	listings, err := h.attachOwners(c, []*models.Product{product}, viewer)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": listings[0]})
}

type createProductRequest struct {
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Price       float64 `json:"price" form:"price"`
	Category    string  `json:"category" form:"category"`
	IsAnonymous bool    `json:"is_anonymous" form:"is_anonymous"`
}

// CreateProduct persists a new listing and runs the matching engine
// over standing limit orders.
func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	var req createProductRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Title == "" || req.Category == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing required fields")
	}
	if req.Price <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "price must be positive")
	}

	var images []string
	if form, err := c.MultipartForm(); err == nil && form != nil {
		files := form.File["images"]
		if len(files) > 0 {
			urls, err := h.storage.UploadImages(c.Context(), files, maxListingImages)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "image upload failed: "+err.Error())
			}
			images = urls
		}
	}

	product := &models.Product{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		CategoryKey: normalize.Sector(req.Category),
		Images:      images,
		IsAnonymous: req.IsAnonymous,
		UserID:      user.ID,
		Status:      models.ProductAvailable,
	}

	if err := h.products.Create(c.Context(), product); err != nil {
		return err
	}

	filled, err := h.engine.FillMatchingOrders(c.Context(), product)
	if err != nil {
		// The listing is live either way; a partial fill pass is not
		// worth surfacing to the seller as a failure.
		log.Printf("matching scan for product %s failed: %v", product.ID.Hex(), err)
	} else if filled > 0 {
		log.Printf("product %s filled %d limit order(s)", product.ID.Hex(), filled)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    product,
	})
}

// DeleteProduct removes a listing. Only the owner may delete it.
func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	product, err := h.products.FindByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "product not found")
		}
		return err
	}

	if product.UserID != user.ID {
		return fiber.NewError(fiber.StatusUnauthorized, "not authorized")
	}

	if err := h.products.Delete(c.Context(), id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// listing is a product response with owner info attached. Owner is nil
// for anonymous listings viewed by anyone but their seller.
type listing struct {
	*models.Product
	Owner *models.Owner `json:"owner,omitempty"`
}

func (h *ProductHandler) attachOwners(c *fiber.Ctx, products []*models.Product, viewer *models.User) ([]listing, error) {
	ids := make([]bson.ObjectID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.UserID)
	}

	owners, err := h.users.FindManyByIDs(c.Context(), ids)
	if err != nil {
		return nil, err
	}

	listings := make([]listing, 0, len(products))
	for _, p := range products {
		l := listing{Product: p}
		if p.IsAnonymous && (viewer == nil || viewer.ID != p.UserID) {
			listings = append(listings, l)
			continue
		}
		if owner, ok := owners[p.UserID.Hex()]; ok {
			l.Owner = &models.Owner{
				ID:        owner.ID,
				Name:      owner.Name,
				Avatar:    owner.Avatar,
				StudentID: owner.StudentID,
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}
