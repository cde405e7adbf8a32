package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/unimart/internal/middleware"
	"github.com/example/unimart/internal/models"
)

// ProfileHandler manages the authenticated user's profile.
type ProfileHandler struct {
	users   UserStore
	storage Uploader
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(users UserStore, storage Uploader) *ProfileHandler {
	return &ProfileHandler{users: users, storage: storage}
}

// GetProfile returns the caller's account.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}
	return c.JSON(fiber.Map{"success": true, "user": user})
}

// UpdateAvatar replaces the caller's avatar with an uploaded image.
func (h *ProfileHandler) UpdateAvatar(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	file, err := c.FormFile("avatar")
	if err != nil || file == nil {
		return fiber.NewError(fiber.StatusBadRequest, "please upload a file")
	}

	url, err := h.storage.UploadImage(c.Context(), file)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "image upload failed: "+err.Error())
	}

	if err := h.users.SetAvatar(c.Context(), user.ID, url); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "avatar": url})
}

// RemoveAvatar resets the caller's avatar to the generated placeholder.
func (h *ProfileHandler) RemoveAvatar(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	}

	url := models.DefaultAvatar(user.Name)
	if err := h.users.SetAvatar(c.Context(), user.ID, url); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "avatar": url})
}
