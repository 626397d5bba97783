package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

type HotLeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewHotLeadController(db *gorm.DB, logger *log.Logger) *HotLeadController {
	return &HotLeadController{DB: db, Logger: logger}
}

// GetHotLeads lists the user's hot leads, newest first, optionally filtered
// by handling status.
func (hc *HotLeadController) GetHotLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := hc.DB.Preload("Lead").Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		if !models.HotLeadStatus(status).Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status filter",
			})
		}
		query = query.Where("status = ?", status)
	}

	var hotLeads []models.HotLead
	if err := query.Order("created_at desc").Find(&hotLeads).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch hot leads",
		})
	}
	return c.JSON(hotLeads)
}

// UpdateHotLeadStatus moves a hot lead through new -> contacted -> converted.
func (hc *HotLeadController) UpdateHotLeadStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Status models.HotLeadStatus `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil || !input.Status.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid status",
		})
	}

	var hotLead models.HotLead
	if err := hc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&hotLead).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Hot lead not found",
		})
	}

	if err := hc.DB.Model(&hotLead).Update("status", input.Status).Error; err != nil {
		hc.Logger.Printf("Failed to update hot lead %d: %v", hotLead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update hot lead",
		})
	}

	return c.JSON(fiber.Map{"message": "Hot lead updated"})
}
