package controller

import (
	"log"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
)

type LeadController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	validate *validator.Validate
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:       db,
		Logger:   logger,
		validate: validator.New(),
	}
}

type leadInput struct {
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name" validate:"max=120"`
	LastName  string `json:"last_name" validate:"max=120"`
	Company   string `json:"company" validate:"max=255"`
	Position  string `json:"position" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=40"`
	Notes     string `json:"notes"`
	Source    string `json:"source" validate:"max=120"`
}

// classifyEmail runs the address filter: format check, then an MX lookup on
// the domain.
func classifyEmail(email string) models.EmailStatus {
	if strings.TrimSpace(email) == "" {
		return models.EmailMissing
	}
	if err := checkmail.ValidateFormat(email); err != nil {
		return models.EmailInvalid
	}
	if err := checkmail.ValidateHost(email); err != nil {
		return models.EmailInvalid
	}
	return models.EmailValid
}

// CreateLead adds a single lead, classifying its email on the way in.
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := lc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	lead := models.Lead{
		UserID:      user.ID,
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Company:     input.Company,
		Position:    input.Position,
		Phone:       input.Phone,
		Notes:       input.Notes,
		Source:      input.Source,
		EmailStatus: classifyEmail(input.Email),
	}
	if err := lc.DB.Create(&lead).Error; err != nil {
		lc.Logger.Printf("Failed to create lead: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create lead",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(lead)
}

// ImportLeads bulk-creates leads from a JSON array. Rows that fail to insert
// are skipped and counted, not fatal.
func (lc *LeadController) ImportLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Leads []leadInput `json:"leads"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.Leads) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "leads is required",
		})
	}

	imported, skipped := 0, 0
	for _, row := range input.Leads {
		lead := models.Lead{
			UserID:      user.ID,
			Email:       strings.ToLower(strings.TrimSpace(row.Email)),
			FirstName:   row.FirstName,
			LastName:    row.LastName,
			Company:     row.Company,
			Position:    row.Position,
			Phone:       row.Phone,
			Notes:       row.Notes,
			Source:      row.Source,
			EmailStatus: classifyEmail(row.Email),
		}
		if err := lc.DB.Create(&lead).Error; err != nil {
			lc.Logger.Printf("Skipping lead %q on import: %v", row.Email, err)
			skipped++
			continue
		}
		imported++
	}

	return c.JSON(fiber.Map{
		"message":  "Import finished",
		"imported": imported,
		"skipped":  skipped,
	})
}

// GetLeads lists the user's leads, newest first, optionally filtered by
// email_status.
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := lc.DB.Where("user_id = ?", user.ID)
	if status := c.Query("email_status"); status != "" {
		query = query.Where("email_status = ?", status)
	}

	var leads []models.Lead
	if err := query.Order("created_at desc").Find(&leads).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch leads",
		})
	}
	return c.JSON(leads)
}

// GetLead returns one lead owned by the user.
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&lead).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}
	return c.JSON(lead)
}

// UpdateLead edits lead fields. A changed email is re-classified.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&lead).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}

	var input leadInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := lc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	newEmail := strings.ToLower(strings.TrimSpace(input.Email))
	updates := map[string]interface{}{
		"first_name": input.FirstName,
		"last_name":  input.LastName,
		"company":    input.Company,
		"position":   input.Position,
		"phone":      input.Phone,
		"notes":      input.Notes,
		"source":     input.Source,
	}
	if newEmail != lead.Email {
		updates["email"] = newEmail
		updates["email_status"] = classifyEmail(newEmail)
	}

	if err := lc.DB.Model(&lead).Updates(updates).Error; err != nil {
		lc.Logger.Printf("Failed to update lead %d: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update lead",
		})
	}
	return c.JSON(lead)
}

// DeleteLead removes a lead and its campaign attachments.
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lead models.Lead
	if err := lc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&lead).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead not found",
		})
	}

	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id = ?", lead.ID).Delete(&models.LeadListMembership{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lead_id = ?", lead.ID).Delete(&models.CampaignLead{}).Error; err != nil {
			return err
		}
		return tx.Delete(&lead).Error
	})
	if err != nil {
		lc.Logger.Printf("Failed to delete lead %d: %v", lead.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete lead",
		})
	}

	return c.JSON(fiber.Map{"message": "Lead deleted"})
}

// CreateLeadList creates a named lead list.
func (lc *LeadController) CreateLeadList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name is required",
		})
	}

	list := models.LeadList{
		UserID:      user.ID,
		Name:        input.Name,
		Description: input.Description,
	}
	if err := lc.DB.Create(&list).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create lead list",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(list)
}

// AddLeadsToList attaches leads to a list, skipping duplicates.
func (lc *LeadController) AddLeadsToList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var list models.LeadList
	if err := lc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&list).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lead list not found",
		})
	}

	var input struct {
		LeadIDs []uint `json:"lead_ids"`
	}
	if err := c.BodyParser(&input); err != nil || len(input.LeadIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "lead_ids is required",
		})
	}

	added := 0
	for _, leadID := range input.LeadIDs {
		var count int64
		lc.DB.Model(&models.Lead{}).
			Where("id = ? AND user_id = ?", leadID, user.ID).Count(&count)
		if count == 0 {
			continue
		}
		lc.DB.Model(&models.LeadListMembership{}).
			Where("lead_id = ? AND lead_list_id = ?", leadID, list.ID).Count(&count)
		if count > 0 {
			continue
		}
		if err := lc.DB.Create(&models.LeadListMembership{
			LeadID:     leadID,
			LeadListID: list.ID,
		}).Error; err != nil {
			continue
		}
		added++
	}

	lc.DB.Model(&list).Update("lead_count", gorm.Expr("lead_count + ?", added))

	return c.JSON(fiber.Map{
		"message": "Leads added to list",
		"added":   added,
	})
}
