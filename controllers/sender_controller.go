package controller

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"coldreach/models"
	"coldreach/utils"
)

type SenderController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	validate *validator.Validate
}

func NewSenderController(db *gorm.DB, logger *log.Logger) *SenderController {
	return &SenderController{
		DB:       db,
		Logger:   logger,
		validate: validator.New(),
	}
}

type senderInput struct {
	Name         string `json:"name" validate:"required,max=120"`
	FromEmail    string `json:"from_email" validate:"required,email"`
	FromName     string `json:"from_name" validate:"max=120"`
	ProviderType string `json:"provider_type" validate:"required,oneof=smtp gmail outlook"`

	SMTPHost     string `json:"smtp_host"`
	SMTPPort     int    `json:"smtp_port"`
	SMTPUsername string `json:"smtp_username"`
	SMTPPassword string `json:"smtp_password"`
	Encryption   string `json:"encryption"`

	IMAPHost     string `json:"imap_host"`
	IMAPPort     int    `json:"imap_port"`
	IMAPUsername string `json:"imap_username"`
	IMAPPassword string `json:"imap_password"`
	IMAPMailbox  string `json:"imap_mailbox"`

	DailyLimit int `json:"daily_limit"`
}

// CreateSender registers an outbound mailbox. Credentials are encrypted
// before the row is written; they never come back out via the API.
func (sc *SenderController) CreateSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input senderInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := sc.validate.Struct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"details": err.Error(),
		})
	}

	smtpPassword, err := utils.Encrypt(input.SMTPPassword)
	if err != nil {
		sc.Logger.Printf("Failed to encrypt SMTP credentials: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store credentials",
		})
	}
	imapPassword, err := utils.Encrypt(input.IMAPPassword)
	if err != nil {
		sc.Logger.Printf("Failed to encrypt IMAP credentials: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store credentials",
		})
	}

	sender := models.Sender{
		UserID:       user.ID,
		Name:         input.Name,
		FromEmail:    input.FromEmail,
		FromName:     input.FromName,
		ProviderType: input.ProviderType,
		SMTPHost:     input.SMTPHost,
		SMTPPort:     input.SMTPPort,
		SMTPUsername: input.SMTPUsername,
		SMTPPassword: smtpPassword,
		IMAPHost:     input.IMAPHost,
		IMAPPort:     input.IMAPPort,
		IMAPUsername: input.IMAPUsername,
		IMAPPassword: imapPassword,
		IsActive:     true,
	}
	if input.Encryption != "" {
		sender.Encryption = input.Encryption
	}
	if input.IMAPMailbox != "" {
		sender.IMAPMailbox = input.IMAPMailbox
	}
	if input.DailyLimit > 0 {
		sender.DailyLimit = input.DailyLimit
	}

	if err := sc.DB.Create(&sender).Error; err != nil {
		sc.Logger.Printf("Failed to create sender: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create sender",
		})
	}

	sender.Sanitize()
	return c.Status(fiber.StatusCreated).JSON(sender)
}

// GetSenders lists the user's senders with credentials stripped.
func (sc *SenderController) GetSenders(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var senders []models.Sender
	if err := sc.DB.Where("user_id = ?", user.ID).
		Order("created_at asc").Find(&senders).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch senders",
		})
	}
	for i := range senders {
		senders[i].Sanitize()
	}
	return c.JSON(senders)
}

// UpdateSenderStatus enables or disables a sender in the transport chain.
func (sc *SenderController) UpdateSenderStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		IsActive *bool `json:"is_active"`
	}
	if err := c.BodyParser(&input); err != nil || input.IsActive == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "is_active is required",
		})
	}

	var sender models.Sender
	if err := sc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&sender).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	if err := sc.DB.Model(&sender).Update("is_active", *input.IsActive).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update sender",
		})
	}
	return c.JSON(fiber.Map{"message": "Sender updated"})
}

// DeleteSender removes an outbound mailbox.
func (sc *SenderController) DeleteSender(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var sender models.Sender
	if err := sc.DB.Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&sender).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Sender not found",
		})
	}

	if err := sc.DB.Delete(&sender).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete sender",
		})
	}
	return c.JSON(fiber.Map{"message": "Sender deleted"})
}
