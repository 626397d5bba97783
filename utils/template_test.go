package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coldreach/models"
)

func TestRenderTemplate(t *testing.T) {
	lead := &models.Lead{
		Email:     "jordan@acme.io",
		FirstName: "Jordan",
		LastName:  "Lee",
		Company:   "Acme",
		Phone:     "+1 555 0100",
		Notes:     "met at conf",
	}

	out := RenderTemplate("Hi [Name] from [Company], is [Email] / [Phone] still right? ([Notes])", lead)
	assert.Equal(t, "Hi Jordan Lee from Acme, is jordan@acme.io / +1 555 0100 still right? (met at conf)", out)
}

func TestRenderTemplateFallsBackToEmail(t *testing.T) {
	lead := &models.Lead{Email: "anon@example.com"}
	assert.Equal(t, "Hi anon@example.com", RenderTemplate("Hi [Name]", lead))
}

func TestRenderTemplateLeavesUnknownBrackets(t *testing.T) {
	lead := &models.Lead{FirstName: "Sam"}
	assert.Equal(t, "Sam [Discount]", RenderTemplate("[Name] [Discount]", lead))
}
