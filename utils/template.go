package utils

import (
	"strings"

	"coldreach/models"
)

// RenderTemplate substitutes the campaign placeholders with lead data. The
// placeholder format is the literal bracket style users type into templates
// ([Name], [Company], [Email], [Phone], [Notes]); unknown brackets are left
// untouched.
func RenderTemplate(template string, lead *models.Lead) string {
	replacer := strings.NewReplacer(
		"[Name]", lead.Name(),
		"[Company]", lead.Company,
		"[Email]", lead.Email,
		"[Phone]", lead.Phone,
		"[Notes]", lead.Notes,
	)
	return replacer.Replace(template)
}
