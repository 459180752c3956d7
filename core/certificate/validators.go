package certificate

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/coursecertificate/core"
)

var (
	templateNotVisibleText = "this template is not available in this course"

	expiresRequiredTag  = "expiresrequired"
	expiresRequiredText = "select an expiry date"
)

func registerValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(formStructValidation, FormData{})
	core.RegisterCustomTranslation(validate, translator, expiresRequiredTag, expiresRequiredText)
}

// formStructValidation checks the rules of FormData depending on several fields.
func formStructValidation(sl validator.StructLevel) {
	data, ok := sl.Current().Interface().(FormData)
	if !ok {
		return
	}

	// a locked template is submitted as is
	if !data.HasIssues && data.TemplateID == "" {
		sl.ReportError(data.TemplateID, "template", "TemplateID", "required", "")
	}

	if data.ExpiryDateType == ExpiryOnDate && data.Expires <= 0 {
		sl.ReportError(data.Expires, "expires", "Expires", expiresRequiredTag, "")
	}
}
