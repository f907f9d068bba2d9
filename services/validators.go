package services

import (
	"reflect"
	"strings"

	"debt_flow_app_go/models"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	Validate   *validator.Validate
	Translator ut.Translator

	// custom validation tags
	notBlankTag   = "notblank"
	timestampTag  = "timestamp"
	eventTypeTag  = "event_type"
	caseStatusTag = "case_status"
)

func init() {
	Validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	Translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(Validate, Translator)

	// Use JSON tag names for errors instead of Go struct names.
	Validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = Validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = Validate.RegisterValidation(timestampTag, timestampValidation)
	_ = Validate.RegisterValidation(eventTypeTag, eventTypeValidation)
	_ = Validate.RegisterValidation(caseStatusTag, caseStatusValidation)
	Validate.RegisterStructValidation(timelineEventInputValidation, TimelineEventInput{})

	registerCustomValidationsTranslations(notBlankTag, timestampTag, eventTypeTag, caseStatusTag, "gt")
}

// registerCustomValidationsTranslations overrides messages for our tags.
// The register func is a noop because the default translations are loaded.
func registerCustomValidationsTranslations(tags ...string) {
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range tags {
		_ = Validate.RegisterTranslation(tag, Translator, registerFn, translateCustomValidationErrs)
	}
}

func translateCustomValidationErrs(_ ut.Translator, fe validator.FieldError) string {
	switch fe.Tag() {
	case notBlankTag:
		return "this field cannot be blank"
	case timestampTag:
		return "enter a valid date and time"
	case eventTypeTag:
		return "choose an event type"
	case caseStatusTag:
		return "choose a valid status"
	case "gt":
		return "must be greater than zero"
	default:
		return fe.Error()
	}
}

// FieldErrors maps a json field name to its message
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for field, msg := range fe {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrFormInvalid
func (fe FieldErrors) Unwrap() error {
	return ErrFormInvalid
}

// validateStruct runs the validator and flattens its errors
func validateStruct(v interface{}) FieldErrors {
	err := Validate.Struct(v)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(errs))
	for _, fe := range errs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fe.Translate(Translator)
		}
	}
	return out
}

// Custom Validators

func notBlankValidation(fl validator.FieldLevel) bool {
	if str, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(str) != ""
	}
	return false
}

func timestampValidation(fl validator.FieldLevel) bool {
	_, err := models.ParseTimestamp(strings.TrimSpace(fl.Field().String()))
	return err == nil
}

func eventTypeValidation(fl validator.FieldLevel) bool {
	return models.EventType(fl.Field().String()).Valid()
}

func caseStatusValidation(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	return raw == "" || models.CaseStatus(raw).Valid()
}
