package validator

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/levisbarua/pesaflow-1/internal/api/contract"
	"github.com/levisbarua/pesaflow-1/internal/constants"
	"github.com/levisbarua/pesaflow-1/internal/metrics"
	"github.com/shopspring/decimal"
)

const (
	sep = " and "
)

type Error struct {
	Error       bool
	FailedField string
	Tag         string
	Value       interface{}
}

type IXValidator interface {
	// Validator parses the request body into data, which must be a pointer, and
	// validates it. A non-empty Code in the returned response means the request
	// was rejected and the status is already set on c.
	Validator(data any, message string, c *fiber.Ctx) (responseErr contract.Response)
	Validate(data interface{}) []Error
}

type XValidator struct {
	validator *validator.Validate
	metrics   *metrics.Metrics
}

func NewXValidator(validate *validator.Validate, metrics *metrics.Metrics) IXValidator {
	validate.RegisterTagNameFunc(jsonFieldName)
	validate.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})

	for key, function := range valid {
		// Registration only fails for an empty tag or nil function.
		_ = validate.RegisterValidation(key, function)
	}

	return &XValidator{
		validator: validate,
		metrics:   metrics,
	}
}

func (x XValidator) Validator(data any, message string, c *fiber.Ctx) (responseErr contract.Response) {
	if err := c.BodyParser(data); err != nil {
		x.metrics.RecordValidationError("body", "parse")
		c.Status(http.StatusBadRequest)

		return contract.Response{
			Code:    constants.ErrCodeInvalidRequestBody,
			Message: constants.GetErrorMessage(constants.ErrCodeInvalidRequestBody),
		}
	}

	if errs := x.Validate(data); len(errs) > 0 && errs[0].Error {
		errMsgs := make([]string, 0, len(errs))
		for _, err := range errs {
			errMsgs = append(errMsgs, fmt.Sprintf(message, err.FailedField))
			x.metrics.RecordValidationError(err.FailedField, err.Tag)
		}
		c.Status(http.StatusUnprocessableEntity)

		return contract.Response{
			Code:    constants.ErrCodeValidationFailed,
			Message: strings.Join(errMsgs, sep),
		}
	}

	return responseErr
}

func (x XValidator) Validate(data interface{}) []Error {
	var validationErrors []Error

	errs := x.validator.Struct(data)
	if errs == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(errs, &fieldErrs) {
		return []Error{{Error: true, FailedField: "request", Tag: "invalid"}}
	}

	for _, err := range fieldErrs {
		validationErrors = append(validationErrors, Error{
			Error:       true,
			FailedField: err.Field(),
			Tag:         err.Tag(),
			Value:       err.Value(),
		})
	}
	return validationErrors
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

// decimalValue lets tags run against the decimal's canonical string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		if d.IsZero() {
			return ""
		}
		return d.String()
	}
	return nil
}
