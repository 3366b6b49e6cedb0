package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/levisbarua/pesaflow-1/pkg/mpesa"
)

const (
	amountRegex = `^\d+(\.\d{1,2})?$`
)

const (
	AmountTag = "amount"
	PhoneTag  = "msisdn"
)

var amountPattern = regexp.MustCompile(amountRegex)

var valid = map[string]func(fl validator.FieldLevel) bool{
	AmountTag: ValidateAmount,
	PhoneTag:  ValidatePhone,
}

// ValidateAmount accepts positive amounts with at most two decimal places.
func ValidateAmount(fl validator.FieldLevel) bool {
	return amountPattern.MatchString(fl.Field().String())
}

func ValidatePhone(fl validator.FieldLevel) bool {
	_, err := mpesa.NormalizePhoneNumber(fl.Field().String(), "")
	return err == nil
}
