package internal

import (
	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs go-playground/validator into echo's c.Validate
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator builds a validator with the custom rules registered
func NewRequestValidator() (*RequestValidator, error) {
	v := validator.New()
	if err := v.RegisterValidation("region", isRegion); err != nil {
		return nil, err
	}
	return &RequestValidator{validate: v}, nil
}

func (rv *RequestValidator) Validate(i interface{}) error {
	return rv.validate.Struct(i)
}

func isRegion(fl validator.FieldLevel) bool {
	return knownRegion(fl.Field().String())
}

// validationMessage turns the first failed rule into a short client message
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " is too long"
	case "gte", "lte":
		return fe.Field() + " is out of range"
	case "eqfield":
		return fe.Field() + " must match " + fe.Param()
	case "region":
		return fe.Field() + " is not a known region"
	default:
		return fe.Field() + " is invalid"
	}
}
