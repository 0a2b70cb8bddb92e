package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"basketbay/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	nameRe  = regexp.MustCompile(`^[a-zA-Z]+$`)
	emailRe = regexp.MustCompile(`\S+@\S+\.\S+`)
)

// fieldMessages override the per-tag message for fields whose rule reads
// better as a whole.
var fieldMessages = map[string]string{
	"age":      "must be between 1 and 99",
	"pincode":  "must be 6 digits",
	"mobileno": "must be 10 digits",
	"otp":      "must be 6 digits",
	"price":    "must be greater than 0",
	"count":    "must be greater than 0",
	"discount": "must be between 0 and 100",
}

var tagMessages = map[string]string{
	"required":   "required",
	"notblank":   "required",
	"name":       "letters only",
	"looseemail": "invalid email",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// decimals validate as numbers so gt/min/max apply to prices and discounts
	v.RegisterCustomTypeFunc(func(f reflect.Value) interface{} {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			n, _ := d.Float64()
			return n
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "name", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "looseemail", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// FieldErrors maps form fields to what is wrong with them. It classifies as a
// validation error.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, fe[k]))
	}
	return "invalid fields: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() error {
	return models.ErrValidation
}

// validateForm runs the struct's validate tags and reports the first failure
// of each field.
func validateForm(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	fe := FieldErrors{}
	for _, vErr := range vErrs {
		field := vErr.Field()
		if _, seen := fe[field]; seen {
			continue
		}
		msg, ok := fieldMessages[field]
		if !ok {
			msg, ok = tagMessages[vErr.Tag()]
		}
		if !ok {
			msg = "invalid"
		}
		fe[field] = msg
	}
	return fe
}

// ValidateSignup checks the signup form the same way the signup page does.
func ValidateSignup(f models.SignupForm) error {
	return validateForm(f)
}

// ValidateNewProduct checks the admin add-product form.
func ValidateNewProduct(p models.NewProduct) error {
	return validateForm(p)
}

func isMobile(s string) bool {
	return validate.Var(s, "number,len=10") == nil
}

func isOTP(s string) bool {
	return validate.Var(s, "number,len=6") == nil
}
