package service

import (
	"testing"

	"basketbay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupFieldMessages(t *testing.T) {
	f := validSignup()
	f.FirstName = "Asha1"
	f.LastName = ""
	f.Age = 100
	f.Email = "asha@example"
	f.Address = "   "
	f.Pincode = "40000a"
	f.OTP = "12345"

	err := ValidateSignup(f)
	require.Error(t, err)

	fe, ok := err.(FieldErrors)
	require.True(t, ok)
	assert.Equal(t, FieldErrors{
		"firstname": "letters only",
		"lastname":  "letters only",
		"age":       "must be between 1 and 99",
		"email":     "invalid email",
		"address":   "required",
		"pincode":   "must be 6 digits",
		"otp":       "must be 6 digits",
	}, fe)
	assert.Contains(t, err.Error(), "age: must be between 1 and 99; email: invalid email")
}

func TestSignupAgeBounds(t *testing.T) {
	for _, age := range []int{1, 99} {
		f := validSignup()
		f.Age = age
		assert.NoError(t, ValidateSignup(f), "age %d", age)
	}
}

func TestDiscountBounds(t *testing.T) {
	p := models.NewProduct{
		Name:        "Mug",
		Description: "Stoneware",
		Price:       decimal.RequireFromString("0.5"),
		Count:       1,
	}
	for _, d := range []string{"0", "100", "12.5"} {
		p.Discount = decimal.RequireFromString(d)
		assert.NoError(t, ValidateNewProduct(p), "discount %s", d)
	}
	p.Discount = decimal.NewFromInt(-1)
	assert.Error(t, ValidateNewProduct(p))
}

func TestDigitChecks(t *testing.T) {
	assert.True(t, isMobile("9876543210"))
	assert.False(t, isMobile("98765 43210"))
	assert.False(t, isMobile("asha@example.in"))

	assert.True(t, isOTP("012345"))
	assert.False(t, isOTP("12345"))
	assert.False(t, isOTP("12345a"))
	assert.False(t, isOTP(""))
}
