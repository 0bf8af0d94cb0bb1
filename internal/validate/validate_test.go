package validate

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contact struct {
	Name   string `json:"name" validate:"required"`
	Mobile string `json:"mobile_number" validate:"required,mobile10"`
	Alt    string `json:"alt_number,omitempty" validate:"omitempty,mobile10"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

func TestStruct_ok(t *testing.T) {
	v := New()
	assert.NoError(t, v.Struct(contact{Name: "Asha", Mobile: "9876543210"}))
}

func TestStruct_fieldErrorsUseJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(contact{Mobile: "12345", Alt: "abcdefghij"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	m := verr.Map()
	assert.Equal(t, "this field is required", m["name"])
	assert.Equal(t, "mobile_number must be 10 digits", m["mobile_number"])
	assert.Equal(t, "alt_number must be 10 digits", m["alt_number"])
	assert.Contains(t, verr.Error(), "mobile_number")
}

func TestStruct_structLevelRule(t *testing.T) {
	v := New()
	v.RegisterMessage("gt_min", "{0} must be greater than min")
	v.RegisterStruct(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(contact)
		if c.Max <= c.Min {
			sl.ReportError(c.Max, "max", "Max", "gt_min", "")
		}
	}, contact{})

	err := v.Struct(contact{Name: "a", Mobile: "9876543210", Min: 5, Max: 5})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, FieldError{Field: "max", Error: "max must be greater than min"}, verr.Fields[0])
}

func TestStruct_nonStruct(t *testing.T) {
	err := New().Struct(42)
	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}
