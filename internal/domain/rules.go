package domain

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"classcaptain/internal/validate"
)

const (
	afterStartTag  = "after_start"
	positiveTag    = "positive"
	nonNegativeTag = "amount"
)

// NewValidator returns a validator that knows the record types in this package.
func NewValidator() *validate.Validator {
	v := validate.New()

	// Dates validate as their display string so that "required" rejects the zero Date.
	v.RegisterType(func(field reflect.Value) any {
		if d, ok := field.Interface().(Date); ok && !d.IsZero() {
			return d.String()
		}
		return ""
	}, Date{})

	v.RegisterMessage(afterStartTag, "{0} must be after start date")
	v.RegisterMessage(positiveTag, "{0} must be a positive number")
	v.RegisterMessage(nonNegativeTag, "{0} must be a valid amount")
	v.RegisterStruct(batchStructValidation, Batch{})
	return v
}

func batchStructValidation(sl validator.StructLevel) {
	b, ok := sl.Current().Interface().(Batch)
	if !ok {
		return
	}
	if !b.EndDate.IsZero() && !b.StartDate.IsZero() && !b.EndDate.After(b.StartDate) {
		sl.ReportError(b.EndDate, "end_date", "EndDate", afterStartTag, "")
	}
	if b.MaxStudents != nil && *b.MaxStudents <= 0 {
		sl.ReportError(*b.MaxStudents, "max_students", "MaxStudents", positiveTag, "")
	}
	if b.Fees != nil && *b.Fees < 0 {
		sl.ReportError(*b.Fees, "fees", "Fees", nonNegativeTag, "")
	}
}
