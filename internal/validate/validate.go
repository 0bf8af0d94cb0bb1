// Package validate wraps go-playground/validator with English messages keyed by
// JSON field names.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	requiredTag  = "required"
	requiredText = "this field is required"

	mobileTag   = "mobile10"
	mobileText  = "{0} must be 10 digits"
	mobileRegex = regexp.MustCompile(`^\d{10}$`)
)

// FieldError is a failed rule on one named field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError is returned when a draft record is rejected. Nothing has been
// written anywhere when it is returned.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err *ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	parts := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		parts = append(parts, f.Field+": "+f.Error)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Map returns field -> message, the shape sent to API clients.
func (err *ValidationError) Map() map[string]string {
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		m[f.Field] = f.Error
	}
	return m
}

// Validator checks structs and turns failures into a *ValidationError.
type Validator struct {
	engine *validator.Validate
	trans  ut.Translator
}

func New() *Validator {
	engine := validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(engine, trans)

	// Use JSON tag names for errors instead of Go struct names.
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{engine: engine, trans: trans}
	v.RegisterRule(mobileTag, func(fl validator.FieldLevel) bool {
		return mobileRegex.MatchString(fl.Field().String())
	}, mobileText)
	v.RegisterMessage(requiredTag, requiredText, true)
	return v
}

// RegisterRule adds a field-level rule and its message. "{0}" in text is the field name.
func (v *Validator) RegisterRule(tag string, fn validator.Func, text string) {
	_ = v.engine.RegisterValidation(tag, fn)
	v.RegisterMessage(tag, text)
}

// RegisterMessage sets the message for a tag, including tags only reported
// from struct-level rules.
func (v *Validator) RegisterMessage(tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = v.engine.RegisterTranslation(
		tag, v.trans,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterType makes custom value types visible to standard rules such as required.
func (v *Validator) RegisterType(fn validator.CustomTypeFunc, types ...any) {
	v.engine.RegisterCustomTypeFunc(fn, types...)
}

// RegisterStruct adds a cross-field rule for the given struct types.
func (v *Validator) RegisterStruct(fn validator.StructLevelFunc, types ...any) {
	v.engine.RegisterStructValidation(fn, types...)
}

// Struct validates s. It returns nil, a *ValidationError, or the engine's error
// for non-struct input.
func (v *Validator) Struct(s any) error {
	err := v.engine.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	flds := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		flds = append(flds, FieldError{Field: fe.Field(), Error: fe.Translate(v.trans)})
	}
	return NewValidationError(nil, flds...)
}
