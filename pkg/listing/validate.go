package listing

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	perrors "github.com/Humphrey-He/propview/pkg/errors"
)

// Form structs carry their rules in `validate` tags. Two extra tags shape
// the messages:
//
//	label:"First name"              field name used in generic messages
//	msg:"email=Email should be valid|*=..."  per-rule overrides, * matches any rule
//
// String fields are trimmed before checking unless tagged trim:"false".
//
// 表单规则写在validate标签中，label和msg标签决定错误消息的措辞。

var digitsPattern = regexp.MustCompile(`^\d+$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
			return digitsPattern.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// validateForm runs the tag rules over a trimmed copy of form, which must
// be a struct value, and returns perrors.FieldErrors or nil.
func validateForm(form any) error {
	rv := reflect.New(reflect.TypeOf(form)).Elem()
	rv.Set(reflect.ValueOf(form))
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		if f := rv.Field(i); f.Kind() == reflect.String && t.Field(i).Tag.Get("trim") != "false" {
			f.SetString(strings.TrimSpace(f.String()))
		}
	}

	err := formValidator().Struct(rv.Addr().Interface())
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := perrors.FieldErrors{}
	for _, ve := range ves {
		sf, _ := t.FieldByName(ve.StructField())
		if _, seen := out[ve.Field()]; !seen {
			out[ve.Field()] = fieldMessage(sf, ve)
		}
	}
	return out.Err()
}

func fieldMessage(sf reflect.StructField, ve validator.FieldError) string {
	if m, ok := overrides(sf.Tag.Get("msg"))[ve.Tag()]; ok {
		return m
	}
	if m, ok := overrides(sf.Tag.Get("msg"))["*"]; ok && ve.Tag() != "required" {
		return m
	}

	label := sf.Tag.Get("label")
	if label == "" {
		label = sf.Name
	}
	switch ve.Tag() {
	case "required":
		return label + " is required"
	case "email":
		return "Invalid email address"
	case "gte":
		if ve.Param() == "0" {
			return label + " cannot be negative"
		}
		return fmt.Sprintf("%s must be at least %s", label, ve.Param())
	case "min", "max":
		lo, hi := bounds(sf.Tag.Get("validate"))
		switch {
		case lo != "" && hi != "":
			return fmt.Sprintf("%s must be between %s and %s characters", label, lo, hi)
		case hi != "":
			return fmt.Sprintf("%s cannot exceed %s characters", label, hi)
		default:
			return fmt.Sprintf("%s must be at least %s characters", label, lo)
		}
	}
	return label + " is invalid"
}

func overrides(tag string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(tag, "|") {
		if rule, m, ok := strings.Cut(part, "="); ok {
			out[rule] = m
		}
	}
	return out
}

func bounds(rules string) (lo, hi string) {
	for _, r := range strings.Split(rules, ",") {
		if v, ok := strings.CutPrefix(r, "min="); ok {
			lo = v
		}
		if v, ok := strings.CutPrefix(r, "max="); ok {
			hi = v
		}
	}
	return lo, hi
}
