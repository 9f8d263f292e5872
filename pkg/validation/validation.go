// Package validation holds the shared struct validator used by request
// decoding and domain value checks.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var validate = build()

func build() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	registerParsed(v, "order_status", func(s string) error { _, err := enums.ParseOrderStatus(s); return err })
	registerParsed(v, "payment_status", func(s string) error { _, err := enums.ParsePaymentStatus(s); return err })
	registerParsed(v, "payment_method", func(s string) error { _, err := enums.ParsePaymentMethod(s); return err })
	return v
}

// registerParsed adds a string tag that passes when parse accepts the value.
func registerParsed(v *validator.Validate, tag string, parse func(string) error) {
	_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return parse(fl.Field().String()) == nil
	})
}

// Check runs the validate tags of dest. Failures come back as a
// CodeValidation error whose details map each json field path to a message.
func Check(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		details[fieldPath(fe)] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "order_status", "payment_status", "payment_method":
		return fmt.Sprintf("is not a known %s", strings.ReplaceAll(fe.Tag(), "_", " "))
	}
	return "is invalid"
}
