package serverutils

import (
	"errors"
	"reflect"
	"strings"

	"ecospectre-be/pkg/scan"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateRequest runs struct tags and reports every failing field by its JSON name.
// A failed "required" is a missing field, anything else is an invalid one.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &scan.ValidationError{}
	for _, fe := range fieldErrs {
		name := fieldPath(fe.Namespace())
		if fe.Tag() == "required" {
			verr.Missing = append(verr.Missing, name)
		} else {
			verr.Invalid = append(verr.Invalid, name)
		}
	}
	return verr.OrNil()
}

// fieldPath drops the root struct name: "CreateScanRequest.breakdown.materials" -> "breakdown.materials".
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}
