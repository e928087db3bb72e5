// Package validate wraps go-playground/validator for request body structs.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New(validator.WithRequiredStructEnabled())

// Struct validates a request body against its validate tags. The returned
// error names the first offending field in a client-friendly way.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if ok := errorsAs(err, &verrs); ok && len(verrs) > 0 {
		fe := verrs[0]
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			return fmt.Errorf("%s is required", field)
		case "email":
			return fmt.Errorf("%s must be a valid email address", field)
		case "max":
			return fmt.Errorf("%s exceeds %s characters", field, fe.Param())
		case "min":
			return fmt.Errorf("%s must be at least %s characters", field, fe.Param())
		case "oneof":
			return fmt.Errorf("%s must be one of: %s", field, fe.Param())
		default:
			return fmt.Errorf("%s is invalid", field)
		}
	}
	return err
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}
