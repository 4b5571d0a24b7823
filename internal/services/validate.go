package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// fieldMessages maps "field.tag" (or just "field") to the message shown to
// the user.
type fieldMessages map[string]string

// validateInput runs struct validation and turns failures into a coded
// validation error with one message per field.
func validateInput(op string, in interface{}, msgs fieldMessages) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return domainagg.NewError(domainagg.CodeValidation, op, err.Error(), err)
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		name := fe.Field()
		if _, seen := fields[name]; seen {
			continue
		}
		switch {
		case msgs[name+"."+fe.Tag()] != "":
			fields[name] = msgs[name+"."+fe.Tag()]
		case msgs[name] != "":
			fields[name] = msgs[name]
		default:
			fields[name] = "invalid value (" + fe.Tag() + ")"
		}
	}
	return domainagg.Validation(op, fields)
}

// trimPtr trims the pointed string in place.
func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
