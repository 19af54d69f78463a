package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/voyagen/channeldesk/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("channel_type", func(fl validator.FieldLevel) bool {
		return models.ChannelType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return models.Language(fl.Field().String()).Valid()
	})
	return v
}

// validationDetail turns validator errors into one readable sentence per field.
func validationDetail(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if field == "languages" {
			return "at least one language is required"
		}
		return fmt.Sprintf("%s must have at least %s items", field, fe.Param())
	case "required_with":
		return "channel_id and feed_url must be set together"
	case "channel_type":
		return fmt.Sprintf("unknown channel_type %q", fe.Value())
	case "language":
		return fmt.Sprintf("unknown language %q", fe.Value())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
