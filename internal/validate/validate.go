// Package validate checks user, habit and work hour payloads before they
// reach the store.
package validate

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"groovecal/internal/model"
)

// Error describes the first invalid field of a payload. Field is the JSON
// path, e.g. "frequency.interval" or "workHours.monday.end".
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Field + ": " + e.Message
}

var (
	validate *validator.Validate
	hhmmRe   = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)
)

func init() {
	validate = validator.New()
	if err := validate.RegisterValidation("hhmm", validateHHMM); err != nil {
		panic(err)
	}
	validate.RegisterStructValidation(validateDayHours, model.DayHours{})
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// User validates a user payload, including its work hours when present.
func User(u *model.User) error {
	return check(u, "")
}

// Habit validates a habit payload.
func Habit(h *model.Habit) error {
	return check(h, "")
}

// WorkHours validates a work hours payload. nil is valid and means no
// work on any day.
func WorkHours(wh *model.WorkHours) error {
	if wh == nil {
		return nil
	}
	return check(wh, "workHours.")
}

// Completion validates a completion before it is stored.
func Completion(c *model.Completion) error {
	return check(c, "")
}

// Clock reports whether s is a 24-hour "HH:MM" string.
func Clock(s string) bool {
	return hhmmRe.MatchString(s)
}

func check(v any, prefix string) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &Error{
		Field:   prefix + fieldPath(fe.Namespace()),
		Message: message(fe),
	}
}

// fieldPath drops the root type name and any slice index.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns = ns[:i]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		if fe.Field() == "email" {
			return "Email is required"
		}
		return "Field is required"
	case "email":
		return "Invalid email format"
	case "timezone":
		return "Unknown timezone"
	case "hhmm":
		return "Must be in HH:MM format (24-hour)"
	case "startbeforeend":
		return "Start time must be before end time"
	case "oneof":
		return "Must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min", "max":
		if strings.Contains(fe.Namespace(), "weekdays[") {
			return "Weekdays must be numbers between 0-6 (Sunday=0)"
		}
		bound := "at least "
		if fe.Tag() == "max" {
			bound = "no more than "
		}
		if fe.Kind() == reflect.String {
			return "Must be " + bound + fe.Param() + " characters"
		}
		return "Must be " + bound + fe.Param()
	default:
		return "Invalid value"
	}
}

func validateHHMM(fl validator.FieldLevel) bool {
	return Clock(fl.Field().String())
}

// validateDayHours requires Start strictly before End. Malformed clocks are
// reported by the hhmm tag instead.
func validateDayHours(sl validator.StructLevel) {
	dh := sl.Current().Interface().(model.DayHours)
	if !Clock(dh.Start) || !Clock(dh.End) {
		return
	}
	// Zero-padded HH:MM strings order like the times they name.
	if dh.Start >= dh.End {
		sl.ReportError(dh.End, "end", "End", "startbeforeend", "")
	}
}
