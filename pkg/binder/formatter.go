package binder

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/iancoleman/strcase"
	"github.com/segmentio/encoding/json"
)

const (
	date     = "date"
	datetime = "datetime"
	email    = "email"
	gt       = "gt"
	gte      = "gte"
	gtfield  = "gtfield"
	ltfield  = "ltfield"
	mx       = "max"
	mn       = "min"
	ne       = "ne"
	oneof    = "oneof"
	required = "required"
	reqWO    = "required_without"
	srcTag   = "source"
	urlTag   = "url"
)

const isoDate = "2006-01-02"

var timeType = reflect.TypeOf(time.Time{})

func formatUnmarshalTypeError(err *json.UnmarshalTypeError) string {
	return fmt.Sprintf("%q should be of type %s", strings.Trim(err.Field, "."), err.Type)
}

func formatSchemaConversionError(err schema.ConversionError) string {
	return fmt.Sprintf("%q should be of type %s", err.Key, err.Type)
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case date:
		return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
	case datetime:
		if param == isoDate {
			return fmt.Sprintf("%q should be in the format of YYYY-MM-DD", field)
		}
		return fmt.Sprintf("%q should be in the format of %s", field, param)
	case email:
		return fmt.Sprintf("%q is not a valid email", field)
	case gt:
		return fmt.Sprintf("%q must be greater than %s", field, comparand(err))
	case gte:
		return fmt.Sprintf("%q must be greater than or equal to %s", field, comparand(err))
	case gtfield:
		return fmt.Sprintf("%q must be greater than %s", field, strcase.ToSnake(param))
	case ltfield:
		return fmt.Sprintf("%q must be less than %s", field, strcase.ToSnake(param))
	case mx:
		return boundMessage(field, "less", err)
	case mn:
		return boundMessage(field, "greater", err)
	case ne:
		return fmt.Sprintf("%q can't be %q", field, param)
	case oneof:
		quoted := strings.Fields(param)
		for i, p := range quoted {
			quoted[i] = fmt.Sprintf("%q", p)
		}
		return fmt.Sprintf("%q must be one of the following: %s", field, strings.Join(quoted, ", "))
	case required:
		return fmt.Sprintf("%q is required", field)
	case reqWO:
		return fmt.Sprintf("%q is required unless %s is set", field, strcase.ToSnake(param))
	case srcTag:
		return fmt.Sprintf("%q is not a known source", field)
	case urlTag:
		return fmt.Sprintf("%q must be an http or https URL", field)
	default:
		return fmt.Sprintf("%q is invalid (%s)", field, err.Tag())
	}
}

// comparand is the right-hand side of a gt/gte message. A time field with no
// param is compared against the current time.
func comparand(err validator.FieldError) string {
	if err.Param() == "" && err.Type() == timeType {
		return "now"
	}
	return err.Param()
}

// boundMessage words a min or max failure: numbers compare by value, slices
// by element count and everything else by character count.
func boundMessage(field, direction string, err validator.FieldError) string {
	//exhaustive:ignore
	switch err.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%q must be %s than or equal to %s", field, direction, err.Param())
	}

	unit := "character"
	if err.Kind() == reflect.Slice || err.Kind() == reflect.Array || err.Kind() == reflect.Map {
		unit = "element"
	}
	if err.Param() != "1" {
		unit += "s"
	}
	return fmt.Sprintf("%q length must be %s than or equal to %s %s", field, direction, err.Param(), unit)
}
