// Package binder implements echo.Binder for the API: JSON bodies or query
// strings are decoded into a params struct, normalized with `mod` tags, given
// `default` tag values and then checked against `validate` tags.
package binder

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/ludotheque/ludotheque/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

// maxBodyBytes caps JSON bodies. Library commits carry whole scan results, so
// this is generous.
const maxBodyBytes = 8 << 20

const allowEmptyBodyKey = "allow_empty_body"

var unknownFieldRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

type Binder struct {
	query    *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

// New builds a Binder with the custom validations registered.
func New() (*Binder, error) {
	query := schema.NewDecoder()
	query.SetAliasTag("query")

	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range map[string]validator.Func{
		"date":   dateValidator,
		"url":    urlValidator,
		"source": sourceValidator,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.Wrapf(err, "failed to register %s validation", tag)
		}
	}

	return &Binder{
		query:    query,
		conform:  modifiers.New(),
		validate: validate,
	}, nil
}

// AllowEmptyBody lets a POST, PUT or PATCH handler bind a request with no
// body, in which case params come from the query string.
func AllowEmptyBody(c echo.Context) {
	c.Set(allowEmptyBodyKey, true)
}

// Bind decodes, normalizes, defaults and validates params into i.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	if req.ContentLength > 0 {
		if err := b.bindBody(i, c); err != nil {
			return err
		}
	} else {
		hasBody := req.Method != http.MethodGet && req.Method != http.MethodDelete
		if allowed, _ := c.Get(allowEmptyBodyKey).(bool); hasBody && !allowed {
			return errcodes.EmptyRequestBody()
		}
		if err := b.bindQuery(i, c.QueryParams()); err != nil {
			return err
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}

	if err := b.validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errcodes.ValidationError(formatValidationError(verrs[0]))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (b *Binder) bindBody(i interface{}, c echo.Context) error {
	req := c.Request()
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return errcodes.UnsupportedMediaType()
	}

	body := http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)
	defer body.Close()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if m := unknownFieldRE.FindStringSubmatch(err.Error()); len(m) == 2 {
		return errcodes.UnknownParameter(m[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errcodes.MalformedPayload()
	}

	logger.FromEchoContext(c).Err(err).Error("unknown json decode error")
	return errcodes.MalformedPayload()
}

func (b *Binder) bindQuery(i interface{}, params url.Values) error {
	err := b.query.Decode(i, params)
	if err == nil {
		return nil
	}

	multi, ok := err.(schema.MultiError)
	if !ok {
		return errors.WithStack(err)
	}
	// Report a single problem. MultiError is a map, so pick the
	// alphabetically first key to keep the message stable.
	var first error
	firstKey := ""
	for key, e := range multi {
		if first == nil || key < firstKey {
			first, firstKey = e, key
		}
	}

	switch e := first.(type) {
	case schema.ConversionError:
		return errcodes.ValidationTypeError(formatSchemaConversionError(e))
	case schema.UnknownKeyError:
		return errcodes.UnknownParameter(e.Key)
	default:
		return errors.WithStack(first)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}
