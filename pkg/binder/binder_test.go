package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("rejects form bodies", func(tt *testing.T) {
		c := newContext("hello=world", echo.MIMEApplicationForm)
		err := b.Bind(&params{}, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})
}

type queryParams struct {
	Force  bool   `query:"force" json:"force,omitempty"`
	Source string `query:"source" json:"source,omitempty" validate:"omitempty,source"`
	Cover  string `query:"cover" json:"cover,omitempty" validate:"omitempty,url"`
}

func TestBinder_Query(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	t.Run("decodes the query of a bodiless POST when allowed", func(tt *testing.T) {
		c := newQueryContext(echo.POST, "/?force=true")
		AllowEmptyBody(c)
		p := queryParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.True(tt, p.Force)
	})

	t.Run("rejects a bodiless POST by default", func(tt *testing.T) {
		c := newQueryContext(echo.POST, "/?force=true")
		p := queryParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "empty")
	})

	t.Run("validates sources", func(tt *testing.T) {
		p := queryParams{}
		require.NoError(tt, b.Bind(&p, newQueryContext(echo.GET, "/?source=steam")))
		assert.Equal(tt, "steam", p.Source)

		err := b.Bind(&queryParams{}, newQueryContext(echo.GET, "/?source=gog"))
		assert.Contains(tt, err.Error(), `"source" is not a known source`)
	})

	t.Run("rejects unknown query keys", func(tt *testing.T) {
		err := b.Bind(&queryParams{}, newQueryContext(echo.GET, "/?platform=nes"))
		assert.Contains(tt, err.Error(), `Unknown Parameter "platform"`)
	})

	t.Run("reports query type errors", func(tt *testing.T) {
		err := b.Bind(&queryParams{}, newQueryContext(echo.GET, "/?force=maybe"))
		assert.Contains(tt, err.Error(), `"force" should be of type bool`)
	})

	t.Run("validates urls", func(tt *testing.T) {
		require.NoError(tt, b.Bind(&queryParams{}, newQueryContext(echo.GET, "/?cover=https://images.igdb.com/x.jpg")))

		err := b.Bind(&queryParams{}, newQueryContext(echo.GET, "/?cover=javascript:alert(1)"))
		assert.Contains(tt, err.Error(), `"cover" must be an http or https URL`)
	})
}

func newQueryContext(method, target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
