package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"testing"

	e "github.com/gartstein/companies/internal/company/errors"
	"github.com/gartstein/companies/internal/company/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	ve := e.NewValidationError()
	ve.Add("email", "The email has already been taken.")

	tests := []struct {
		name       string
		err        error
		op         operation
		wantStatus int
		wantMsg    string
		wantKnown  bool
	}{
		{"validation", ve, opCreate, http.StatusUnprocessableEntity, "The email has already been taken.", true},
		{"update not found", fmt.Errorf("get: %w", e.ErrNotFound), opUpdate, http.StatusUnprocessableEntity, msgUpdateNotFound, true},
		{"delete not found", e.ErrNotFound, opDelete, http.StatusNotFound, msgDeleteNotFound, true},
		{"logo not found", &e.BlobError{Op: "open", Name: "x", Err: e.ErrNotFound}, opLogo, http.StatusNotFound, msgLogoNotFound, true},
		{"conflict", fmt.Errorf("create: %w", e.ErrConflict), opCreate, http.StatusConflict, msgConflict, true},
		{"status error", &e.StatusError{Status: http.StatusPaymentRequired, Message: "Quota exceeded"}, opCreate, http.StatusPaymentRequired, "Quota exceeded", true},
		{"unknown", errors.New("boom"), opList, http.StatusInternalServerError, msgServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, known := classify(tt.err, tt.op)
			assert.Equal(t, tt.wantStatus, f.status)
			assert.Equal(t, tt.wantMsg, f.message)
			assert.Equal(t, tt.wantKnown, known)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID(" 42 ")
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)

	for _, raw := range []string{"", "x", "0", "-3", "1.5", "99999999999"} {
		_, err := parseID(raw)
		assert.ErrorIs(t, err, e.ErrInvalidInput, "raw %q", raw)
	}
}

func TestParsePaging(t *testing.T) {
	limit, page, err := parsePaging(url.Values{})
	require.NoError(t, err)
	assert.Zero(t, limit)
	assert.Zero(t, page)

	limit, page, err = parsePaging(url.Values{"limit": {"25"}, "page": {"3"}})
	require.NoError(t, err)
	assert.Equal(t, 25, limit)
	assert.Equal(t, 3, page)

	_, _, err = parsePaging(url.Values{"limit": {"-1"}})
	var ve *e.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The limit must be a positive integer."}, ve.Fields["limit"])

	_, _, err = parsePaging(url.Values{"limit": {"101"}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The limit may not be greater than 100."}, ve.Fields["limit"])

	_, _, err = parsePaging(url.Values{"limit": {"9223372036854775807"}, "page": {"99999999999999999999"}})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"The limit may not be greater than 100."}, ve.Fields["limit"])
	assert.Equal(t, []string{"The page must be a positive integer."}, ve.Fields["page"], "values past int range are rejected")
}

func TestDecodeJSONFields(t *testing.T) {
	values := url.Values{}
	err := decodeJSONFields(strings.NewReader(`{"id":12,"name":"Acme","website":null,"active":true}`), values)
	require.NoError(t, err)
	assert.Equal(t, "12", values.Get("id"))
	assert.Equal(t, "Acme", values.Get("name"))
	assert.Equal(t, "true", values.Get("active"))
	_, hasWebsite := values["website"]
	assert.False(t, hasWebsite, "null members are absent")

	assert.NoError(t, decodeJSONFields(strings.NewReader(""), url.Values{}), "an empty body has no fields")
	assert.Error(t, decodeJSONFields(strings.NewReader(`{"name":{"first":"A"}}`), url.Values{}))
	assert.Error(t, decodeJSONFields(strings.NewReader(`[1,2]`), url.Values{}))
}

func TestFormToInput(t *testing.T) {
	logo := &models.LogoUpload{Filename: "a.png", Data: []byte{1}}

	in := formToInput(5, url.Values{"name": {"Acme"}, "email": {"a@acme.com"}, "website": {""}}, logo)
	assert.EqualValues(t, 5, in.ID)
	assert.Equal(t, "Acme", in.Name)
	require.NotNil(t, in.Website, "a present but blank website is passed through for the service to clear")
	assert.Equal(t, "", *in.Website)
	assert.Same(t, logo, in.Logo)

	in = formToInput(0, url.Values{"name": {"Acme"}}, nil)
	assert.Nil(t, in.Website)
	assert.Nil(t, in.Logo)
}

func TestFieldsToInput(t *testing.T) {
	website := "https://acme.example.com"
	in := fieldsToInput(3, &CompanyFields{
		Name: "Acme", Email: "a@acme.com", Website: &website,
		Logo: &LogoFile{Filename: "a.png", Data: []byte{9}},
	})
	assert.EqualValues(t, 3, in.ID)
	assert.Equal(t, &website, in.Website)
	require.NotNil(t, in.Logo)
	assert.Equal(t, "a.png", in.Logo.Filename)
	assert.Equal(t, []byte{9}, in.Logo.Data)
}
