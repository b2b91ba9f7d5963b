package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/gym-management/internal/http/response"
	"github.com/magabrotheeeer/gym-management/internal/models"
)

func TestDecode(t *testing.T) {
	validate := validator.New()
	tests := []struct {
		name      string
		body      string
		wantBad   bool
		wantField string
	}{
		{name: "ok", body: `{"username":"anna","password":"secret"}`},
		{name: "empty body", body: ``, wantBad: true},
		{name: "broken json", body: `{"username":`, wantBad: true},
		{name: "missing field", body: `{"username":"anna"}`, wantField: "Password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst models.LoginRequest
			err := Decode(r, validate, &dst)

			switch {
			case tt.wantBad:
				assert.ErrorIs(t, err, response.ErrBadRequest)
			case tt.wantField != "":
				var verrs validator.ValidationErrors
				require.ErrorAs(t, err, &verrs)
				assert.Equal(t, tt.wantField, verrs[0].Field())
			default:
				require.NoError(t, err)
				assert.Equal(t, "anna", dst.Username)
			}
		})
	}
}

func TestID(t *testing.T) {
	for raw, ok := range map[string]bool{"12": true, "abc": false, "-1": false, "0": false} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", raw)
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

		id, err := ID(r, "id")
		if ok {
			require.NoError(t, err, raw)
			assert.Equal(t, int64(12), id)
		} else {
			assert.ErrorIs(t, err, response.ErrBadRequest, raw)
		}
	}
}

func TestQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?course_id=3&limit=x&exclude_roles=admin,%20staff,", nil)

	v, err := Int64(r, "course_id")
	require.NoError(t, err)
	assert.Equal(t, int64(3), *v)

	v, err = Int64(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = Int(r, "limit", 10)
	assert.ErrorIs(t, err, response.ErrBadRequest)

	n, err := Int(r, "offset", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	assert.Equal(t, []string{"admin", "staff"}, List(r, "exclude_roles"))
}
