package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name        string
		page        string
		perPage     string
		wantPage    int
		wantPerPage int
		wantErr     bool
	}{
		{name: "defaults", wantPage: 1, wantPerPage: DefaultPerPage},
		{name: "explicit", page: "3", perPage: "50", wantPage: 3, wantPerPage: 50},
		{name: "page clamped", page: "-4", wantPage: 1, wantPerPage: DefaultPerPage},
		{name: "page not a number", page: "x", wantErr: true},
		{name: "per_page too large", perPage: "101", wantErr: true},
		{name: "per_page zero", perPage: "0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, perPage, err := ParsePagination(tt.page, tt.perPage)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPerPage, perPage)
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, 0, NewPagination(1, 20, 0).Pages)
	assert.Equal(t, 1, NewPagination(1, 20, 20).Pages)
	assert.Equal(t, 3, NewPagination(1, 20, 41).Pages)
}

func TestRespondRaw(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondRaw(rec, http.StatusTeapot, "text/plain", []byte("short and stout"))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	assert.Equal(t, "short and stout", rec.Body.String())
}
