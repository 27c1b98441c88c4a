package app

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driver.schoolfleet.org/internal/models"
)

func TestIsInvalidToken(t *testing.T) {
	app := &Application{Config: Config{APITokens: []string{"bus-042-token", "spare"}}}

	assert.False(t, app.IsInvalidToken("bus-042-token"))
	assert.False(t, app.IsInvalidToken("spare"))
	assert.True(t, app.IsInvalidToken(""))
	assert.True(t, app.IsInvalidToken("wrong"))
}

func TestRequestHasInvalidToken(t *testing.T) {
	app := &Application{Config: Config{APITokens: []string{"bus-042-token"}}}

	r, err := http.NewRequest(http.MethodGet, "/api/fleet/route", nil)
	require.NoError(t, err)
	assert.True(t, app.RequestHasInvalidToken(r), "missing header should be invalid")

	r.Header.Set("Authorization", "bus-042-token")
	assert.True(t, app.RequestHasInvalidToken(r), "missing Bearer prefix should be invalid")

	r.Header.Set("Authorization", "Bearer bus-042-token")
	assert.False(t, app.RequestHasInvalidToken(r))
}

func TestDriverRoundTrip(t *testing.T) {
	app := &Application{}

	_, ok := app.Driver()
	assert.False(t, ok)

	app.SetDriver(models.Driver{ID: "d1", FirstName: "Ahmed"})
	d, ok := app.Driver()
	require.True(t, ok)
	assert.Equal(t, "d1", d.ID)

	app.ClearDriver()
	_, ok = app.Driver()
	assert.False(t, ok)
}
