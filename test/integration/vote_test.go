package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/openballot/api/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitVote(t *testing.T, app *testApp, email, country string) *http.Response {
	t.Helper()

	payload := map[string]interface{}{
		"email":                   email,
		"country_code":            country,
		"privacy_policy_accepted": true,
		"age_confirmed":           true,
	}
	body, _ := json.Marshal(payload)
	resp, err := app.Client.Post(app.Server.URL+"/api/votes", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func voteIDByEmail(t *testing.T, app *testApp, email string) string {
	t.Helper()

	var id string
	err := app.DB.QueryRow("SELECT id FROM votes WHERE email = $1", email).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestSubmitAndConfirmFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	// 1. Submit -> 204, one pending record, one queued job
	resp := submitVote(t, app, "voter@example.com", "DE")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	var jobCount int
	err := app.DB.QueryRow("SELECT COUNT(*) FROM vote_jobs").Scan(&jobCount)
	require.NoError(t, err)
	assert.Equal(t, 1, jobCount)

	// 2. Duplicate email -> 409
	resp = submitVote(t, app, "voter@example.com", "FR")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 3. Country list empty before confirmation
	resp, err = app.Client.Get(app.Server.URL + "/api/countries/DE")
	require.NoError(t, err)
	var votes []domain.PublicVote
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&votes))
	resp.Body.Close()
	assert.Empty(t, votes)

	// 4. Confirm -> public projection, no private fields on the wire
	id := voteIDByEmail(t, app, "voter@example.com")
	resp, err = app.Client.Get(fmt.Sprintf("%s/api/votes/%s", app.Server.URL, id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	resp.Body.Close()
	assert.Equal(t, "DE", raw["country_code"])
	assert.NotEmpty(t, raw["confirmed_at"])
	assert.NotContains(t, raw, "email")
	assert.NotContains(t, raw, "privacy_policy_accepted")
	assert.NotContains(t, raw, "age_confirmed")

	// 5. Cache and stats now see the vote
	resp, err = app.Client.Get(app.Server.URL + "/api/countries/DE")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&votes))
	resp.Body.Close()
	require.Len(t, votes, 1)

	var stats domain.Stats
	resp, err = app.Client.Get(app.Server.URL + "/api/stats")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Total)

	// 6. Confirm again -> same projection, no extra job
	resp, err = app.Client.Get(fmt.Sprintf("%s/api/votes/%s", app.Server.URL, id))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
	resp.Body.Close()
	assert.Equal(t, raw, second)

	err = app.DB.QueryRow("SELECT COUNT(*) FROM vote_jobs").Scan(&jobCount)
	require.NoError(t, err)
	assert.Equal(t, 2, jobCount)
}

func TestSubmitValidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	// Missing consent -> 406, nothing persisted
	payload := map[string]interface{}{
		"email":                   "minor@example.com",
		"country_code":            "DE",
		"privacy_policy_accepted": true,
		"age_confirmed":           false,
	}
	body, _ := json.Marshal(payload)
	resp, err := app.Client.Post(app.Server.URL+"/api/votes", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotAcceptable, resp.StatusCode)
	resp.Body.Close()

	var count int
	err = app.DB.QueryRow("SELECT COUNT(*) FROM votes").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// Malformed email -> 400
	resp = submitVote(t, app, "not-an-email", "DE")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// Unknown id on confirmation -> 404
	resp, err = app.Client.Get(app.Server.URL + "/api/votes/7f2a9bd0-0000-4000-8000-000000000000")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestCacheRefreshRespectsDisabledFlag(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	app := setupTestApp(t)
	defer app.Teardown(t)

	for _, email := range []string{"keep@example.com", "drop@example.com"} {
		resp := submitVote(t, app, email, "BR")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		resp.Body.Close()

		id := voteIDByEmail(t, app, email)
		resp, err := app.Client.Get(fmt.Sprintf("%s/api/votes/%s", app.Server.URL, id))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	// Admin disables one vote out of band; the cache still holds it.
	_, err := app.DB.Exec("UPDATE votes SET disabled = TRUE WHERE email = $1", "drop@example.com")
	require.NoError(t, err)

	// Flush without the secret -> 403
	req, err := http.NewRequest("POST", app.Server.URL+"/api/cache/refresh", nil)
	require.NoError(t, err)
	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// Flush with the secret -> cache drops the disabled vote
	req, err = http.NewRequest("POST", app.Server.URL+"/api/cache/refresh", nil)
	require.NoError(t, err)
	req.Header.Set("X-Flush-Secret", testFlushSecret)
	resp, err = app.Client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	var stats domain.Stats
	resp, err = app.Client.Get(app.Server.URL + "/api/stats")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	assert.Equal(t, 1, stats.Total)
}
