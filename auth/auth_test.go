package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, a *Authenticator) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Use(a.Middleware())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func status(t *testing.T, app *fiber.App, target string, header http.Header) int {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestStaticToken(t *testing.T) {
	a, err := New(Config{Token: "dev"})
	require.NoError(t, err)
	app := newApp(t, a)

	assert.Equal(t, fiber.StatusOK, status(t, app, "/", http.Header{TokenHeader: {"dev"}}))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/", http.Header{TokenHeader: {"nope"}}))
	assert.Equal(t, fiber.StatusUnauthorized, status(t, app, "/", nil))
	assert.Equal(t, fiber.StatusOK, status(t, app, "/?token=dev", nil))
}

func TestLoginWithPasswordHash(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	a, err := New(Config{PasswordHash: hash, Secret: "signing-key", TTL: time.Hour})
	require.NoError(t, err)

	_, _, err = a.Login("wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	token, expires, err := a.Login("s3cret")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)
	require.NoError(t, a.Verify(token))

	app := newApp(t, a)
	assert.Equal(t, fiber.StatusOK, status(t, app, "/", http.Header{fiber.HeaderAuthorization: {"Bearer " + token}}))

	// no static token configured, so the password itself is not a token
	assert.ErrorIs(t, a.Verify("s3cret"), ErrUnauthorized)
}

func TestLoginWithStaticToken(t *testing.T) {
	a, err := New(Config{Token: "dev"})
	require.NoError(t, err)

	_, _, err = a.Login("other")
	assert.ErrorIs(t, err, ErrUnauthorized)
	token, _, err := a.Login("dev")
	require.NoError(t, err)
	assert.NoError(t, a.Verify(token))
}

func TestExpiredAndForeignTokens(t *testing.T) {
	a, err := New(Config{Token: "dev", Secret: "one", TTL: time.Minute})
	require.NoError(t, err)
	token, _, err := a.Login("dev")
	require.NoError(t, err)

	a.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.ErrorIs(t, a.Verify(token), ErrUnauthorized)

	other, err := New(Config{Token: "dev", Secret: "two"})
	require.NoError(t, err)
	foreign, _, err := other.Login("dev")
	require.NoError(t, err)
	a.now = time.Now
	assert.ErrorIs(t, a.Verify(foreign), ErrUnauthorized)
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{PasswordHash: "not-bcrypt"})
	assert.Error(t, err)
}
