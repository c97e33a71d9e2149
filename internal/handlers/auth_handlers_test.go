package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/fusionmarkt/shop/internal/hash"
	"github.com/fusionmarkt/shop/internal/models"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *gorm.DB) {
	db := initTestDB(t)
	return &AuthHandler{
		DB:            db,
		JWTSecret:     []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	}, db
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	return he
}

func TestRegisterCreatesUser(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/register",
		`{"email":" AYSE@Example.com ","password":"s3cret","first_name":"Ayşe"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var user models.User
	require.NoError(t, db.Where("email = ?", "ayse@example.com").First(&user).Error)
	require.Equal(t, "user", user.Role)
	require.False(t, user.Guest)
	require.True(t, hash.CheckPassword(user.PasswordHash, "s3cret"))
}

func TestRegisterRejectsExistingAccount(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	pwHash, err := hash.HashPassword("old")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email: "ayse@example.com", PasswordHash: pwHash, Role: "user",
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/register",
		`{"email":"ayse@example.com","password":"s3cret"}`)
	c := e.NewContext(req, rec)

	he := httpError(t, h.Register(c))
	require.Equal(t, http.StatusConflict, he.Code)
}

func TestRegisterMissingFields(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/register", `{"email":"ayse@example.com"}`)
	c := e.NewContext(req, rec)

	he := httpError(t, h.Register(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}

// A guest account created during checkout is claimed, not rejected, when the
// buyer later registers with the same email. Orders stay attached to it.
func TestRegisterClaimsGuestAccount(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	pw, err := hash.RandomPassword()
	require.NoError(t, err)
	pwHash, err := hash.HashPassword(pw)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email: "ayse@example.com", FirstName: "Ayşe",
		PasswordHash: pwHash, Role: "user", Guest: true,
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/register",
		`{"email":"ayse@example.com","password":"s3cret","last_name":"Yılmaz"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	require.False(t, users[0].Guest)
	require.Equal(t, "Ayşe", users[0].FirstName)
	require.Equal(t, "Yılmaz", users[0].LastName)
	require.True(t, hash.CheckPassword(users[0].PasswordHash, "s3cret"))
}

func TestLoginSetsCookiesAndStoresRefreshToken(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	pwHash, err := hash.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email: "ayse@example.com", PasswordHash: pwHash, Role: "user",
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/login",
		`{"email":"ayse@example.com","password":"s3cret"}`)
	c := e.NewContext(req, rec)

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["access_token"])
	require.NotEmpty(t, body["refresh_token"])
	require.Equal(t, false, body["is_admin"])

	cookies := rec.Result().Cookies()
	names := map[string]bool{}
	for _, ck := range cookies {
		names[ck.Name] = true
		require.True(t, ck.HttpOnly)
	}
	require.True(t, names["accessToken"])
	require.True(t, names["refreshToken"])

	var stored int64
	require.NoError(t, db.Model(&models.RefreshToken{}).Count(&stored).Error)
	require.EqualValues(t, 1, stored)
}

func TestLoginWrongPassword(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	pwHash, err := hash.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email: "ayse@example.com", PasswordHash: pwHash, Role: "user",
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/login",
		`{"email":"ayse@example.com","password":"wrong"}`)
	c := e.NewContext(req, rec)

	he := httpError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

// A guest account has a random throwaway password nobody knows; until it is
// claimed through registration it must not be able to log in.
func TestLoginRejectsGuestAccount(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	pwHash, err := hash.HashPassword("s3cret")
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Email: "guest@example.com", PasswordHash: pwHash, Role: "user", Guest: true,
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/login",
		`{"email":"guest@example.com","password":"s3cret"}`)
	c := e.NewContext(req, rec)

	he := httpError(t, h.Login(c))
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestLogOutRevokesRefreshToken(t *testing.T) {
	h, db := newAuthHandler(t)
	e := echo.New()

	require.NoError(t, db.Create(&models.RefreshToken{
		Token: "tok-1", UserID: 1, Role: "user", ExpiresAt: 9999999999,
	}).Error)

	req, rec := jsonRequest(http.MethodPost, "/api/logout", "")
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "tok-1"})
	c := e.NewContext(req, rec)

	require.NoError(t, h.LogOut(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.RefreshToken
	require.NoError(t, db.Where("token = ?", "tok-1").First(&stored).Error)
	require.True(t, stored.Revoked)

	for _, ck := range rec.Result().Cookies() {
		require.Empty(t, ck.Value)
	}
}

func TestLogOutWithoutCookie(t *testing.T) {
	h, _ := newAuthHandler(t)
	e := echo.New()

	req, rec := jsonRequest(http.MethodPost, "/api/logout", "")
	c := e.NewContext(req, rec)

	he := httpError(t, h.LogOut(c))
	require.Equal(t, http.StatusBadRequest, he.Code)
}
