package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/medconnecthq/medconnect/internal/auth"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *iauth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwt, err := iauth.NewJWTService(iauth.JWTConfig{Secret: "test-secret", Issuer: "medconnect"})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/protected", Auth(jwt), func(c *gin.Context) {
		id, _ := c.Get(CtxUserIDKey)
		role, _ := c.Get(CtxRoleKey)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})
	r.GET("/admin", Auth(jwt), RequireRole("admin"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, jwt
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	for _, header := range []string{"Token abc", "Bearer", "bearer "} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
}

func TestAuthAcceptsValidToken(t *testing.T) {
	r, jwt := newAuthTestRouter(t)

	token, err := jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1", Role: "patient"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "user-1")
	require.Contains(t, w.Body.String(), "patient")
}

func TestRequireRole(t *testing.T) {
	r, jwt := newAuthTestRouter(t)

	patientToken, err := jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1", Role: "patient"})
	require.NoError(t, err)
	adminToken, err := jwt.GenerateAccessToken(iauth.AccessTokenInput{UserID: "admin-1", Role: "admin"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+patientToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
