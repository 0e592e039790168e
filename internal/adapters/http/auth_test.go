package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler([]byte("test-secret"))
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", h.Me)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	var reg struct {
		Token    string `json:"token"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "alice", reg.Username)

	w = doJSON(t, r, http.MethodPost, "/auth/login", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(t, r, http.MethodGet, "/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me.Username)
}

func TestAuth_Register(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "missing password", body: `{"username":"alice"}`, wantCode: http.StatusBadRequest},
		{name: "short username", body: `{"username":"al","password":"hunter22"}`, wantCode: http.StatusBadRequest},
		{name: "short password", body: `{"username":"alice","password":"abc"}`, wantCode: http.StatusBadRequest},
		{name: "valid", body: `{"username":"alice","password":"hunter22"}`, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAuthRouter(t)
			w := doJSON(t, r, http.MethodPost, "/auth/register", tt.body, "")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestAuth_DuplicateUsername(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", `{"username":"alice","password":"hunter22"}`, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/register", `{"username":"alice","password":"other-pass"}`, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuth_LoginRejectsBadCredentials(t *testing.T) {
	r := newAuthRouter(t)
	doJSON(t, r, http.MethodPost, "/auth/register", `{"username":"alice","password":"hunter22"}`, "")

	w := doJSON(t, r, http.MethodPost, "/auth/login", `{"username":"alice","password":"wrong-pass"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", `{"username":"nobody","password":"hunter22"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_MeRejectsGarbageToken(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodGet, "/auth/me", "", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
