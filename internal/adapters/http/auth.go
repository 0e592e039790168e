package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/coderoom/coderoom/internal/domain"
)

// AppClaims is the token body handed back to clients. The realtime
// channel only ever consumes the username it carries.
type AppClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

type credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// AuthHandler is the identity boundary: register/login issue signed
// tokens, nothing is persisted. Accounts live for the process lifetime
// only.
type AuthHandler struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	secret   []byte
	tokenTTL time.Duration
}

func NewAuthHandler(secret []byte) *AuthHandler {
	return &AuthHandler{
		accounts: make(map[string]*domain.Account),
		secret:   secret,
		tokenTTL: 7 * 24 * time.Hour,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid credentials"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	h.mu.Lock()
	if _, exists := h.accounts[req.Username]; exists {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		return
	}
	acc, err := domain.NewAccount(req.Username, hash)
	if err != nil {
		h.mu.Unlock()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.accounts[req.Username] = acc
	h.mu.Unlock()

	log.Info().Str("module", "adapters.auth").Str("username", req.Username).Msg("account registered")
	h.issueToken(c, acc)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid credentials"})
		return
	}

	h.mu.RLock()
	acc, ok := h.accounts[req.Username]
	h.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad credentials"})
		return
	}

	h.issueToken(c, acc)
}

// Me echoes the claims of a Bearer token so the client can restore its
// display name after a reload.
func (h *AuthHandler) Me(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims := &AppClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.secret, nil
	})
	if err != nil || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": claims.Username, "id": claims.Subject})
}

func (h *AuthHandler) issueToken(c *gin.Context, acc *domain.Account) {
	now := time.Now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(acc.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(h.tokenTTL)),
		},
		Username: acc.Username,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.auth").Msg("sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": signed, "username": acc.Username})
}
