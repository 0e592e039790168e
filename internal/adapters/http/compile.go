package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/coderoom/coderoom/internal/config"
)

// languageVersions maps editor language ids to the execute API's
// versionIndex parameter.
var languageVersions = map[string]string{
	"python3": "3",
	"java":    "3",
	"cpp":     "4",
	"nodejs":  "3",
	"c":       "4",
	"ruby":    "3",
	"go":      "3",
	"scala":   "3",
	"bash":    "3",
	"sql":     "3",
	"pascal":  "2",
	"csharp":  "3",
	"php":     "3",
	"swift":   "3",
	"rust":    "3",
	"r":       "3",
}

type compileRequest struct {
	Code     string `json:"code" binding:"required"`
	Language string `json:"language" binding:"required"`
}

type executePayload struct {
	Script       string `json:"script"`
	Language     string `json:"language"`
	VersionIndex string `json:"versionIndex"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// CompileHandler forwards source code to the external execute service
// and returns its response verbatim. Stateless: a failure here never
// touches session state.
type CompileHandler struct {
	url          string
	clientID     string
	clientSecret string
	client       *http.Client
}

func NewCompileHandler(cfg *config.Config) *CompileHandler {
	return &CompileHandler{
		url:          cfg.CompileURL,
		clientID:     cfg.CompileClientID,
		clientSecret: cfg.CompileClientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *CompileHandler) Handle(c *gin.Context) {
	var req compileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code or language"})
		return
	}

	version, ok := languageVersions[req.Language]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language"})
		return
	}

	body, err := json.Marshal(executePayload{
		Script:       req.Code,
		Language:     req.Language,
		VersionIndex: version,
		ClientID:     h.clientID,
		ClientSecret: h.clientSecret,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build request"})
		return
	}

	proxyReq, err := http.NewRequestWithContext(c.Request.Context(), http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build request"})
		return
	}
	proxyReq.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(proxyReq)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.compile").Msg("execute service unreachable")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to compile code"})
		return
	}
	defer resp.Body.Close()

	c.Header("Content-Type", resp.Header.Get("Content-Type"))
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Error().Err(err).Str("module", "adapters.compile").Msg("copy execute response")
	}
}
