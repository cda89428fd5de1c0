// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labtrust/trust-engine/internal/i18n"
)

// I18nMiddleware resolves the response language from the ?lang= override or
// the Accept-Language header.
func I18nMiddleware(defaultLang string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := c.Query("lang")
		if lang == "" {
			lang = c.GetHeader("Accept-Language")
		}

		c.Set("lang", resolveLanguage(lang, defaultLang))
		c.Next()
	}
}

func resolveLanguage(header, defaultLang string) string {
	if header == "" {
		return defaultLang
	}

	// Handle cases like "zh-TW,zh;q=0.9,en;q=0.8"
	first := strings.TrimSpace(strings.Split(strings.Split(header, ",")[0], ";")[0])
	var lang string
	switch first {
	case "zh-TW", "zh-Hant", "zh_TW", "zh":
		lang = "zh_TW"
	case "en", "en-US", "en-GB":
		lang = "en"
	default:
		return defaultLang
	}

	// Only languages with a loaded bundle are served.
	for _, supported := range i18n.GetSupportedLanguages() {
		if supported == lang {
			return lang
		}
	}
	return defaultLang
}
