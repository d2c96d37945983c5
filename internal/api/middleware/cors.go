package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig allows any origin. The API carries no cookies, so
// credentials stay disabled.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept",
			"Origin",
			"Cache-Control",
			"X-Requested-With",
			"X-Trace-ID",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware with the provided configuration. The
// opaque origin "null" is accepted when listed.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	var (
		origins   []string
		allowNull bool
	)
	for _, o := range cfg.AllowOrigins {
		if o == "null" {
			allowNull = true
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 && !allowNull {
		origins = DefaultCORSConfig().AllowOrigins
	}

	conf := cors.Config{
		AllowOrigins:    origins,
		AllowMethods:    cfg.AllowMethods,
		AllowHeaders:    cfg.AllowHeaders,
		AllowWebSockets: true,
		MaxAge:          cfg.MaxAge,
	}
	if allowNull {
		conf.AllowOriginFunc = func(origin string) bool {
			return origin == "null"
		}
	}
	return cors.New(conf)
}
