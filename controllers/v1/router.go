package v1

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig wires the HTTP surface.
type RouterConfig struct {
	Leads          *LeadController
	Payments       *PaymentController
	Logger         *slog.Logger
	BasePath       string
	AllowOrigins   []string
	MetricsEnabled bool
}

// NewRouter builds the gin engine with recovery, request logging and CORS.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	base := r.Group(cfg.BasePath)
	for _, path := range []string{"/", "/api/v1/leads"} {
		base.POST(path, cfg.Leads.Ingest)
		base.GET(path, cfg.Leads.Health)
		base.OPTIONS(path, cfg.Leads.Options)
	}
	if cfg.Payments != nil {
		base.Any("/api/create-session", cfg.Payments.CreateSession)
		base.Any("/api/verify-payment", cfg.Payments.VerifyPayment)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:             []string{"Content-Length", requestIDHeader},
		MaxAge:                    12 * time.Hour,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

const requestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request and tags the response with a request id.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(ctx *gin.Context) {
		start := time.Now()
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Header(requestIDHeader, id)

		ctx.Next()

		level := slog.LevelInfo
		if ctx.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(ctx.Request.Context(), level, "request",
			"request_id", id,
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"status", ctx.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
