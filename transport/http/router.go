package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dshuvalov/jumper-challenge/adapters/cookiesession"
	_ "github.com/dshuvalov/jumper-challenge/docs"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/dshuvalov/jumper-challenge/service"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Dependencies are the collaborators the router wires into handlers.
// Metrics and RateLimiter are optional. ClientIP honours forwarding
// headers only from TrustedProxies.
type Dependencies struct {
	AuthService    *service.AuthService
	WalletService  *service.WalletService
	Sessions       *cookiesession.Manager
	Policy         *service.AccessPolicy
	Store          ports.SessionStore
	Metrics        *Metrics
	RateLimiter    *RateLimiter
	TrustedProxies []string
	Logger         *slog.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	if err := router.SetTrustedProxies(trustedProxies(deps.TrustedProxies)); err != nil {
		deps.Logger.Error("invalid trusted proxies, ignoring forwarding headers", "error", err)
		_ = router.SetTrustedProxies(nil)
	}

	router.Use(Recovery(deps.Logger), RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(SecurityHeaders())
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.Middleware())
	}
	router.Use(SessionMiddleware(deps.Sessions, deps.Policy, deps.Logger))

	// Create handlers
	authHandlers := NewAuthHandlers(deps.AuthService, deps.Logger)
	walletHandlers := NewWalletHandlers(deps.WalletService, deps.Logger)
	healthHandlers := NewHealthHandlers(deps.Store, deps.Logger)

	router.GET("/health-check", healthHandlers.Check)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.GET("/me", withSession(authHandlers.Me))
		auth.GET("/nonce", withSession(authHandlers.Nonce))
		auth.POST("/verify", withSession(authHandlers.Verify))
		auth.POST("/logout", withSession(authHandlers.Logout))
	}

	// Wallet routes
	wallets := router.Group("/wallets")
	{
		wallets.GET("/me/tokens", withSession(walletHandlers.MyTokens))
		wallets.GET("/:address/tokens", withSession(walletHandlers.Tokens))
	}

	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json"))))

	router.NoRoute(func(c *gin.Context) {
		respond(c, http.StatusNotFound, msgNotFound, nil)
	})
	router.NoMethod(func(c *gin.Context) {
		respond(c, http.StatusMethodNotAllowed, msgNotAllowed, nil)
	})

	return router
}

func trustedProxies(proxies []string) []string {
	if len(proxies) == 0 {
		return nil
	}
	return proxies
}

// WithCORS allows credentialed requests from origin
func WithCORS(h http.Handler, origin string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{origin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})(h)
}
