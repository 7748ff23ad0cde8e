package bootstrap

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	httpapi "github.com/GoSim-25-26J-441/lms-access-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/domain"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/guard"
	authhttp "github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/http"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/service"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/metrics"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	Store          string
	AllowedOrigins []string
	SignupRPS      float64
	SignupBurst    int

	Health   httpapi.StoreCheck
	Auth     *service.AuthService
	Verifier identity.TokenVerifier
	Resetter identity.PasswordResetter
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Log      *slog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposeHeaders:    []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Store, dep.Health)
	healthHandler.RegisterRoutes(r)
	if dep.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(dep.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")

	authHandler := authhttp.New(dep.Auth, dep.Resetter, dep.Log)
	limiter := middleware.RateLimit(rate.NewLimiter(rate.Limit(dep.SignupRPS), dep.SignupBurst))
	authHandler.Register(api.Group("/auth"), middleware.FirebaseAuthMiddleware(dep.Verifier), limiter)

	// Guarded routes let the guard decide about anonymous callers.
	g := guard.New(dep.Auth, dep.Log, dep.Metrics)
	guarded := api.Group("", middleware.OptionalFirebaseAuth(dep.Verifier, dep.Log))
	guarded.GET("/courses/access", g.Require(), authHandler.CourseAccess)
	authHandler.RegisterAdmin(guarded.Group("/admin", g.Require(domain.RoleAdmin)))

	return r
}
