package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"shreelaxmi/site/internal/config"
	"shreelaxmi/site/internal/metrics"
	"shreelaxmi/site/internal/middleware"
	"shreelaxmi/site/internal/models"
	"shreelaxmi/site/internal/oauth"
	"shreelaxmi/site/internal/service"
)

// StateStore keeps OAuth state values between the redirect and the callback.
type StateStore interface {
	Save(ctx context.Context, state, callbackURL string) error
	Consume(ctx context.Context, state string) (string, error)
}

// HealthCheck is one dependency reported by /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Auth     *service.AuthService
	Team     *service.TeamService
	Contacts *service.ContactService
	Google   oauth.Provider // nil when Google sign-in is not configured
	States   StateStore
	Limiter  middleware.Limiter
	Checks   []HealthCheck
	Gatherer prometheus.Gatherer
}

type HandlerSet struct {
	log      zerolog.Logger
	cfg      *config.AppConfig
	auth     *service.AuthService
	team     *service.TeamService
	contacts *service.ContactService
	google   oauth.Provider
	states   StateStore
	limiter  middleware.Limiter
	checks   []HealthCheck
	gatherer prometheus.Gatherer
	session  middleware.SessionOptions
}

func NewHandlerSet(log zerolog.Logger, cfg *config.AppConfig, deps Deps) HandlerSet {
	return HandlerSet{
		log:      log,
		cfg:      cfg,
		auth:     deps.Auth,
		team:     deps.Team,
		contacts: deps.Contacts,
		google:   deps.Google,
		states:   deps.States,
		limiter:  deps.Limiter,
		checks:   deps.Checks,
		gatherer: deps.Gatherer,
		session: middleware.SessionOptions{
			CookieName:    cfg.Security.CookieName,
			CookieDomain:  cfg.Security.CookieDomain,
			CookieSecure:  cfg.Security.CookieSecure,
			RefreshWindow: cfg.Security.RefreshWindow,
		},
	}
}

func (h HandlerSet) Register(engine *gin.Engine) {
	engine.GET("/healthz", h.Health)
	if h.gatherer != nil {
		engine.GET("/metrics", gin.WrapH(metrics.Handler(h.gatherer)))
	}

	session := middleware.Session(h.auth, h.session, h.log)

	engine.GET("/admin",
		session,
		middleware.RedirectUnlessRole(models.RoleAdmin, h.cfg.Auth.SignInPath),
		h.AdminDashboard,
	)

	api := engine.Group("/api")
	api.Use(session)
	{
		auth := api.Group("/auth")
		auth.POST("/signup", h.rateLimit("signup", h.cfg.RateLimit.SignUp), h.SignUp)
		auth.POST("/signin", h.rateLimit("signin", h.cfg.RateLimit.SignIn), h.SignIn)
		auth.GET("/signin/google", h.GoogleRedirect)
		auth.GET("/callback/google", h.GoogleCallback)
		auth.POST("/signin/google", h.rateLimit("signin", h.cfg.RateLimit.SignIn), h.GoogleIDToken)
		auth.POST("/signout", h.SignOut)
		auth.GET("/session", middleware.RequireSession(), h.CurrentSession)
		auth.POST("/session/refresh", middleware.RequireSession(), h.RefreshSession)
	}

	api.GET("/team", h.ListTeam)
	team := api.Group("/team")
	team.Use(middleware.RequireRole(models.RoleAdmin))
	{
		team.POST("", h.CreateTeamMember)
		team.PUT("/:id", h.UpdateTeamMember)
		team.DELETE("/:id", h.DeleteTeamMember)
		team.POST("/:id/photo", h.UploadTeamPhoto)
	}

	api.POST("/contact", h.rateLimit("contact", h.cfg.RateLimit.Contact), h.SubmitContact)
	contact := api.Group("/contact")
	contact.Use(middleware.RequireRole(models.RoleAdmin))
	{
		contact.GET("", h.ListContacts)
		contact.GET("/:id", h.GetContact)
		contact.PUT("/:id", h.UpdateContactStatus)
		contact.DELETE("/:id", h.DeleteContact)
	}
}

func (h HandlerSet) rateLimit(scope string, limit int) gin.HandlerFunc {
	window := h.cfg.RateLimit.Window
	if window <= 0 {
		window = time.Minute
	}
	return middleware.RateLimit(h.limiter, scope, limit, window, h.log)
}
