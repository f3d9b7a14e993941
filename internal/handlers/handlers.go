package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"personahub/api/internal/breach"
	"personahub/api/internal/cache"
	"personahub/api/internal/config"
	"personahub/api/internal/mail"
	"personahub/api/internal/middleware"
	"personahub/api/internal/models"
	"personahub/api/internal/oauth"
	"personahub/api/internal/repository"
	"personahub/api/internal/security"
	"personahub/api/internal/service"
	"personahub/api/internal/storage"
)

type HandlerSet struct {
	log            zerolog.Logger
	cfg            *config.AppConfig
	db             *pgxpool.Pool
	cache          *redis.Client
	tokens         *security.TokenService
	google         *oauth.GoogleClient
	authService    *service.AuthService
	oauthService   *service.OAuthService
	personaService *service.PersonaService
	profileService *service.ProfileService
	accounts       *repository.AccountRepository
	workspaces     *repository.WorkspaceRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	accountRepo := repository.NewAccountRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	personaRepo := repository.NewPersonaRepository(db)
	chatRepo := repository.NewChatRepository(db)

	tokens := security.NewTokenService(cfg.Security.JWTSecret, cfg.Security.JWTAccessTTL, cfg.Security.JWTRefreshTTL)
	breachClient := breach.NewClient(cfg.Breach, log)
	otp := cache.NewOneTimeTokens(redisClient)
	devMailer := mail.NewLogMailer(cfg.Mail, log)
	googleClient := oauth.NewGoogleClient(cfg.Google, log)

	auth := service.NewAuthService(accountRepo, workspaceRepo, tokens, breachClient, otp, devMailer, cfg, log)
	oauthSvc := service.NewOAuthService(accountRepo, workspaceRepo, tokens, log)
	persona := service.NewPersonaService(personaRepo, chatRepo, cfg, log)
	profile := service.NewProfileService(accountRepo, breachClient, store, cfg, log)

	return HandlerSet{
		log:            log,
		cfg:            cfg,
		db:             db,
		cache:          redisClient,
		tokens:         tokens,
		google:         googleClient,
		authService:    auth,
		oauthService:   oauthSvc,
		personaService: persona,
		profileService: profile,
		accounts:       accountRepo,
		workspaces:     workspaceRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	authLimit := middleware.RateLimit("auth", h.cfg.RateLimit, h.cache, h.log)
	authn := middleware.Auth(h.tokens, h.accounts, h.log)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", authLimit, h.RegisterAccount)
		auth.POST("/login", authLimit, h.Login)
		auth.POST("/refresh", authLimit, h.Refresh)
		auth.GET("/verify", authLimit, h.VerifyEmail)
		auth.POST("/password/forgot", authLimit, h.ForgotPassword)
		auth.POST("/password/reset", authLimit, h.ResetPassword)
		auth.GET("/me", authn, h.Me)

		google := v1.Group("/oauth/google")
		google.POST("/callback", authLimit, h.GoogleCallback)

		profile := v1.Group("/profile", authn)
		profile.PUT("", h.UpdateProfile)
		profile.POST("/password", h.ChangePassword)
		profile.POST("/avatar", h.UploadAvatar)

		users := v1.Group("/users", authn)
		users.GET("/:uid", middleware.RequireRolesOrSelf(string(models.RoleAdmin)), h.GetAccount)

		personas := v1.Group("/personas", authn)
		personas.GET("", middleware.RequirePermission(models.PermPersonasRead), h.ListPersonas)
		personas.POST("", middleware.RequirePermission(models.PermPersonasWrite), h.CreatePersona)
		personas.GET("/:id", middleware.RequirePermission(models.PermPersonasRead), h.GetPersona)
		personas.PUT("/:id", middleware.RequirePermission(models.PermPersonasWrite), h.UpdatePersona)
		personas.DELETE("/:id", middleware.RequirePermission(models.PermPersonasWrite), h.DeletePersona)
		personas.POST("/:id/sessions", middleware.RequirePermission(models.PermChatUse), h.StartChatSession)

		chat := v1.Group("/chat", authn, middleware.RequirePermission(models.PermChatUse))
		chat.GET("/sessions", h.ListChatSessions)
		chat.GET("/sessions/:id/messages", h.ListChatMessages)
		chat.POST("/sessions/:id/messages", h.PostChatMessage)

		admin := v1.Group("/admin", authn, middleware.RequirePermission(models.PermAccountsManage))
		admin.GET("/accounts", h.AdminListAccounts)
		admin.PATCH("/accounts/:uid/status", h.AdminSetAccountStatus)
	}
}

// respondServiceError maps service-layer errors to transport shapes.
// Unexpected errors are logged with request context and surface as an
// opaque 500.
func (h HandlerSet) respondServiceError(c *gin.Context, err error) {
	var validation *service.ValidationError
	if errors.As(err, &validation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Error(), "issues": validation.Issues})
		return
	}

	switch {
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Email is already registered"})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	case errors.Is(err, service.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
	case errors.Is(err, service.ErrEmailNotVerified):
		c.JSON(http.StatusForbidden, gin.H{"error": "Email address not verified"})
	case errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "User account is not active"})
	case errors.Is(err, service.ErrWorkspaceInactive):
		c.JSON(http.StatusForbidden, gin.H{"error": "User workspace is not active"})
	case errors.Is(err, service.ErrNoWorkspace):
		c.JSON(http.StatusForbidden, gin.H{"error": "User is not assigned to any workspace"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	case errors.Is(err, service.ErrWorkspaceCreate):
		h.logRequestError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user workspace"})
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrPersonaNotFound),
		errors.Is(err, repository.ErrChatSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})
	default:
		h.logRequestError(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func (h HandlerSet) logRequestError(c *gin.Context, err error) {
	h.log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("request failed")
}

func paginationParams(c *gin.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if perPage := c.Query("perPage"); perPage != "" {
		if v, ok := atoiInRange(perPage, 1, 200); ok {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, ok := atoiInRange(page, 2, 1<<30); ok {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}

func atoiInRange(s string, min, max int) (int, bool) {
	v := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + int(r-'0')
		if v > max {
			return 0, false
		}
	}
	if v < min {
		return 0, false
	}
	return v, true
}
