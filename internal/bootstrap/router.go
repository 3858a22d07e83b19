package bootstrap

import (
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/promptlab-backend/config"
	httpapi "github.com/GoSim-25-26J-441/promptlab-backend/internal/api/http"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/auth"
	authmw "github.com/GoSim-25-26J-441/promptlab-backend/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/autosave"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/changes"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/conflict"
	prompthttp "github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/http"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/service"
	"github.com/GoSim-25-26J-441/promptlab-backend/internal/prompts/versioning"
)

// DemoUser is the identity unauthenticated requests get outside production.
const DemoUser = "demo-user"

type RouterDeps struct {
	ServiceName string
	Config      *config.Config
	Backends    *Backends
	AutoSave    *autosave.Scheduler
	// Verifier is optional. When set, every API request needs a valid bearer
	// token and the X-User-Id header is no longer trusted.
	Verifier authmw.TokenVerifier
	Logger   *slog.Logger
}

// NewAutoSave builds the auto-save scheduler over the draft backend.
func NewAutoSave(cfg *config.Config, drafts DraftBackend, logger *slog.Logger) *autosave.Scheduler {
	return autosave.NewScheduler(drafts, autosave.Config{
		Enabled:  cfg.AutoSave.Enabled,
		Interval: cfg.AutoSave.Interval,
		TTL:      cfg.AutoSave.TTL,
	}, logger)
}

// NewVersionManager builds the version manager from the versioning settings.
func NewVersionManager(cfg *config.Config, prompts PromptBackend, logger *slog.Logger) *versioning.Manager {
	return versioning.NewManager(prompts, prompts, versioning.Config{
		Policy: changes.Policy{
			AutoVersion: cfg.Versioning.AutoVersion,
			MajorOnly:   cfg.Versioning.VersionOnMajorChange,
			Threshold:   cfg.Versioning.MajorChangeThreshold,
		},
		MaxVersions: cfg.Versioning.MaxVersions,
	}, logger)
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Logger))
	r.Use(cors.New(corsConfig(dep.Config.Server.AllowedOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Config.App.Version, dep.Backends.DBPing, dep.Backends.RedisPing)
	healthHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")

	if dep.Verifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier, true))
	}
	fallback := ""
	if dep.Config.App.Environment != "production" {
		fallback = DemoUser
	}
	api.Use(auth.WithUser(fallback))

	versions := NewVersionManager(dep.Config, dep.Backends.Prompts, dep.Logger)
	h := prompthttp.New(prompthttp.Deps{
		Prompts:    service.NewPromptService(dep.Backends.Prompts, versions),
		Versions:   versions,
		Resolver:   conflict.NewResolver(dep.Backends.Prompts),
		AutoSave:   dep.AutoSave,
		Drafts:     dep.Backends.Drafts,
		DraftRate:  dep.Config.AutoSave.RateLimit,
		DraftBurst: dep.Config.AutoSave.RateBurst,
		Logger:     dep.Logger,
	})
	h.Register(api)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", auth.HeaderUserID, middleware.HeaderRequestID},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
