package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bass-society/secretary-backend/internal/agent"
	"github.com/bass-society/secretary-backend/internal/clients/openai"
	"github.com/bass-society/secretary-backend/internal/data/db"
	"github.com/bass-society/secretary-backend/internal/http/handlers"
	"github.com/bass-society/secretary-backend/internal/pkg/logger"
	"github.com/bass-society/secretary-backend/internal/server"
	"github.com/bass-society/secretary-backend/internal/transcript"
	"github.com/bass-society/secretary-backend/internal/watcher"
)

type App struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Router     *gin.Engine
	Cfg        Config
	Repos      Repos
	Integrator *transcript.Integrator
	Dispatcher *agent.Dispatcher
	Watcher    *watcher.Watcher

	cancel context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init openai client: %w", err)
	}

	resolver := transcript.NewResolver()
	resolver.SetCutoff(transcript.KindMember, cfg.MemberCutoff)
	resolver.SetCutoff(transcript.KindProject, cfg.ProjectCutoff)
	resolver.SetCutoff(transcript.KindTopic, cfg.TopicCutoff)

	extractor := transcript.NewExtractor(aiClient, log)
	integrator := transcript.NewIntegrator(transcript.IntegratorDeps{
		DB:        theDB,
		Members:   reposet.Member,
		Projects:  reposet.Project,
		Topics:    reposet.Topic,
		Meetings:  reposet.Meeting,
		Tasks:     reposet.Task,
		Extractor: extractor,
		Resolver:  resolver,
	}, cfg.MeetingTypes, log)

	registry := agent.NewRegistry(log)
	toolset := agent.NewToolset(agent.ToolsetDeps{
		DB:       theDB,
		Members:  reposet.Member,
		Projects: reposet.Project,
		Topics:   reposet.Topic,
		Meetings: reposet.Meeting,
		Tasks:    reposet.Task,
		Resolver: resolver,
	}, log)
	if err := toolset.RegisterAll(registry); err != nil {
		log.Sync()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	dispatcher := agent.NewDispatcher(registry, aiClient, reposet.Member, cfg.MaxToolCalls, log)

	transcriptHandler := handlers.NewTranscriptHandler(integrator, log)
	chatHandler := handlers.NewChatHandler(dispatcher, log)

	router := server.NewRouter(server.RouterConfig{
		TranscriptHandler: transcriptHandler,
		ChatHandler:       chatHandler,
		AllowOrigins:      cfg.AllowOrigins,
	})

	return &App{
		Log:        log,
		DB:         theDB,
		Router:     router,
		Cfg:        cfg,
		Repos:      reposet,
		Integrator: integrator,
		Dispatcher: dispatcher,
		Watcher:    watcher.New(cfg.WatchDir, integrator, log),
	}, nil
}

// Start launches the background transcript watcher.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go func() {
		if err := a.Watcher.Run(ctx); err != nil && ctx.Err() == nil {
			a.Log.Error("Watcher stopped", "error", err)
		}
	}()
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
