package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"foundlink/internal/auth"
	"foundlink/internal/chat"
	"foundlink/internal/config"
	"foundlink/internal/db"
	"foundlink/internal/handlers"
	"foundlink/internal/matching"
	"foundlink/internal/middleware"
	"foundlink/internal/notifications"
	"foundlink/internal/observability"
	"foundlink/internal/rabbitmq"
	"foundlink/internal/repositories"
	"foundlink/internal/telemetry"
	"foundlink/internal/ws"
)

const serviceName = "foundlink"

func main() {
	cfg := config.Load()
	log := newLogger(cfg.Environment)
	defer log.Sync()

	database, err := db.Connect(cfg.DBDSN, log)
	if err != nil {
		log.Fatal("failed to connect to db", zap.Error(err))
	}

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, serviceName, cfg.Environment)
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Info("event publisher ready", zap.String("mode", rabbitmq.PublisherMode(publisher)))

	userRepo := repositories.NewUserRepo(database)
	matchRepo := repositories.NewMatchRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	registrar := auth.NewRegistrar(userRepo, log)

	hub := ws.NewHub(log)
	engine := notifications.NewEngine(notificationRepo, hub, log)
	manager := chat.NewManager(chatRepo, messageRepo, matchRepo, userRepo, engine, hub, log)
	pipeline := matching.NewPipeline(matchRepo, engine, manager, cfg.ChatScoreThreshold, log)

	consumer := matching.StartConsumer(cfg.AMQPURL, cfg.AMQPExchange, cfg.MatchQueue, pipeline, log)
	defer consumer.Close()

	gateway := ws.NewGateway(hub, verifier, registrar, manager, log)
	emitter := telemetry.NewAuditEmitter(publisher, "audit."+serviceName, serviceName, cfg.Environment, log)

	chatHandler := handlers.NewChatHandler(manager)
	notificationHandler := handlers.NewNotificationHandler(engine)
	matchHandler := handlers.NewMatchHandler(pipeline, cfg.ServiceToken)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier, registrar)
	api := router.Group("/api", authMiddleware)

	api.POST("/chats/create", chatHandler.CreateChat)
	api.GET("/chats", chatHandler.ListChats)
	api.GET("/chats/:chat_id", chatHandler.GetChat)
	api.POST("/chats/:chat_id/messages", chatHandler.PostMessage)
	api.GET("/chats/:chat_id/messages", chatHandler.ListMessages)
	api.PATCH("/chats/:chat_id/messages/read", chatHandler.MarkRead)

	api.GET("/notifications", notificationHandler.List)
	api.PATCH("/notifications/read-all", notificationHandler.MarkAllRead)
	api.PATCH("/notifications/:id/read", notificationHandler.MarkRead)
	api.DELETE("/notifications/delete-all", notificationHandler.DeleteAll)
	api.DELETE("/notifications/:id", notificationHandler.Delete)

	router.POST("/internal/matches", matchHandler.Ingest)
	router.GET("/ws", gateway.Handle)

	handlers.RegisterDebugRoutes(router, emitter, cfg.DebugRoutes)

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newLogger(environment string) *zap.Logger {
	if environment == "development" {
		log, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	return log
}
