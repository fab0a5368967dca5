package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"proconnect/internal/auth"
	"proconnect/internal/chat"
	"proconnect/internal/config"
	"proconnect/internal/db"
	"proconnect/internal/handlers"
	"proconnect/internal/middleware"
	"proconnect/internal/notifications"
	"proconnect/internal/observability"
	"proconnect/internal/rabbitmq"
	"proconnect/internal/repositories"
	"proconnect/internal/telemetry"
	"proconnect/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), "proconnect-realtime", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer shutdownTracer(context.Background())

	eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		log.Printf("event bus disabled: %v", err)
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	log.Printf("audit publisher mode=%s", rabbitmq.PublisherMode(auditPublisher))
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit.realtime", "proconnect-realtime", cfg.Environment)

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	hub := ws.NewHub()
	validator := auth.NewValidator(cfg.JWTSecret, userRepo)

	chatService := chat.NewService(chatRepo, messageRepo, userRepo, hub)
	notificationService := notifications.NewService(notificationRepo, userRepo, hub)

	chatHandler := handlers.NewChatHandler(chatService, audit)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	gateway := ws.NewGateway(hub, chatService, userRepo, validator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("proconnect-realtime"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(validator)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)
	router.GET("/chats/user/:user_id", authMiddleware, chatHandler.StartChat)
	router.GET("/chats/unread/count", authMiddleware, chatHandler.UnreadCount)
	router.GET("/chats/:chat_id/messages", authMiddleware, chatHandler.GetChatMessages)
	router.POST("/chats/:chat_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.POST("/chats/:chat_id/read", authMiddleware, chatHandler.MarkChatRead)
	router.DELETE("/chats/messages/:message_id", authMiddleware, chatHandler.DeleteMessage)

	router.GET("/notifications", authMiddleware, notificationHandler.List)
	router.GET("/notifications/unread/count", authMiddleware, notificationHandler.UnreadCount)
	router.POST("/notifications/read-all", authMiddleware, notificationHandler.MarkAllRead)
	router.POST("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkRead)
	router.DELETE("/notifications/:notification_id", authMiddleware, notificationHandler.Delete)
	router.POST("/profile/:user_id/visit", authMiddleware, notificationHandler.RecordProfileVisit)

	router.GET("/ws", gateway.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugEndpoints)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
