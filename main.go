package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"wachat-service/internal/config"
	"wachat-service/internal/db"
	"wachat-service/internal/delivery"
	"wachat-service/internal/handlers"
	"wachat-service/internal/ingest"
	"wachat-service/internal/middleware"
	"wachat-service/internal/observability"
	"wachat-service/internal/rabbitmq"
	"wachat-service/internal/repositories"
	"wachat-service/internal/telemetry"
	"wachat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.InitTracing(context.Background(), "wachat-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	if cfg.AMQPURL != "" {
		amqpPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("amqp: continuing without lifecycle events: %v", err)
		} else {
			observability.SetPublisher(amqpPublisher)
			defer amqpPublisher.Close()
		}
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()

	userRepo := repositories.NewUserRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	convRepo := repositories.NewConversationRepo(database)
	blockRepo := repositories.NewBlockRepo(database)
	payloadRepo := repositories.NewPayloadRepo(database)

	hub := ws.NewHub()
	tokens := middleware.NewTokenParser(cfg.JWTSecret)

	coordinator := delivery.NewCoordinator(userRepo, messageRepo, convRepo, blockRepo, hub, publisher, cfg)
	audit := telemetry.NewAuditEmitter("ingest_audit.chat")
	ingestor := ingest.NewIngestor(userRepo, messageRepo, convRepo, payloadRepo, audit, cfg)

	if cfg.PayloadsDir != "" {
		if _, err := os.Stat(cfg.PayloadsDir); err == nil {
			if _, err := ingestor.ProcessDirectory(context.Background(), cfg.PayloadsDir); err != nil {
				log.Printf("payload replay: %v", err)
			}
		}
	}

	handler := handlers.New(userRepo, messageRepo, convRepo, blockRepo, coordinator)
	webhookHandler := handlers.NewWebhookHandler(ingestor)
	wsHandler := ws.NewHandler(hub, tokens, userRepo, messageRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("wachat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", wsHandler.Handle)
	router.POST("/webhook", webhookHandler.Ingest)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.GET("/conversations", handler.ListConversations)
		api.GET("/conversations/archived", handler.ListArchivedConversations)
		api.GET("/conversations/:id/messages", handler.ListMessages)
		api.GET("/conversations/:id/export", handler.ExportConversation)
		api.POST("/conversations/:id/read", handler.MarkConversationRead)
		api.POST("/conversations/:id/archive", handler.SetArchived)
		api.POST("/conversations/:id/mute", handler.SetMuted)
		api.POST("/conversations/:id/clear", handler.ClearConversation)
		api.DELETE("/conversations/:id", handler.DeleteConversation)

		api.POST("/messages", handler.SendMessage)
		api.GET("/messages/search", handler.SearchMessages)
		api.GET("/messages/:id/info", handler.MessageInfo)
		api.PUT("/messages/:id/status", handler.UpdateMessageStatus)
		api.POST("/messages/:id/forward", handler.ForwardMessage)
		api.DELETE("/messages/:id", handler.DeleteMessage)

		api.POST("/blocks", handler.BlockUser)
		api.GET("/blocks", handler.ListBlocked)
		api.DELETE("/blocks/:waID", handler.UnblockUser)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("chat service listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
