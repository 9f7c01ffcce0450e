package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"chatroom-service/internal/auth"
	"chatroom-service/internal/chatlog"
	"chatroom-service/internal/db"
	"chatroom-service/internal/handlers"
	"chatroom-service/internal/middleware"
	"chatroom-service/internal/observability"
	"chatroom-service/internal/rabbitmq"
	"chatroom-service/internal/repositories"
	"chatroom-service/internal/rooms"
	"chatroom-service/internal/telemetry"
	"chatroom-service/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using process environment")
	}

	ctx := context.Background()
	shutdownTracing := observability.InitTracing(ctx, "chatroom-service")
	defer shutdownTracing(ctx)

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	amqpURL := os.Getenv("AMQP_URL")
	exchange := getEnv("AMQP_EXCHANGE", "chatroom_events")
	if publisher, err := observability.NewAMQPPublisher(amqpURL, exchange); err != nil {
		log.Printf("ws event publishing disabled: %v", err)
	} else {
		observability.SetPublisher(publisher)
		defer publisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "audit_logs"))
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit_logs.chatroom", "chatroom-service", getEnv("ENVIRONMENT", "dev"))

	jwtManager := auth.NewJWTManager(getEnv("JWT_SECRET", "dev-secret-change-me"), 24*time.Hour)

	userRepo := repositories.NewUserRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	invitationRepo := repositories.NewInvitationRepo(database)

	access := rooms.NewAccessChecker(invitationRepo)
	hub := ws.NewHub()
	transcript := chatlog.New(getEnv("CHATLOG_DIR", "chatroom_logs"))
	defer transcript.Close()

	gateway := ws.NewGateway(hub, roomRepo, messageRepo, access, transcript)

	authHandler := handlers.NewAuthHandler(userRepo, jwtManager, auditEmitter)
	roomHandler := handlers.NewRoomHandler(roomRepo, messageRepo, invitationRepo, userRepo, access)
	invitationHandler := handlers.NewInvitationHandler(invitationRepo, roomRepo, userRepo, auditEmitter)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("chatroom-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(jwtManager)

	router.POST("/auth/signup", authHandler.Signup)
	router.POST("/auth/login", authHandler.Login)

	router.GET("/rooms", authMiddleware, roomHandler.ListRooms)
	router.POST("/rooms", authMiddleware, roomHandler.CreateRoom)
	router.POST("/rooms/:room_id/join", authMiddleware, roomHandler.JoinRoom)
	router.GET("/rooms/:room_id/messages", authMiddleware, roomHandler.GetRoomMessages)

	router.POST("/invitations", authMiddleware, invitationHandler.Invite)
	router.GET("/invitations", authMiddleware, invitationHandler.ListInvitations)
	router.POST("/invitations/:invitation_id/respond", authMiddleware, invitationHandler.Respond)

	router.GET("/ws", authMiddleware, gateway.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, hub, os.Getenv("DEBUG_ROUTES") == "true")

	port := getEnv("PORT", "8080")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
