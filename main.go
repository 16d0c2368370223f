package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"

	"go-ask/backend/commands"
	"go-ask/backend/config"
	"go-ask/backend/database"
	"go-ask/backend/handlers"
	"go-ask/backend/identity"
	"go-ask/backend/middleware"
	"go-ask/backend/websocket"
)

func main() {
	cfg := config.LoadConfig()

	// 儲存層:正式環境用 Mongo + Redis,本地開發可以用純記憶體模式
	var store database.Store
	if cfg.MongoDBURI == "memory" {
		log.Println("Using in-memory store (no MongoDB/Redis).")
		store = database.NewMemoryStore()
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		mongoStore, err := database.ConnectMongoStore(cfg.MongoDBURI, cfg.DBName, rdb)
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoStore.Disconnect()
		store = mongoStore
	}

	hub := websocket.NewHub(store, cfg.JWTSecret)
	go hub.Run()

	googleAuth := identity.NewGoogleAuthenticator(cfg)
	cmds := commands.New(store)
	authHandler := handlers.NewAuthHandler(googleAuth, cfg)
	roomHandler := handlers.NewRoomHandler(cmds)

	router := mux.NewRouter()

	// 健康檢查路由
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Backend is running!")
	}).Methods("GET")

	// Google 登入流程
	router.HandleFunc("/auth/google/login", authHandler.GoogleLogin).Methods("GET")
	router.HandleFunc("/auth/google/callback", authHandler.GoogleCallback).Methods("GET")

	// 查房間代碼跟即時畫面不需要登入,訪客也能旁聽
	router.HandleFunc("/rooms/{id}", roomHandler.JoinRoom).Methods("GET")
	router.HandleFunc("/ws", hub.HandleConnections)

	// 需要登入的寫入 API
	api := router.PathPrefix("/").Subrouter()
	api.Use(middleware.JWTMiddleware(cfg.JWTSecret))
	api.HandleFunc("/rooms", roomHandler.CreateRoom).Methods("POST")
	api.HandleFunc("/rooms/{id}/questions", roomHandler.PostQuestion).Methods("POST")
	api.HandleFunc("/rooms/{id}/questions/{questionId}/like", roomHandler.ToggleLike).Methods("POST")
	api.HandleFunc("/rooms/{id}/questions/{questionId}", roomHandler.DeleteQuestion).Methods("DELETE")
	api.HandleFunc("/rooms/{id}/questions/{questionId}/highlight", roomHandler.HighlightQuestion).Methods("PATCH")
	api.HandleFunc("/rooms/{id}/questions/{questionId}/answer", roomHandler.MarkAnswered).Methods("PATCH")
	api.HandleFunc("/rooms/{id}/end", roomHandler.EndRoom).Methods("POST")

	// 設置 CORS 中介軟體
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	handler := c.Handler(router)

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器,就記錄錯誤並結束程式
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	//當按下 Ctrl+C,程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal %s, shutting down server...", sig)

	//最多等30秒關閉,避免資料損壞,請求中斷
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// 關閉所有 WebSocket 客戶端(連帶釋放它們的訂閱)
	hub.Stop()

	log.Println("Server exited gracefully.")
}
