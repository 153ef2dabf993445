package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vntrieu/werewolf/internal/httpapi"
)

func main() {
	_ = godotenv.Load()

	addr := getenv("WEREWOLF_HTTP_ADDR", ":8080")

	tokenSecret := []byte(os.Getenv("WEBSOCKET_TOKEN_SECRET"))
	if len(tokenSecret) == 0 {
		tokenSecret = []byte("dev-secret-change-in-production")
	}

	var origins []string
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	router := httpapi.NewRouter(httpapi.Config{
		TokenSecret:    tokenSecret,
		RateLimiter:    httpapi.DefaultRateLimiter(),
		SpectatorKey:   os.Getenv("SPECTATOR_KEY"),
		AllowedOrigins: origins,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("werewolf backend listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
