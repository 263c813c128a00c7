package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anthropics/feishu-promo-bot/internal/biz/domain"
)

// WebServer serves the operator status page next to the bot process.
type WebServer struct {
	state    *domain.BotState
	registry *domain.Registry
	queue    *domain.Queue

	startedAt time.Time
	srv       *http.Server
}

// NewWebServer creates the status server listening on addr.
func NewWebServer(addr string, state *domain.BotState, registry *domain.Registry, queue *domain.Queue) *WebServer {
	w := &WebServer{
		state:     state,
		registry:  registry,
		queue:     queue,
		startedAt: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/", w.handleIndex)
	router.GET("/healthz", w.handleHealth)

	w.srv = &http.Server{
		Addr:    addr,
		Handler: router,
	}
	return w
}

// Router returns the underlying handler (used in tests).
func (w *WebServer) Router() http.Handler {
	return w.srv.Handler
}

// Start starts serving in the background.
func (w *WebServer) Start() {
	go func() {
		fmt.Printf("[Web] Status page on http://localhost%s\n", w.srv.Addr)
		if err := w.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("[Web] Server error: %v\n", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (w *WebServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = w.srv.Shutdown(ctx)
}

func (w *WebServer) handleIndex(c *gin.Context) {
	name := html.EscapeString(w.state.DisplayName())
	page := fmt.Sprintf(`<html>
	<head>
		<title>%s - Status</title>
		<style>
			body { font-family: Arial, sans-serif; text-align: center; margin-top: 50px; }
			h1 { color: #333; }
			table { margin: 20px auto; border-collapse: collapse; }
			td { padding: 6px 16px; border: 1px solid #ddd; }
		</style>
	</head>
	<body>
		<h1>%s is running</h1>
		<table>
			<tr><td>Saved recipients</td><td>%d</td></tr>
			<tr><td>Pending scheduled messages</td><td>%d</td></tr>
			<tr><td>Chatbot mode</td><td>%v</td></tr>
			<tr><td>Uptime</td><td>%s</td></tr>
		</table>
	</body>
</html>`,
		name, name, w.registry.Len(), w.queue.Len(), w.state.ChatbotMode(),
		time.Since(w.startedAt).Round(time.Second))

	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (w *WebServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"recipients": w.registry.Len(),
		"queued":     w.queue.Len(),
		"uptime_sec": int(time.Since(w.startedAt).Seconds()),
	})
}
