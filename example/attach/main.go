// Attaches websockify to a server built around a gin engine rather than
// using the App's listen helpers.
package main

import (
	"errors"
	"net/http"

	"github.com/RobertWHurst/websockify"
	"github.com/RobertWHurst/websockify/ginws"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	server := newServer(":3000", logger)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newServer(addr string, logger *zap.Logger) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/*path", ginws.Require(), func(c *gin.Context) {
		socket, _ := ginws.Socket(c)
		_ = socket.SendText("Hello World")
		socket.OnMessage(func(msg *websockify.Message) {
			logger.Info("message received", zap.String("path", socket.Path()), zap.String("text", msg.Text()))
		})
	})

	server := &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	websockify.Websockify(engine, websockify.Options{Logger: logger}).Attach(server)

	return server
}
