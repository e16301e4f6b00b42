package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/RobertWHurst/navaros"
	"github.com/RobertWHurst/websockify"
	jsonMiddleware "github.com/RobertWHurst/websockify/middleware/json"
	"github.com/RobertWHurst/websockify/navarosws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := cfg.newLogger()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	server, err := newServer(cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Fatal("failed to set up server", zap.Error(err))
	}

	logger.Info("starting server", zap.String("addr", cfg.Addr), zap.Bool("tls", cfg.TLSEnabled()))
	if cfg.TLSEnabled() {
		err = server.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// newServer builds the HTTP server with the App attached and the metrics of
// registry exposed on cfg.MetricsPath.
func newServer(cfg *Config, logger *zap.Logger, registry *prometheus.Registry) (*http.Server, error) {
	metrics, err := websockify.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	app := websockify.Websockify(newRouter(logger), websockify.Options{
		OriginPatterns:     cfg.Origins,
		CloseOnErrorStatus: true,
		Logger:             logger,
		Metrics:            metrics,
	})
	app.Use(jsonMiddleware.Middleware())

	mux := http.NewServeMux()
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", app)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}
	app.Attach(server)

	return server, nil
}

func newRouter(logger *zap.Logger) *navaros.Router {
	router := navaros.NewRouter()

	router.Get("/http", navarosws.Reject(), func(ctx *navaros.Context) {
		ctx.Body = "Hello World"
	})

	router.Get("/websocket", navarosws.Require(), func(ctx *navaros.Context) {
		socket, _ := navarosws.CtxSocket(ctx)
		_ = socket.SendText("Hello World")
		socket.OnMessage(func(msg *websockify.Message) {
			logger.Info("message received", zap.String("socketID", socket.ID()), zap.String("text", msg.Text()))
			_ = msg.Reply(msg.Data)
		})
	})

	// Streams the time once a second until the client sends "stop".
	router.Get("/time", navarosws.Require(), func(ctx *navaros.Context) {
		socket, _ := navarosws.CtxSocket(ctx)
		state := &TimeState{sendTime: true}
		socket.Set("timeState", state)

		socket.OnMessage(func(msg *websockify.Message) {
			if msg.Text() == "stop" {
				state.Stop()
			}
		})

		go sendTime(socket, state, logger)
	})

	router.Use(func(ctx *navaros.Context) {
		ctx.Status = http.StatusNotFound
		ctx.Body = "ERROR: " + ctx.Request().URL.String() + " not implemented"
	})

	return router
}

func sendTime(socket *websockify.Socket, state *TimeState, logger *zap.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for state.ShouldSendTime() {
		if err := socket.SendValue(jsonMiddleware.M{"time": time.Now().Unix()}); err != nil {
			if !errors.Is(err, websockify.ErrSocketClosed) {
				logger.Warn("error sending time", zap.Error(err))
			}
			return
		}
		select {
		case <-ticker.C:
		case <-socket.Done():
			return
		}
	}
}

type TimeState struct {
	mx       sync.Mutex
	sendTime bool
}

func (ts *TimeState) ShouldSendTime() bool {
	ts.mx.Lock()
	defer ts.mx.Unlock()
	return ts.sendTime
}

func (ts *TimeState) Stop() {
	ts.mx.Lock()
	defer ts.mx.Unlock()
	ts.sendTime = false
}
