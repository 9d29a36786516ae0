package protocal

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"flight-assistant/configs"
	httpAdapter "flight-assistant/internal/adapters/input/http"

	swagger "github.com/arsmn/fiber-swagger/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

// ServeHTTP func
func ServeHTTP(env string) error {
	configs.InitViper("./configs", env)
	cfg := configs.GetViper()
	setLogLevel(cfg.App.Debug)
	logrus.Info(cfg.App.Env)

	container, err := NewContainer(context.Background(), cfg)
	if err != nil {
		return err
	}
	app := NewApp(container, cfg)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		logrus.Info("Gracefull shut down ...")
		if err := app.Shutdown(); err != nil {
			logrus.Errorf("Error when shutdown server: %v", err)
		}
	}()

	logrus.Infof("Listening on port: %s", cfg.App.Port)
	err = app.Listen(":" + cfg.App.Port)
	container.Close()
	return err
}

// NewApp func - Builds the fiber app with every route mounted
func NewApp(container *Container, cfg *configs.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "flight-assistant",
		DisableStartupMessage: !cfg.App.Debug,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept,Authorization",
	}))

	hdl := httpAdapter.New(container.Turns, container.Health)
	app.Get("/swagger/*", swagger.HandlerDefault) // default

	health := app.Group("/health")
	{
		health.Get("/live", hdl.Liveness)
		health.Get("/ready", hdl.Readiness)
	}

	chat := app.Group("/api/v1/chat")
	{
		chat.Post("/message", hdl.ChatMessage)
		chat.Delete("/session/:id", hdl.ResetSession)
	}

	if container.LineWebhook != nil {
		lineWebhookHdl := httpAdapter.NewLineWebhookHandler(container.LineWebhook, cfg.Line.ChannelSecret)
		webhook := app.Group("/webhook")
		{
			webhook.Post("/line", lineWebhookHdl.HandleWebhook)
		}
	}
	return app
}

func setLogLevel(debug bool) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		logrus.SetLevel(logrus.DebugLevel)
		return
	}
	logrus.SetLevel(logrus.InfoLevel)
}
