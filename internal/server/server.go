package server

import (
	"github.com/akshu187/smartsafe/internal/auth"
	"github.com/akshu187/smartsafe/internal/config"
	"github.com/akshu187/smartsafe/internal/contact"
	"github.com/akshu187/smartsafe/internal/engine/poi"
	"github.com/akshu187/smartsafe/internal/sos"
	"github.com/akshu187/smartsafe/internal/stream"
	"github.com/akshu187/smartsafe/internal/telemetry"
	"github.com/akshu187/smartsafe/internal/trip"
	"github.com/akshu187/smartsafe/internal/weather"
	"github.com/akshu187/smartsafe/internal/zone"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Hub    *stream.Hub
	Logger *zap.Logger
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Hub:    stream.NewHub(redisClient, log.Named("hub")),
		Logger: log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)
	var poiQuerier poi.Querier
	if s.Cfg.OverpassURL != "" {
		poiQuerier = poi.NewOverpassClient(s.Cfg.OverpassURL)
	}

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	trip.RegisterRoutes(s.App.Group("/trips"), trip.NewService(s.DB), jwtMiddleware)
	zone.RegisterRoutes(s.App.Group("/zones"), zone.NewService(s.DB, s.Redis, s.Logger.Named("zone")))
	weather.RegisterRoutes(s.App.Group("/weather"), weather.NewService(s.Cfg.WeatherURL, s.Redis, s.Logger.Named("weather")))
	contact.RegisterRoutes(s.App.Group("/contacts"), contact.NewService(s.DB), jwtMiddleware)
	sos.RegisterRoutes(s.App.Group("/sos"), sos.NewService(s.DB, s.Hub, s.Logger.Named("sos")), jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Hub)
	telemetry.RegisterRoutes(s.App.Group("/telemetry"), s.Hub, poiQuerier, s.Cfg.SpeedLimitKmh, s.Logger.Named("telemetry"))
}
