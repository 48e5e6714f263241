package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/tablerhq/tabler/internal/config"
	"github.com/tablerhq/tabler/internal/database"
	"github.com/tablerhq/tabler/internal/handler"
	"github.com/tablerhq/tabler/internal/middleware"
	"github.com/tablerhq/tabler/internal/queue"
	"github.com/tablerhq/tabler/internal/repository"
	"github.com/tablerhq/tabler/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	layouts := repository.NewLayoutRepo(db)
	tables := repository.NewTableRepo(db)
	sections := repository.NewSectionRepo(db)
	entries := repository.NewServiceEntryRepo(db)

	browse := handler.NewBrowseHandler(layouts, tables, sections)
	assign := handler.NewAssignmentHandler(layouts, tables, sections, entries)
	svc := handler.NewServiceHandler(tables, sections, entries)
	hist := handler.NewHistoryHandler(tables, sections, entries)

	e := echo.New()

	// Redis-backed rate limiting runs globally; the response cache is handed
	// to the router so it runs inside the authenticated group, after JWT
	// validation.  Both degrade to a pass-through when Redis is unreachable
	// or disabled.
	rdb := config.NewRedisClient()
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterSeating(e, cfg.JWTSecret,
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		browse, assign, svc, hist)

	// External floor updates arrive over the broker; the consumer reconnects
	// on its own and never returns.
	go queue.StartTableUpdatesConsumer(tables, sections)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
