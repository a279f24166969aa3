package main // Entry point package

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-seat-booking/internal/booking"
	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/inventory"
	"github.com/iliyamo/event-seat-booking/internal/ledger"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
)

func main() {
	_ = godotenv.Load() // .env is optional; real environment variables win

	cfg := config.Load()

	var inv booking.Inventory
	var led booking.Ledger

	switch cfg.StoreDriver {
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			log.Fatalf("mysql open: %v", err)
		}
		seatRepo := repository.NewSeatRepo(db)
		ledgerRepo := repository.NewLedgerRepo(db, cfg.InFlightTimeout)
		inv, led = seatRepo, ledgerRepo

		// Janitor: evict completed ledger records past their TTL.
		go func() {
			for range time.Tick(cfg.EvictInterval) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := ledgerRepo.DeleteExpired(ctx, cfg.LedgerTTL)
				cancel()
				if err != nil {
					log.Printf("ledger janitor: %v", err)
				} else if n > 0 {
					log.Printf("ledger janitor: evicted %d records", n)
				}
			}
		}()

	case "memory":
		store := inventory.NewStore()
		if cfg.SeedEventID != "" {
			seats := make([]string, 0, cfg.SeedSeatCount)
			for i := 1; i <= cfg.SeedSeatCount; i++ {
				seats = append(seats, fmt.Sprintf("S%d", i))
			}
			store.CreateEvent(cfg.SeedEventID, seats)
			log.Printf("seeded event %s with %d seats", cfg.SeedEventID, len(seats))
		}
		memLedger := ledger.NewStore(cfg.InFlightTimeout, cfg.LedgerTTL)
		inv, led = store, memLedger

		go func() {
			for range time.Tick(cfg.EvictInterval) {
				if n := memLedger.Evict(); n > 0 {
					log.Printf("ledger janitor: evicted %d records", n)
				}
			}
		}()
	}

	engine := booking.NewEngine(inv, led)
	h := handler.NewBookingHandler(engine)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}
	rateLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	if cfg.ConsumerEnabled {
		go func() {
			if err := queue.StartBookingConsumer(); err != nil {
				log.Printf("booking consumer stopped: %v", err)
			}
		}()
	}

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterBooking(e, h, rateLimit, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s store=%s)", addr, cfg.Env, cfg.StoreDriver)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
