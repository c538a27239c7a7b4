package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/mkandawire/servipos-backend/internal/modules/auth"
	"github.com/mkandawire/servipos-backend/internal/modules/inventory"
	"github.com/mkandawire/servipos-backend/internal/modules/kitchen"
	"github.com/mkandawire/servipos-backend/internal/modules/loyalty"
	"github.com/mkandawire/servipos-backend/internal/modules/order"
	"github.com/mkandawire/servipos-backend/internal/modules/pricing"
	"github.com/mkandawire/servipos-backend/internal/modules/settlement"
	"github.com/mkandawire/servipos-backend/internal/modules/shift"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, using environment")
	}

	jwtKey := []byte(os.Getenv("JWT_SECRET"))
	if len(jwtKey) == 0 {
		log.Fatal("JWT_SECRET is required")
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	authRepo := auth.NewPostgresRepository(db)
	authService := auth.NewService(authRepo, jwtKey, 12*time.Hour)
	auth.NewHandler(authService).RegisterRoutes(router)

	// Everything below requires a staff token.
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(jwtKey))

		// ── Pricing ─────────────────────────────────────────
		pricingRepo := pricing.NewPostgresRepository(db)
		pricingService := pricing.NewService(pricingRepo)
		pricing.NewHandler(pricingService).RegisterRoutes(r)

		// ── Orders & Kitchen ────────────────────────────────
		orderRepo := order.NewPostgresRepository(db)
		orderService := order.NewService(orderRepo, pricingService)
		order.NewHandler(orderService).RegisterRoutes(r)

		kitchenRepo := kitchen.NewPostgresRepository(db)
		kitchenService := kitchen.NewService(kitchenRepo)
		kitchen.NewHandler(kitchenService).RegisterRoutes(r)

		// ── Loyalty & Inventory ─────────────────────────────
		loyaltyRepo := loyalty.NewPostgresRepository(db)
		loyaltyService := loyalty.NewService(loyaltyRepo)
		loyalty.NewHandler(loyaltyService).RegisterRoutes(r)

		inventoryRepo := inventory.NewPostgresRepository(db)
		inventoryService := inventory.NewService(inventoryRepo)
		inventory.NewHandler(inventoryService).RegisterRoutes(r)

		// ── Settlement ──────────────────────────────────────
		settlementRepo := settlement.NewPostgresRepository(db)
		settlementService := settlement.NewService(settlementRepo,
			loyalty.NewHook(loyaltyService), inventoryService)
		settlement.NewHandler(settlementService).RegisterRoutes(r)

		// ── Shift Ledger ────────────────────────────────────
		varianceThreshold, _ := strconv.ParseFloat(os.Getenv("SHIFT_VARIANCE_THRESHOLD"), 64)
		shiftRepo := shift.NewPostgresRepository(db)
		shiftService := shift.NewService(shiftRepo, varianceThreshold)
		shift.NewHandler(shiftService).RegisterRoutes(r)
	})

	// ── Start Server ─────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("ServiPOS API server starting on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}
