package main

import (
	"log"
	"net/http"

	"github.com/shopmate/backend/internal/config"
	"github.com/shopmate/backend/internal/database"
	"github.com/shopmate/backend/internal/handlers"
	"github.com/shopmate/backend/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	svcs := handlers.Services{
		Payments: services.NewStripePayments(cfg.Payment),
		Images:   services.NewCloudinaryImages(cfg.Cloudinary),
		Mailer:   services.NewSMTPMailer(cfg.SMTP),
		Ranker:   services.NewGeminiRanker(cfg.AI),
	}

	router := handlers.NewRouter(db, cfg, svcs)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
