package main

import (
	"time"

	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/config"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/logger"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/models"
	"github.com/LUELIS/CRM-JULIEN-RONOT-V2-sub003/internal/routes"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log := logger.New()

	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, relying on system env")
	}

	db := config.InitDB()

	db.AutoMigrate(
		&models.Account{},
		&models.BankTransaction{},
		&models.Invoice{},
		&models.Allocation{},
		&models.AllocationLog{},
		&models.SepaExport{},
	)

	creditor := config.LoadCreditorProfile()
	if creditor.IBAN == "" {
		log.Warn().Msg("creditor profile incomplete, SEPA file generation will be rejected")
	}

	r := gin.Default()
	// CORS config
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Tenant-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, creditor, log)

	if err := r.Run(config.HTTPAddr()); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
