package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"github.com/campustransit/vehicle-booking-backend/internal/config"
	"github.com/campustransit/vehicle-booking-backend/internal/database"
	"github.com/campustransit/vehicle-booking-backend/internal/models"
	"github.com/campustransit/vehicle-booking-backend/pkg/validator"
)

// seed-admin creates the first active admin account so the portal can be
// bootstrapped before any admin exists to approve registrations.
func main() {
	name := flag.String("name", "Administrator", "admin display name")
	email := flag.String("email", "", "admin email (campus domain)")
	password := flag.String("password", "", "admin password (min 8 characters)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	if *email == "" || *password == "" {
		logger.Fatal("Both -email and -password are required")
	}
	if len(*password) < 8 {
		logger.Fatal("Password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	v := validator.NewBookingValidator(cfg.Security.EmailDomain)
	validEmail, err := v.ValidateEmail(*email)
	if err != nil {
		logger.Fatalf("Invalid email: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), cfg.Security.BcryptCost)
	if err != nil {
		logger.Fatalf("Failed to hash password: %v", err)
	}

	users := database.NewUserRepository(db)
	admin := &models.User{
		Name:         *name,
		Email:        validEmail,
		PasswordHash: models.String(string(hash)),
		Role:         models.RoleAdmin,
		Status:       models.UserStatusActive,
	}

	if err := users.Create(admin); err != nil {
		logger.Fatalf("Failed to create admin: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"user_id": admin.ID,
		"email":   validEmail,
	}).Info("Admin account created")
}
