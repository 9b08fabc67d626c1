// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"tribunal/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures the seeder.
type Options struct {
	NumUsers    int
	ShouldClean bool
}

// Seed populates the database with demo users for the moderation console.
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())

	log.Printf("Starting database seeding with %d users...", opts.NumUsers)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	password, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	for i := 0; i < opts.NumUsers; i++ {
		user := models.User{
			Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
			Email:    gofakeit.Email(),
			Password: string(password),
			Bio:      gofakeit.Sentence(10),
			Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
			Role:     models.RoleUser,
		}

		// A slice of restricted and moderator accounts makes the admin
		// dashboard counts non-trivial out of the box.
		switch {
		case i%13 == 0:
			user.Role = models.RoleModerator
		case i%7 == 0:
			until := time.Now().AddDate(0, 0, 1+r.Intn(30))
			user.IsRestricted = true
			user.RestrictedUntil = &until
		}

		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create seed user: %w", err)
		}
	}

	log.Printf("Seeding complete: %d users created", opts.NumUsers)
	return nil
}

// EnsureAdmin creates the admin account if it does not exist yet.
func EnsureAdmin(db *gorm.DB, email, password string) (*models.User, error) {
	var existing models.User
	err := db.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash admin password: %w", err)
	}

	admin := models.User{
		Username: "admin",
		Email:    email,
		Password: string(hashed),
		Role:     models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	log.Printf("Created admin account %s", email)
	return &admin, nil
}

func clearData(db *gorm.DB) error {
	if err := db.Exec("DELETE FROM moderation_logs").Error; err != nil {
		return err
	}
	return db.Exec("DELETE FROM users").Error
}
