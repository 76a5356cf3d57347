package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stallpass/api/internal/config"
	"github.com/stallpass/api/internal/database"
	"github.com/stallpass/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// CLI flags
	email := flag.String("email", "", "Admin email address")
	phone := flag.String("phone", "", "Admin phone number")
	password := flag.String("password", "", "Admin password")
	name := flag.String("name", "", "Admin full name")
	demo := flag.Bool("demo", false, "Also create a demo stall owner, an approved stall and a small menu")
	flag.Parse()

	// Fall back to environment variables, then defaults
	*email = firstNonEmpty(*email, os.Getenv("SEED_EMAIL"), "admin@stallpass.local")
	*phone = firstNonEmpty(*phone, os.Getenv("SEED_PHONE"), "9000000000")
	*name = firstNonEmpty(*name, os.Getenv("SEED_NAME"), "Festival Admin")
	*password = firstNonEmpty(*password, os.Getenv("SEED_PASSWORD"))
	if *password == "" {
		*password = "password123"
		log.Println("WARNING: Using default password 'password123'. Change immediately in production!")
	}

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Seed in a transaction so a partial demo never lands
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)

	adminID, err := seedUser(ctx, q, database.CreateUserParams{
		Name:  *name,
		Email: textOf(*email),
		Phone: *phone,
		Role:  enum.UserRoleAdmin,
	}, *password)
	if err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	if *demo {
		if err := seedDemoStall(ctx, q, *password); err != nil {
			log.Fatalf("Failed to seed demo stall: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed completed successfully")
	log.Printf("Admin ID: %s", adminID)
}

// seedUser creates the user unless one with the same email already exists.
func seedUser(ctx context.Context, q *database.Queries, params database.CreateUserParams, password string) (uuid.UUID, error) {
	existing, err := q.GetUserByEmail(ctx, params.Email.String)
	if err == nil {
		log.Printf("User '%s' already exists (ID: %s), skipping", params.Email.String, existing.ID)
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, fmt.Errorf("hash password: %w", err)
	}
	params.HashedPassword = string(hashed)

	user, err := q.CreateUser(ctx, params)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert user: %w", err)
	}
	log.Printf("Created %s user '%s' (ID: %s)", params.Role, params.Email.String, user.ID)
	return user.ID, nil
}

// seedDemoStall creates an owner with an approved, open stall and a menu.
func seedDemoStall(ctx context.Context, q *database.Queries, password string) error {
	ownerID, err := seedUser(ctx, q, database.CreateUserParams{
		Name:  "Demo Stall Owner",
		Email: textOf("owner@stallpass.local"),
		Phone: "9000000001",
		Role:  enum.UserRoleStallOwner,
	}, password)
	if err != nil {
		return err
	}

	if existing, err := q.GetStallByOwner(ctx, ownerID); err == nil {
		log.Printf("Stall '%s' already exists (ID: %s), skipping", existing.Name, existing.ID)
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("check stall: %w", err)
	}

	stall, err := q.CreateStall(ctx, database.CreateStallParams{
		OwnerID:           ownerID,
		Name:              "Chaat Corner",
		Description:       textOf("Street food classics"),
		Location:          textOf("Main quad"),
		IsApproved:        true,
		PreBookingEnabled: true,
	})
	if err != nil {
		return fmt.Errorf("insert stall: %w", err)
	}
	log.Printf("Created stall '%s' (ID: %s)", stall.Name, stall.ID)

	menu := []struct {
		name, price, category string
	}{
		{"Pani Puri", "40", "Chaat"},
		{"Bhel Puri", "50", "Chaat"},
		{"Masala Chai", "20", "Drinks"},
	}
	for _, m := range menu {
		params := database.CreateFoodItemParams{
			StallID:     stall.ID,
			Name:        m.name,
			Category:    textOf(m.category),
			IsAvailable: true,
			IsVeg:       true,
		}
		if err := params.Price.Scan(m.price); err != nil {
			return fmt.Errorf("price %s: %w", m.price, err)
		}
		if _, err := q.CreateFoodItem(ctx, params); err != nil {
			return fmt.Errorf("insert food item %s: %w", m.name, err)
		}
	}
	log.Printf("Created %d menu items", len(menu))
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func textOf(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
