package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/tiskarna/internal/db"
	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/store"
)

// defaultInventory is the stock a new shop starts with.
var defaultInventory = []struct {
	name      string
	sku       string
	unit      string
	quantity  int
	threshold int
}{
	{"A4 Glossy Paper", "P-GL-A4", "sheets", 2400, 500},
	{"A4 Matte Paper", "P-MT-A4", "sheets", 150, 300},
	{"Cardstock Premium", "P-CS-01", "sheets", 850, 200},
	{"Cyan Ink Cartridge", "INK-C-XL", "units", 12, 5},
	{"Magenta Ink Cartridge", "INK-M-XL", "units", 4, 5},
	{"Binding Glue", "BND-GLU", "bottles", 30, 10},
}

// initDatabase creates a new database with the admin account and the
// default inventory. It returns the admin's generated password.
func initDatabase(path, adminEmail string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.EnsureSchema(database); err != nil {
		return fail(fmt.Errorf("ensuring schema: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail(fmt.Errorf("hashing password: %w", err))
	}

	ctx := context.Background()
	if _, err := store.CreateUser(ctx, database, "Admin", adminEmail, string(hash), model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	if err := seedInventory(ctx, database); err != nil {
		return fail(err)
	}

	if err := store.SetSetting(ctx, database, store.SettingInitializedAt, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fail(err)
	}

	return database, password, nil
}

// seedInventory adds the default stock items.
func seedInventory(ctx context.Context, database *sql.DB) error {
	for _, item := range defaultInventory {
		if _, err := store.CreateInventoryItem(ctx, database, item.name, item.sku, item.unit, item.quantity, item.threshold, nil); err != nil {
			return fmt.Errorf("seeding %s: %w", item.name, err)
		}
	}
	return nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Printf("Inventory seeded with %d items.\n", len(defaultInventory))
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
