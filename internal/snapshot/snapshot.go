// Package snapshot exports and imports the shop's orders, inventory and
// customer list as a single JSON document.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/erazemk/tiskarna/internal/model"
	"github.com/erazemk/tiskarna/internal/store"
)

// Version is the current document format.
const Version = 1

// ErrUnsupportedVersion is returned for documents from a newer format.
var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Snapshot is the exported state. Users never carry password hashes and
// are informational only: Import leaves accounts untouched.
type Snapshot struct {
	Version    int                   `json:"version"`
	ExportedAt time.Time             `json:"exported_at"`
	Orders     []model.Order         `json:"orders"`
	Inventory  []model.InventoryItem `json:"inventory"`
	Users      []model.User          `json:"users"`
}

// Export reads the current state from db.
func Export(ctx context.Context, db *sql.DB) (*Snapshot, error) {
	orders, err := store.ListOrders(ctx, db, store.OrderFilter{SortBy: "id"})
	if err != nil {
		return nil, err
	}
	items, err := store.ListInventory(ctx, db, false)
	if err != nil {
		return nil, err
	}
	users, err := store.ListUsers(ctx, db)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:    Version,
		ExportedAt: time.Now().UTC(),
		Orders:     orders,
		Inventory:  items,
		Users:      users,
	}
	if snap.Orders == nil {
		snap.Orders = []model.Order{}
	}
	if snap.Inventory == nil {
		snap.Inventory = []model.InventoryItem{}
	}
	if snap.Users == nil {
		snap.Users = []model.User{}
	}
	return snap, nil
}

// Validate checks that every record could be stored.
func (s *Snapshot) Validate() error {
	if s.Version > Version {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, s.Version)
	}

	names := make(map[string]bool, len(s.Inventory))
	for i, item := range s.Inventory {
		if item.Name == "" {
			return fmt.Errorf("inventory[%d]: name required", i)
		}
		if names[item.Name] {
			return fmt.Errorf("inventory[%d]: duplicate name %q", i, item.Name)
		}
		names[item.Name] = true
		if item.Quantity < 0 || item.Threshold < 0 {
			return fmt.Errorf("inventory[%d]: quantity and threshold must not be negative", i)
		}
	}

	for i, o := range s.Orders {
		switch {
		case !model.ValidStatus(o.Status):
			return fmt.Errorf("orders[%d]: invalid status %q", i, o.Status)
		case o.Quantity <= 0:
			return fmt.Errorf("orders[%d]: quantity must be positive", i)
		case !model.ValidPrintColor(o.PrintColor), !model.ValidPrintSides(o.PrintSides), !model.ValidOrientation(o.Orientation):
			return fmt.Errorf("orders[%d]: invalid print options", i)
		}
	}
	return nil
}

// Import replaces orders and inventory in db with the snapshot's.
func Import(ctx context.Context, db *sql.DB, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return store.ReplaceOrdersAndInventory(ctx, db, s.Orders, s.Inventory)
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Decode reads a snapshot document.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &s, nil
}

// WriteFile saves s to path, replacing any existing file atomically.
func WriteFile(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := Encode(f, s); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadFile loads a snapshot from path.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
