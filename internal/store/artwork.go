package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Artwork is the print file attached to an order.
type Artwork struct {
	OrderID     int64
	StorageKey  string
	Data        []byte
	MIME        string
	Preview     []byte
	PreviewMIME string
}

// SetOrderArtwork stores or replaces an order's print file and its preview.
func SetOrderArtwork(ctx context.Context, db *sql.DB, a Artwork) error {
	var previewMIME any
	if a.PreviewMIME != "" {
		previewMIME = a.PreviewMIME
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO order_artwork (order_id, storage_key, data, mime, preview, preview_mime)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (order_id) DO UPDATE SET
		     storage_key = excluded.storage_key, data = excluded.data, mime = excluded.mime,
		     preview = excluded.preview, preview_mime = excluded.preview_mime,
		     uploaded_at = CURRENT_TIMESTAMP`,
		a.OrderID, a.StorageKey, a.Data, a.MIME, a.Preview, previewMIME,
	)
	if err != nil {
		return fmt.Errorf("setting order artwork: %w", err)
	}
	return nil
}

// GetOrderArtwork returns an order's print file, or nil if none was uploaded.
func GetOrderArtwork(ctx context.Context, db *sql.DB, orderID int64) (*Artwork, error) {
	a := &Artwork{OrderID: orderID}
	var previewMIME sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT storage_key, data, mime, preview, preview_mime FROM order_artwork WHERE order_id = ?`, orderID,
	).Scan(&a.StorageKey, &a.Data, &a.MIME, &a.Preview, &previewMIME)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting order artwork: %w", err)
	}
	a.PreviewMIME = previewMIME.String
	return a, nil
}
