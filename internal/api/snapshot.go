package api

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/tiskarna/internal/snapshot"
)

// maxSnapshotSize caps uploaded snapshot documents.
const maxSnapshotSize = 32 << 20

// SnapshotHandler exports and imports the shop's data.
type SnapshotHandler struct {
	DB *sql.DB
}

// Export handles GET /api/admin/snapshot.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	snap, err := snapshot.Export(r.Context(), h.DB)
	if err != nil {
		slog.Error("exporting snapshot", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="tiskarna-%s.json"`, time.Now().Format("20060102-150405")))
	if err := snapshot.Encode(w, snap); err != nil {
		slog.Error("encoding snapshot", "error", err)
	}
}

// Import handles POST /api/admin/snapshot.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	snap, err := snapshot.Decode(http.MaxBytesReader(w, r.Body, maxSnapshotSize))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid snapshot document")
		return
	}

	if err := snap.Validate(); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, snapshot.ErrUnsupportedVersion) {
			status = http.StatusUnprocessableEntity
		}
		jsonError(w, status, err.Error())
		return
	}

	if err := snapshot.Import(r.Context(), h.DB, snap); err != nil {
		slog.Error("importing snapshot", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to import")
		return
	}

	slog.Warn("snapshot imported, orders and inventory replaced",
		"orders", len(snap.Orders), "items", len(snap.Inventory), "user", GetClaims(r.Context()).Email)
	jsonResponse(w, http.StatusOK, map[string]int{
		"orders":    len(snap.Orders),
		"inventory": len(snap.Inventory),
	})
}
