package api

import (
	"context"
	"net/http"
	"time"

	"github.com/newthinker/tsdash/internal/api/response"
	"github.com/newthinker/tsdash/internal/storage/archive"
	"go.uber.org/zap"
)

// Reloader re-reads the dataset and invalidates derived data.
type Reloader interface {
	Reload(ctx context.Context) error
}

// DatasetInfo describes the currently loaded dataset object.
type DatasetInfo interface {
	Info() (archive.ObjectInfo, time.Time)
}

// ReloadResult is returned after a successful reload.
type ReloadResult struct {
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	ModTime  time.Time `json:"mod_time"`
	LoadedAt time.Time `json:"loaded_at"`
}

// DatasetHandler handles dataset maintenance requests.
type DatasetHandler struct {
	reloader Reloader
	info     DatasetInfo
	logger   *zap.Logger
}

// NewDatasetHandler creates a new dataset handler. info may be nil.
func NewDatasetHandler(reloader Reloader, info DatasetInfo, logger *zap.Logger) *DatasetHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DatasetHandler{reloader: reloader, info: info, logger: logger}
}

// Reload handles POST /api/v1/dataset/reload
func (h *DatasetHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.Reload(r.Context()); err != nil {
		h.logger.Error("dataset reload failed", zap.Error(err))
		response.Fail(w, err)
		return
	}

	var result ReloadResult
	if h.info != nil {
		obj, loadedAt := h.info.Info()
		result = ReloadResult{
			Path:     obj.Path,
			Size:     obj.Size,
			ModTime:  obj.ModTime,
			LoadedAt: loadedAt,
		}
	}
	h.logger.Info("dataset reloaded", zap.String("path", result.Path))

	response.JSON(w, http.StatusOK, result)
}
