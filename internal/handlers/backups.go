package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/routervault/routervault/internal/services"
)

// BackupHandler manages backup records and artifact downloads.
type BackupHandler struct {
	backups     *services.BackupService
	devices     *services.DeviceService
	scheduler   *services.Scheduler
	storagePath string
}

func NewBackupHandler(backups *services.BackupService, devices *services.DeviceService, scheduler *services.Scheduler, storagePath string) *BackupHandler {
	return &BackupHandler{
		backups:     backups,
		devices:     devices,
		scheduler:   scheduler,
		storagePath: storagePath,
	}
}

// Get returns one backup record with its captured audit-log slice.
func (h *BackupHandler) Get(c *gin.Context) {
	record, err := h.backups.Get(c.Param("id"))
	if err != nil {
		if err == services.ErrBackupNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "backup not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	captured, err := h.backups.ListLogsByBackup(record.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup": record, "logs": captured})
}

// SetImportant flips the retention protection flag.
func (h *BackupHandler) SetImportant(c *gin.Context) {
	var req struct {
		Important bool `json:"important"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.backups.SetImportant(c.Param("id"), req.Important); err != nil {
		if err == services.ErrBackupNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "backup not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"important": req.Important})
}

// Delete removes a backup record and its artifact files. Records are only
// ever deleted here, by explicit user action.
func (h *BackupHandler) Delete(c *gin.Context) {
	record, err := h.backups.Get(c.Param("id"))
	if err != nil {
		if err == services.ErrBackupNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "backup not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	device, err := h.devices.GetByID(record.DeviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.backups.Delete(record.ID, device.Name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Restore pushes a backup artifact back to its device.
func (h *BackupHandler) Restore(c *gin.Context) {
	record, err := h.backups.Get(c.Param("id"))
	if err != nil {
		if err == services.ErrBackupNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "backup not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.scheduler.RestoreDevice(c.Request.Context(), record); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "restored"})
}

// Download serves an artifact file from a device's storage folder. Path
// parts are reduced to their base names so the route cannot escape the
// storage root.
func (h *BackupHandler) Download(c *gin.Context) {
	device := filepath.Base(c.Param("device"))
	subdir := filepath.Base(c.Param("subdir"))
	file := filepath.Base(c.Param("file"))

	if subdir != "backups" && subdir != "rsc" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	path := filepath.Join(h.storagePath, device, subdir, file)
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.FileAttachment(path, file)
}
