// Package handlers provides the JSON API surface.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/routervault/routervault/internal/mikrotik"
	"github.com/routervault/routervault/internal/models"
	"github.com/routervault/routervault/internal/services"
)

// DeviceHandler handles device management and the manual backup path.
type DeviceHandler struct {
	devices   *services.DeviceService
	backups   *services.BackupService
	scheduler *services.Scheduler
	clients   mikrotik.Factory
}

func NewDeviceHandler(devices *services.DeviceService, backups *services.BackupService, scheduler *services.Scheduler, clients mikrotik.Factory) *DeviceHandler {
	return &DeviceHandler{
		devices:   devices,
		backups:   backups,
		scheduler: scheduler,
		clients:   clients,
	}
}

func deviceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device id"})
		return 0, false
	}
	return id, true
}

// List returns all devices.
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.devices.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, devices)
}

// Get returns a single device by ID.
func (h *DeviceHandler) Get(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	device, err := h.devices.GetByID(id)
	if err != nil {
		if err == services.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, device)
}

// Create registers a new device.
func (h *DeviceHandler) Create(c *gin.Context) {
	var req models.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.devices.Create(&req)
	if err != nil {
		if err == services.ErrDeviceExists {
			c.JSON(http.StatusConflict, gin.H{"error": "device already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, device)
}

// Update edits a device.
func (h *DeviceHandler) Update(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	var req models.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device, err := h.devices.Update(id, &req)
	if err != nil {
		if err == services.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, device)
}

// Delete removes a device and its records.
func (h *DeviceHandler) Delete(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	if err := h.devices.Delete(id); err != nil {
		if err == services.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Test checks device connectivity.
func (h *DeviceHandler) Test(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	device, err := h.devices.GetByID(id)
	if err != nil {
		if err == services.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	creds, err := h.devices.Credentials(device)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	okConn, message := h.clients(creds).TestConnection(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"ok": okConn, "message": message})
}

// Backup triggers a forced manual backup cycle for the device.
func (h *DeviceHandler) Backup(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	result, err := h.scheduler.RunDevice(c.Request.Context(), id, true)
	if err != nil {
		if err == services.ErrDeviceNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "device not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Backups lists a device's backup records, newest first.
func (h *DeviceHandler) Backups(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	backups, err := h.backups.ListByDevice(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, backups)
}

// Logs lists a device's stored audit-log entries.
func (h *DeviceHandler) Logs(c *gin.Context) {
	id, ok := deviceID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logEntries, err := h.backups.ListLogs(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, logEntries)
}
