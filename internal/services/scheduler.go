package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/routervault/routervault/internal/logs"
	"github.com/routervault/routervault/internal/models"
)

// Scheduler walks the enabled device fleet once per tick, runs the
// executor for due devices, and isolates per-device failures. Manual
// backups share the per-device locks so two cycles never race on one
// device's cursors or storage folder.
type Scheduler struct {
	devices  *DeviceService
	settings *SettingsService
	alerts   *AlertService
	executor *BackupExecutor
	clock    Clock
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewScheduler(
	devices *DeviceService,
	settings *SettingsService,
	alerts *AlertService,
	executor *BackupExecutor,
	clock Clock,
	interval time.Duration,
) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		devices:  devices,
		settings: settings,
		alerts:   alerts,
		executor: executor,
		clock:    clock,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Start begins ticking in the background.
func (s *Scheduler) Start() {
	logs.Logger.Infof("[Scheduler] starting (interval: %v)", s.interval)
	s.wg.Add(1)
	go s.run()
}

// Stop cancels future ticks and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	logs.Logger.Info("[Scheduler] stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.ctx)
		}
	}
}

// Tick processes the whole fleet once. Devices run sequentially; one
// device's failure never aborts the tick for the others. Exported so tests
// and operators can drive ticks directly.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now()

	if err := s.settings.Heartbeat(now); err != nil {
		logs.Logger.Warnf("[Scheduler] heartbeat: %v", err)
	}

	devices, err := s.devices.ListEnabled()
	if err != nil {
		logs.Logger.Errorf("[Scheduler] list devices: %v", err)
		return
	}

	for _, device := range devices {
		if ctx.Err() != nil {
			return
		}
		if !BaselineDue(device, now) && !IntervalDue(device, now) {
			continue
		}
		s.runOne(ctx, device.ID, false, models.TriggerAuto)
	}

	if err := s.alerts.Cleanup(); err != nil {
		logs.Logger.Warnf("[Scheduler] alert cleanup: %v", err)
	}
}

func (s *Scheduler) runOne(ctx context.Context, deviceID int64, force bool, trigger string) (*CheckResult, error) {
	lock := s.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	// Reload under the lock. The fleet snapshot may predate a concurrent
	// cycle for this device; running from that snapshot would rewind
	// cursors and re-store its log window.
	device, err := s.devices.GetByID(deviceID)
	if err != nil {
		return nil, err
	}
	baselineDue := BaselineDue(device, s.clock.Now())

	result, err := s.executor.Run(ctx, device, baselineDue, force, trigger)
	if err != nil {
		now := s.clock.Now()
		logs.Logger.Errorf("[Scheduler] device %s: %v", device.Name, err)
		if dbErr := s.devices.RecordFailure(device.ID, err.Error(), now); dbErr != nil {
			logs.Logger.Errorf("[Scheduler] record failure for %s: %v", device.Name, dbErr)
		}
		if _, alertErr := s.alerts.Create(&device.ID, models.AlertError, models.AlertBackupFailed,
			"Backup check failed",
			fmt.Sprintf("%s: %v", device.Name, err)); alertErr != nil {
			logs.Logger.Warnf("[Scheduler] failure alert for %s: %v", device.Name, alertErr)
		}
		return nil, err
	}

	if result.NeedsBackup {
		logs.Logger.Infof("[Scheduler] device %s: backup created (%s)", device.Name, result.Summary)
	}
	return result, nil
}

// RunDevice executes a caller-triggered cycle for one device, bypassing
// due calculation. It serializes against scheduled ticks per device.
func (s *Scheduler) RunDevice(ctx context.Context, deviceID int64, force bool) (*CheckResult, error) {
	return s.runOne(ctx, deviceID, force, models.TriggerManual)
}

// RestoreDevice pushes a stored backup back to its device, serialized
// against any in-flight cycle for the same device.
func (s *Scheduler) RestoreDevice(ctx context.Context, record *models.BackupRecord) error {
	device, err := s.devices.GetByID(record.DeviceID)
	if err != nil {
		return err
	}

	lock := s.deviceLock(device.ID)
	lock.Lock()
	defer lock.Unlock()

	return s.executor.Restore(ctx, device, record)
}

func (s *Scheduler) deviceLock(id int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
