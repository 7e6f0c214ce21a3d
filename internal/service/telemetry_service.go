package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/smartcargo-next/internal/cache"
	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ReadingInput 传感器读数参数
type ReadingInput struct {
	ShipmentID  uint
	SensorType  string
	Value       float64
	Unit        string
	Latitude    *float64
	Longitude   *float64
	DeviceID    string
	IsSimulated bool
	Timestamp   *time.Time
}

// TelemetryService 遥测接入服务
// 同一运单的读数串行写入（进程内按运单加锁 + 事务内重读快照），不同运单并行。
type TelemetryService struct {
	cfg          config.TelemetryConfig
	shipmentRepo repository.ShipmentRepository
	readingRepo  repository.SensorReadingRepository
	emitter      EventEmitter
	simulator    *TelemetrySimulator
	locks        *shipmentLocks
}

// NewTelemetryService 创建遥测服务，simulator 为空时按配置播种
func NewTelemetryService(cfg config.TelemetryConfig, shipmentRepo repository.ShipmentRepository, readingRepo repository.SensorReadingRepository, emitter EventEmitter, simulator *TelemetrySimulator) *TelemetryService {
	if simulator == nil {
		seed := cfg.SimulationSeed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		simulator = NewTelemetrySimulator(rand.NewSource(seed), cfg.DefaultLatitude, cfg.DefaultLongitude)
	}
	return &TelemetryService{
		cfg:          cfg,
		shipmentRepo: shipmentRepo,
		readingRepo:  readingRepo,
		emitter:      emitterOrNoop(emitter),
		simulator:    simulator,
		locks:        newShipmentLocks(),
	}
}

// RecordReading 写入一条读数并合并到运单快照
func (s *TelemetryService) RecordReading(ctx context.Context, actor Actor, input ReadingInput) (*models.SensorReading, error) {
	if input.ShipmentID == 0 {
		return nil, ErrRequiredField
	}
	if !isValidSensorType(input.SensorType) {
		return nil, ErrInvalidSensorType
	}

	unlock := s.locks.lock(input.ShipmentID)
	defer unlock()

	timestamp := time.Now()
	if input.Timestamp != nil && !input.Timestamp.IsZero() {
		timestamp = *input.Timestamp
	}
	reading := &models.SensorReading{
		ShipmentID:  input.ShipmentID,
		SensorType:  input.SensorType,
		Value:       input.Value,
		Unit:        strings.TrimSpace(input.Unit),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		DeviceID:    strings.TrimSpace(input.DeviceID),
		IsSimulated: input.IsSimulated,
		Timestamp:   timestamp,
	}

	var shipment *models.Shipment
	var before models.RealTimeData
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		shipmentRepo := s.shipmentRepo.WithTx(tx)
		var err error
		shipment, err = shipmentRepo.GetByIDForUpdate(input.ShipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return ErrShipmentNotFound
		}
		if !actor.OwnsOrAdmin(shipment.CarrierID) {
			return ErrForbidden
		}
		if err := s.readingRepo.WithTx(tx).Create(reading); err != nil {
			return err
		}
		before = shipment.RealTimeData
		shipment.RealTimeData, shipment.CurrentLocation = MergeReading(shipment.RealTimeData, shipment.CurrentLocation, reading)
		return shipmentRepo.UpdateSnapshot(shipment.ID, shipment.RealTimeData, shipment.CurrentLocation)
	})
	if err != nil {
		return nil, err
	}
	if err := cache.InvalidateShipmentRealtime(ctx, shipment.ID); err != nil {
		logger.Warnw("shipment_realtime_cache_invalidate_failed", "shipment_id", shipment.ID, "error", err)
	}
	s.emitTelemetryAlerts(ctx, shipment, before)
	return reading, nil
}

// MergeReading 将读数合并到快照，返回新快照与当前位置
func MergeReading(snapshot models.RealTimeData, currentLocation string, reading *models.SensorReading) (models.RealTimeData, string) {
	value := reading.Value
	switch reading.SensorType {
	case constants.SensorTemperature:
		snapshot.TemperatureCelsius = &value
	case constants.SensorHumidity:
		snapshot.HumidityPercent = &value
	case constants.SensorLocation:
		snapshot.Latitude = copyFloat(reading.Latitude)
		snapshot.Longitude = copyFloat(reading.Longitude)
		// LOCATION 读数的 value 表示速度
		snapshot.SpeedKmh = &value
	case constants.SensorVibration:
		level := VibrationLevel(value)
		snapshot.VibrationLevel = &level
	case constants.SensorDoorStatus:
		open := value == 1
		snapshot.DoorOpen = &open
	}
	if reading.Latitude != nil && reading.Longitude != nil {
		currentLocation = FormatLocation(*reading.Latitude, *reading.Longitude)
	}
	return snapshot, currentLocation
}

// VibrationLevel 振动数值分档
func VibrationLevel(value float64) string {
	switch {
	case value < 30:
		return constants.VibrationLow
	case value < 70:
		return constants.VibrationMedium
	default:
		return constants.VibrationHigh
	}
}

// FormatLocation 坐标格式化为 "lat, lon"（四位小数）
func FormatLocation(lat, lon float64) string {
	return decimal.NewFromFloat(lat).StringFixed(4) + ", " + decimal.NewFromFloat(lon).StringFixed(4)
}

func (s *TelemetryService) emitTelemetryAlerts(ctx context.Context, shipment *models.Shipment, before models.RealTimeData) {
	after := shipment.RealTimeData
	if after.DoorOpen != nil && *after.DoorOpen && (before.DoorOpen == nil || !*before.DoorOpen) {
		s.emitter.EmitAlert(ctx, AlertInput{
			Message:           fmt.Sprintf("Door opened on shipment #%d at %s", shipment.ID, shipment.CurrentLocation),
			Severity:          constants.AlertSeverityCritical,
			RelatedShipmentID: shipment.ID,
			RecipientID:       shipment.ShipperID,
		})
	}
	if after.VibrationLevel != nil && *after.VibrationLevel == constants.VibrationHigh &&
		(before.VibrationLevel == nil || *before.VibrationLevel != constants.VibrationHigh) {
		s.emitter.EmitAlert(ctx, AlertInput{
			Message:           fmt.Sprintf("High vibration detected on shipment #%d", shipment.ID),
			Severity:          constants.AlertSeverityWarning,
			RelatedShipmentID: shipment.ID,
			RecipientID:       shipment.ShipperID,
		})
	}
}

// RecordBatch 批量写入读数
// 同一运单按输入顺序串行，不同运单并行。
// 出错时返回首个错误以及已提交的读数（按输入顺序，未写入的项被略去）。
func (s *TelemetryService) RecordBatch(ctx context.Context, actor Actor, inputs []ReadingInput) ([]models.SensorReading, error) {
	if len(inputs) == 0 {
		return nil, ErrEmptyBatch
	}
	groups := make(map[uint][]int)
	order := make([]uint, 0)
	for i, input := range inputs {
		if _, ok := groups[input.ShipmentID]; !ok {
			order = append(order, input.ShipmentID)
		}
		groups[input.ShipmentID] = append(groups[input.ShipmentID], i)
	}

	results := make([]models.SensorReading, len(inputs))
	committed := make([]bool, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for _, shipmentID := range order {
		indexes := groups[shipmentID]
		g.Go(func() error {
			for _, idx := range indexes {
				if err := gctx.Err(); err != nil {
					return err
				}
				reading, err := s.RecordReading(ctx, actor, inputs[idx])
				if err != nil {
					return err
				}
				results[idx] = *reading
				committed[idx] = true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		partial := make([]models.SensorReading, 0, len(results))
		for i, ok := range committed {
			if ok {
				partial = append(partial, results[i])
			}
		}
		return partial, err
	}
	return results, nil
}

// Simulate 为运单生成并写入一组模拟读数
func (s *TelemetryService) Simulate(ctx context.Context, actor Actor, shipmentID uint) ([]models.SensorReading, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !actor.OwnsOrAdmin(shipment.CarrierID) {
		return nil, ErrForbidden
	}
	return s.RecordBatch(ctx, actor, s.simulator.Generate(shipment.ID, shipment.RealTimeData))
}

// LatestByType 每种传感器的最新读数，缺失类型不返回
func (s *TelemetryService) LatestByType(actor Actor, shipmentID uint) (map[string]models.SensorReading, error) {
	if _, err := s.loadReadableShipment(actor, shipmentID); err != nil {
		return nil, err
	}
	latest := make(map[string]models.SensorReading)
	for _, sensorType := range sensorTypes {
		reading, err := s.readingRepo.LatestByType(shipmentID, sensorType)
		if err != nil {
			return nil, err
		}
		if reading != nil {
			latest[sensorType] = *reading
		}
	}
	return latest, nil
}

// ListReadings 运单读数，按时间倒序
func (s *TelemetryService) ListReadings(actor Actor, shipmentID uint, limit int) ([]models.SensorReading, error) {
	if _, err := s.loadReadableShipment(actor, shipmentID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.ReadingListLimit
	}
	if limit <= 0 {
		limit = 100
	}
	return s.readingRepo.ListByShipment(shipmentID, limit)
}

func (s *TelemetryService) loadReadableShipment(actor Actor, shipmentID uint) (*models.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(shipmentID)
	if err != nil {
		return nil, err
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	if !canAccessShipment(actor, shipment.ShipperID, shipment.CarrierID) {
		return nil, ErrForbidden
	}
	return shipment, nil
}

var sensorTypes = []string{
	constants.SensorTemperature,
	constants.SensorHumidity,
	constants.SensorLocation,
	constants.SensorVibration,
	constants.SensorDoorStatus,
}

func isValidSensorType(sensorType string) bool {
	for _, t := range sensorTypes {
		if t == sensorType {
			return true
		}
	}
	return false
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

type shipmentLock struct {
	mu   sync.Mutex
	refs int
}

// shipmentLocks 按运单 ID 的互斥锁，无人持有时回收
type shipmentLocks struct {
	mu    sync.Mutex
	locks map[uint]*shipmentLock
}

func newShipmentLocks() *shipmentLocks {
	return &shipmentLocks{locks: make(map[uint]*shipmentLock)}
}

func (l *shipmentLocks) lock(id uint) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &shipmentLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}
