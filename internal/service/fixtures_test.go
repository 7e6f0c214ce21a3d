package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type recordingEmitter struct {
	mu     sync.Mutex
	alerts []AlertInput
	audits []AuditInput
}

func (e *recordingEmitter) EmitAlert(_ context.Context, input AlertInput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alerts = append(e.alerts, input)
}

func (e *recordingEmitter) EmitAudit(_ context.Context, input AuditInput) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.audits = append(e.audits, input)
}

func (e *recordingEmitter) auditTypes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.audits))
	for _, a := range e.audits {
		out = append(out, a.EventType)
	}
	return out
}

func (e *recordingEmitter) alertsWithSeverity(severity string) []AlertInput {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []AlertInput
	for _, a := range e.alerts {
		if a.Severity == severity {
			out = append(out, a)
		}
	}
	return out
}

type serviceFixture struct {
	db        *gorm.DB
	emitter   *recordingEmitter
	cfg       *config.Config
	users     *repository.GormUserRepository
	offers    repository.CargoOfferRepository
	vehicles  repository.VehicleRepository
	shipments repository.ShipmentRepository
	readings  repository.SensorReadingRepository
	alerts    repository.AlertRepository
	audits    repository.AuditEventRepository
}

func setupServiceTest(t *testing.T) *serviceFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("migrate models failed: %v", err)
	}
	models.DB = db
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1},
		Security: config.SecurityConfig{
			PasswordPolicy: config.PasswordPolicyConfig{MinLength: 6},
		},
		Telemetry: config.TelemetryConfig{
			ReadingListLimit: 100,
			DefaultLatitude:  -33.45,
			DefaultLongitude: -70.65,
		},
	}
	return &serviceFixture{
		db:        db,
		emitter:   &recordingEmitter{},
		cfg:       cfg,
		users:     repository.NewUserRepository(db),
		offers:    repository.NewCargoOfferRepository(db),
		vehicles:  repository.NewVehicleRepository(db),
		shipments: repository.NewShipmentRepository(db),
		readings:  repository.NewSensorReadingRepository(db),
		alerts:    repository.NewAlertRepository(db),
		audits:    repository.NewAuditEventRepository(db),
	}
}

func (f *serviceFixture) matching() *MatchingService {
	return NewMatchingService(f.cfg.Matching, f.offers, f.vehicles, f.shipments, f.emitter)
}

func (f *serviceFixture) shipmentService() *ShipmentService {
	return NewShipmentService(f.cfg.Telemetry, f.shipments, f.offers, f.vehicles, f.emitter)
}

func (f *serviceFixture) createUser(t *testing.T, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Name:         username,
		Role:         role,
		CompanyName:  "ACME",
		Status:       constants.UserStatusActive,
		Preferences:  models.DefaultPreferences(),
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

func (f *serviceFixture) createOffer(t *testing.T, shipperID uint, cargoType string, weight, volume float64) *models.CargoOffer {
	t.Helper()
	pickup := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	offer := &models.CargoOffer{
		Origin:       "Santiago",
		Destination:  "Valparaíso",
		CargoType:    cargoType,
		WeightKg:     weight,
		VolumeM3:     volume,
		PickupDate:   pickup,
		DeliveryDate: pickup.Add(48 * time.Hour),
		Status:       constants.CargoStatusPending,
		ShipperID:    shipperID,
	}
	if err := f.db.Create(offer).Error; err != nil {
		t.Fatalf("create offer failed: %v", err)
	}
	return offer
}

func (f *serviceFixture) createVehicle(t *testing.T, carrierID uint, vehicleType string, capKg, capM3 float64) *models.Vehicle {
	t.Helper()
	vehicle := &models.Vehicle{
		Type:            vehicleType,
		CapacityKg:      capKg,
		CapacityM3:      capM3,
		CurrentLocation: "Santiago",
		Availability:    constants.VehicleAvailable,
		DriverName:      "Juan Pérez",
		CarrierID:       carrierID,
	}
	if err := f.db.Create(vehicle).Error; err != nil {
		t.Fatalf("create vehicle failed: %v", err)
	}
	return vehicle
}

func (f *serviceFixture) reloadOffer(t *testing.T, id uint) *models.CargoOffer {
	t.Helper()
	offer, err := f.offers.GetByID(id)
	if err != nil || offer == nil {
		t.Fatalf("reload offer failed: %v", err)
	}
	return offer
}

func (f *serviceFixture) reloadVehicle(t *testing.T, id uint) *models.Vehicle {
	t.Helper()
	vehicle, err := f.vehicles.GetByID(id)
	if err != nil || vehicle == nil {
		t.Fatalf("reload vehicle failed: %v", err)
	}
	return vehicle
}

func (f *serviceFixture) countRows(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows failed: %v", err)
	}
	return n
}

func actorOf(user *models.User) Actor {
	return Actor{UserID: user.ID, Role: user.Role}
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error of kind %d, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("expected error kind %d, got %d (%v)", kind, got, err)
	}
}
