package main

import (
	"fmt"
	"time"

	"github.com/smartcargo-next/internal/config"
	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/logger"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const seedPassword = "password123"

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	var existing int64
	if err := models.DB.Model(&models.User{}).Where("username = ?", "shipper").Count(&existing).Error; err != nil {
		stdLog.Fatalf("Failed to inspect users: %v", err)
	}
	if existing > 0 {
		stdLog.Println("Seed data already present, skipping")
		return
	}

	hash, err := service.HashPassword(seedPassword)
	if err != nil {
		stdLog.Fatalf("Failed to hash password: %v", err)
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		users := []*models.User{
			{Username: "admin", Email: "admin@smartcargo.cl", Name: "Administrador", Role: constants.RoleAdmin, CompanyName: "SmartCargo"},
			{Username: "shipper", Email: "shipper@exportadora.cl", Name: "Ana Rojas", Role: constants.RoleShipper, CompanyName: "Exportadora Central"},
			{Username: "carrier", Email: "carrier@transportes.cl", Name: "Carlos Muñoz", Role: constants.RoleCarrier, CompanyName: "Transportes del Sur", Certifications: models.StringArray{"ISO 9001", "Cadena de frío"}},
		}
		for _, user := range users {
			var admins int64
			if user.Role == constants.RoleAdmin {
				if err := tx.Model(&models.User{}).Where("role = ?", constants.RoleAdmin).Count(&admins).Error; err != nil {
					return err
				}
				if admins > 0 {
					continue
				}
			}
			user.PasswordHash = hash
			user.Status = constants.UserStatusActive
			user.Preferences = models.DefaultPreferences()
			if err := tx.Create(user).Error; err != nil {
				return fmt.Errorf("create user %s: %w", user.Username, err)
			}
		}
		shipper, carrier := users[1], users[2]

		pickup := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
		offers := []*models.CargoOffer{
			{Origin: "Santiago", Destination: "Valparaíso", CargoType: "Electronics", WeightKg: 500, VolumeM3: 2.5,
				PickupDate: pickup, DeliveryDate: pickup.Add(48 * time.Hour), Status: constants.CargoStatusPending, ShipperID: shipper.ID},
			{Origin: "Concepción", Destination: "Santiago", CargoType: "Food Products", WeightKg: 1200, VolumeM3: 5,
				PickupDate: pickup, DeliveryDate: pickup.Add(24 * time.Hour), Status: constants.CargoStatusMatched, ShipperID: shipper.ID},
		}
		if err := tx.Create(&offers).Error; err != nil {
			return fmt.Errorf("create cargo offers: %w", err)
		}

		vehicles := []*models.Vehicle{
			{Type: constants.VehicleTypeTruckFTL, CapacityKg: 25000, CapacityM3: 80, CurrentLocation: "Santiago",
				Availability: constants.VehicleAvailable, DriverName: "Juan Pérez", CarrierID: carrier.ID},
			{Type: constants.VehicleTypeRefrigeratedTruck, CapacityKg: 10000, CapacityM3: 40, CurrentLocation: "Concepción",
				Availability: constants.VehicleOnTrip, DriverName: "María González", CarrierID: carrier.ID},
		}
		if err := tx.Create(&vehicles).Error; err != nil {
			return fmt.Errorf("create vehicles: %w", err)
		}

		temp, humidity, lat, lon, speed := 4.5, 65.0, -36.8201, -73.0444, 72.0
		vibration, door := constants.VibrationLow, false
		shipment := &models.Shipment{
			CargoID:           offers[1].ID,
			VehicleID:         vehicles[1].ID,
			ShipperID:         shipper.ID,
			CarrierID:         carrier.ID,
			CurrentLocation:   service.FormatLocation(lat, lon),
			Status:            constants.ShipmentStatusInTransit,
			EstimatedDelivery: offers[1].DeliveryDate,
			RealTimeData: models.RealTimeData{
				TemperatureCelsius: &temp,
				HumidityPercent:    &humidity,
				Latitude:           &lat,
				Longitude:          &lon,
				SpeedKmh:           &speed,
				VibrationLevel:     &vibration,
				DoorOpen:           &door,
			},
		}
		if err := tx.Create(shipment).Error; err != nil {
			return fmt.Errorf("create shipment: %w", err)
		}

		now := time.Now()
		if err := tx.Create(&models.Alert{
			Message:           "Shipment departed Concepción with cold chain active",
			Severity:          constants.AlertSeverityInfo,
			RelatedShipmentID: &shipment.ID,
			RecipientID:       &shipper.ID,
			Timestamp:         now,
		}).Error; err != nil {
			return fmt.Errorf("create alert: %w", err)
		}
		return tx.Create(&models.AuditEvent{
			EventID:         uuid.NewString(),
			EventType:       constants.EventShipmentCreated,
			Details:         models.JSON{"cargo_id": offers[1].ID, "vehicle_id": vehicles[1].ID, "source": "seed"},
			RelatedEntityID: &shipment.ID,
			Timestamp:       now,
		}).Error
	})
	if err != nil {
		stdLog.Fatalf("Failed to seed data: %v", err)
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Users (admin / shipper / carrier, password: " + seedPassword + ")")
	fmt.Println("- 2 Cargo offers")
	fmt.Println("- 2 Vehicles")
	fmt.Println("- 1 Shipment in transit with realtime data")
	fmt.Println("- 1 Alert and 1 audit event")
}
