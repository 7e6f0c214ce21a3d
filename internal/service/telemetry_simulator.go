package service

import (
	"math"
	"math/rand"
	"sync"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
)

// TelemetrySimulator 生成模拟传感器读数，随机源可注入以便复现
type TelemetrySimulator struct {
	mu         sync.Mutex
	rng        *rand.Rand
	defaultLat float64
	defaultLon float64
}

// NewTelemetrySimulator 创建模拟器；快照缺少坐标时使用默认坐标
func NewTelemetrySimulator(src rand.Source, defaultLat, defaultLon float64) *TelemetrySimulator {
	return &TelemetrySimulator{
		rng:        rand.New(src),
		defaultLat: defaultLat,
		defaultLon: defaultLon,
	}
}

// Generate 基于当前快照生成一组五类读数
func (s *TelemetrySimulator) Generate(shipmentID uint, snapshot models.RealTimeData) []ReadingInput {
	lat, lon := s.defaultLat, s.defaultLon
	if snapshot.Latitude != nil && snapshot.Longitude != nil {
		lat, lon = *snapshot.Latitude, *snapshot.Longitude
	}

	s.mu.Lock()
	temperature := math.Round((s.rng.Float64()*6+2)*10) / 10
	humidity := math.Round(s.rng.Float64()*30 + 50)
	speed := math.Round(s.rng.Float64()*60 + 40)
	nextLat := lat + (s.rng.Float64()-0.5)*0.02
	nextLon := lon + (s.rng.Float64()-0.5)*0.02
	vibration := math.Round(s.rng.Float64() * 100)
	door := 0.0
	if s.rng.Float64() > 0.95 {
		door = 1
	}
	s.mu.Unlock()

	return []ReadingInput{
		{
			ShipmentID: shipmentID, SensorType: constants.SensorTemperature, Value: temperature, Unit: "°C",
			Latitude: floatPtr(lat), Longitude: floatPtr(lon), DeviceID: "SIM-TEMP-001", IsSimulated: true,
		},
		{
			ShipmentID: shipmentID, SensorType: constants.SensorHumidity, Value: humidity, Unit: "%",
			Latitude: floatPtr(lat), Longitude: floatPtr(lon), DeviceID: "SIM-HUM-001", IsSimulated: true,
		},
		{
			ShipmentID: shipmentID, SensorType: constants.SensorLocation, Value: speed, Unit: "km/h",
			Latitude: floatPtr(nextLat), Longitude: floatPtr(nextLon), DeviceID: "SIM-GPS-001", IsSimulated: true,
		},
		{
			ShipmentID: shipmentID, SensorType: constants.SensorVibration, Value: vibration, Unit: "level",
			DeviceID: "SIM-VIB-001", IsSimulated: true,
		},
		{
			ShipmentID: shipmentID, SensorType: constants.SensorDoorStatus, Value: door, Unit: "boolean",
			DeviceID: "SIM-DOOR-001", IsSimulated: true,
		},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
