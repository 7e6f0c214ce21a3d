package service

import (
	"context"
	"math/rand"
	"reflect"
	"testing"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
)

func (s *shipmentScenario) telemetry(seed int64) *TelemetryService {
	cfg := s.f.cfg.Telemetry
	sim := NewTelemetrySimulator(rand.NewSource(seed), cfg.DefaultLatitude, cfg.DefaultLongitude)
	return NewTelemetryService(cfg, s.f.shipments, s.f.readings, s.f.emitter, sim)
}

func (s *shipmentScenario) snapshot(t *testing.T) *models.Shipment {
	t.Helper()
	shipment, err := s.f.shipments.GetByID(s.shipment.ID)
	if err != nil || shipment == nil {
		t.Fatalf("reload shipment failed: %v", err)
	}
	return shipment
}

func TestRecordReadingVibrationBand(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	ctx := context.Background()

	if _, err := svc.RecordReading(ctx, actorOf(s.carrier), ReadingInput{ShipmentID: s.shipment.ID, SensorType: constants.SensorVibration, Value: 45, Unit: "level"}); err != nil {
		t.Fatalf("record reading failed: %v", err)
	}
	level := s.snapshot(t).RealTimeData.VibrationLevel
	if level == nil || *level != constants.VibrationMedium {
		t.Fatalf("expected Medium vibration, got %v", level)
	}

	latest, err := svc.LatestByType(actorOf(s.shipper), s.shipment.ID)
	if err != nil {
		t.Fatalf("latest by type failed: %v", err)
	}
	if len(latest) != 1 || latest[constants.SensorVibration].Value != 45 {
		t.Fatalf("unexpected latest readings: %+v", latest)
	}
}

func TestVibrationLevelBoundaries(t *testing.T) {
	cases := map[float64]string{
		0:     constants.VibrationLow,
		29.99: constants.VibrationLow,
		30:    constants.VibrationMedium,
		69.9:  constants.VibrationMedium,
		70:    constants.VibrationHigh,
		100:   constants.VibrationHigh,
	}
	for value, want := range cases {
		if got := VibrationLevel(value); got != want {
			t.Fatalf("VibrationLevel(%v) = %s, want %s", value, got, want)
		}
	}
}

func TestRecordReadingDoorStatusIdempotent(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	ctx := context.Background()
	door := func(v float64) {
		t.Helper()
		if _, err := svc.RecordReading(ctx, actorOf(s.carrier), ReadingInput{ShipmentID: s.shipment.ID, SensorType: constants.SensorDoorStatus, Value: v}); err != nil {
			t.Fatalf("record door reading failed: %v", err)
		}
	}

	door(1)
	door(1)
	open := s.snapshot(t).RealTimeData.DoorOpen
	if open == nil || !*open {
		t.Fatalf("expected door open")
	}
	if n := len(s.f.emitter.alertsWithSeverity(constants.AlertSeverityCritical)); n != 1 {
		t.Fatalf("door alert should fire once on transition, got %d", n)
	}

	door(0)
	open = s.snapshot(t).RealTimeData.DoorOpen
	if open == nil || *open {
		t.Fatalf("expected door closed")
	}
}

func TestRecordReadingLocationUpdatesPosition(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	lat, lon := -33.047238, -71.612688

	if _, err := svc.RecordReading(context.Background(), actorOf(s.admin), ReadingInput{
		ShipmentID: s.shipment.ID, SensorType: constants.SensorLocation, Value: 72, Unit: "km/h",
		Latitude: &lat, Longitude: &lon,
	}); err != nil {
		t.Fatalf("record location failed: %v", err)
	}
	shipment := s.snapshot(t)
	if shipment.CurrentLocation != "-33.0472, -71.6127" {
		t.Fatalf("unexpected current location %q", shipment.CurrentLocation)
	}
	data := shipment.RealTimeData
	if data.SpeedKmh == nil || *data.SpeedKmh != 72 || data.Latitude == nil || *data.Latitude != lat {
		t.Fatalf("unexpected snapshot: %+v", data)
	}
}

func TestRecordReadingRejectsInvalidInput(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	ctx := context.Background()

	_, err := svc.RecordReading(ctx, actorOf(s.carrier), ReadingInput{ShipmentID: s.shipment.ID, SensorType: "PRESSURE", Value: 1})
	assertKind(t, err, KindValidation)

	_, err = svc.RecordReading(ctx, actorOf(s.carrier), ReadingInput{ShipmentID: 999, SensorType: constants.SensorHumidity, Value: 60})
	assertKind(t, err, KindNotFound)

	_, err = svc.RecordReading(ctx, actorOf(s.shipper), ReadingInput{ShipmentID: s.shipment.ID, SensorType: constants.SensorHumidity, Value: 60})
	assertKind(t, err, KindForbidden)

	if n := s.f.countRows(t, &models.SensorReading{}); n != 0 {
		t.Fatalf("rejected readings must not be stored, got %d", n)
	}
}

func TestRecordBatchSameShipmentKeepsLastValue(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	inputs := []ReadingInput{
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorTemperature, Value: 4.1},
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorHumidity, Value: 61},
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorTemperature, Value: 5.3},
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorHumidity, Value: 64},
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorTemperature, Value: 6.8},
	}

	readings, err := svc.RecordBatch(context.Background(), actorOf(s.carrier), inputs)
	if err != nil {
		t.Fatalf("record batch failed: %v", err)
	}
	if len(readings) != len(inputs) {
		t.Fatalf("expected %d readings, got %d", len(inputs), len(readings))
	}
	if n := s.f.countRows(t, &models.SensorReading{}); n != int64(len(inputs)) {
		t.Fatalf("expected %d stored readings, got %d", len(inputs), n)
	}
	data := s.snapshot(t).RealTimeData
	if data.TemperatureCelsius == nil || *data.TemperatureCelsius != 6.8 {
		t.Fatalf("expected last temperature 6.8, got %v", data.TemperatureCelsius)
	}
	if data.HumidityPercent == nil || *data.HumidityPercent != 64 {
		t.Fatalf("expected last humidity 64, got %v", data.HumidityPercent)
	}

	_, err = svc.RecordBatch(context.Background(), actorOf(s.carrier), nil)
	assertKind(t, err, KindValidation)
}

func TestRecordBatchAcrossShipmentsKeepsCommittedReadings(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(1)
	ctx := context.Background()
	offer := s.f.createOffer(t, s.shipper.ID, "Frozen food", 800, 3)
	vehicle := s.f.createVehicle(t, s.carrier.ID, constants.VehicleTypeTruckFTL, 20000, 60)
	other, err := s.f.matching().Assign(ctx, actorOf(s.admin), AssignInput{CargoID: offer.ID, VehicleID: vehicle.ID})
	if err != nil {
		t.Fatalf("assign second shipment failed: %v", err)
	}
	before := s.snapshot(t).RealTimeData

	// other 组最后一项非法，该组前两项必然已提交；s.shipment 组可能在出错后被取消
	inputs := []ReadingInput{
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorTemperature, Value: 3.0},
		{ShipmentID: other.ID, SensorType: constants.SensorHumidity, Value: 55},
		{ShipmentID: s.shipment.ID, SensorType: constants.SensorTemperature, Value: 3.5},
		{ShipmentID: other.ID, SensorType: constants.SensorTemperature, Value: 7.2},
		{ShipmentID: other.ID, SensorType: "PRESSURE", Value: 1},
	}
	readings, err := svc.RecordBatch(ctx, actorOf(s.carrier), inputs)
	assertKind(t, err, KindValidation)

	countFor := func(shipmentID uint) int64 {
		var n int64
		if err := s.f.db.Model(&models.SensorReading{}).Where("shipment_id = ?", shipmentID).Count(&n).Error; err != nil {
			t.Fatalf("count readings failed: %v", err)
		}
		return n
	}
	if n := countFor(other.ID); n != 2 {
		t.Fatalf("expected 2 committed readings before the invalid item, got %d", n)
	}
	firstCount := countFor(s.shipment.ID)
	if firstCount > 2 {
		t.Fatalf("unexpected readings for first shipment: %d", firstCount)
	}
	if int64(len(readings)) != 2+firstCount {
		t.Fatalf("returned readings should match committed rows, got %d want %d", len(readings), 2+firstCount)
	}

	// 返回值按输入顺序排列，且每个运单都是其输入序列的前缀
	var gotFirst, gotOther []float64
	for _, reading := range readings {
		if reading.ID == 0 {
			t.Fatalf("returned reading was not persisted: %+v", reading)
		}
		switch reading.ShipmentID {
		case s.shipment.ID:
			gotFirst = append(gotFirst, reading.Value)
		case other.ID:
			gotOther = append(gotOther, reading.Value)
		default:
			t.Fatalf("unexpected shipment %d in results", reading.ShipmentID)
		}
	}
	if !reflect.DeepEqual(gotOther, []float64{55, 7.2}) {
		t.Fatalf("unexpected committed values for second shipment: %v", gotOther)
	}
	if want := []float64{3.0, 3.5}[:firstCount]; len(gotFirst) != len(want) || (len(want) > 0 && !reflect.DeepEqual(gotFirst, want)) {
		t.Fatalf("unexpected committed values for first shipment: %v", gotFirst)
	}

	otherShipment, err := s.f.shipments.GetByID(other.ID)
	if err != nil || otherShipment == nil {
		t.Fatalf("reload second shipment failed: %v", err)
	}
	data := otherShipment.RealTimeData
	if data.HumidityPercent == nil || *data.HumidityPercent != 55 {
		t.Fatalf("expected humidity 55, got %v", data.HumidityPercent)
	}
	if data.TemperatureCelsius == nil || *data.TemperatureCelsius != 7.2 {
		t.Fatalf("expected temperature 7.2, got %v", data.TemperatureCelsius)
	}

	first := s.snapshot(t).RealTimeData
	if firstCount == 0 {
		if !reflect.DeepEqual(first.TemperatureCelsius, before.TemperatureCelsius) {
			t.Fatalf("snapshot should be untouched without committed readings")
		}
	} else if first.TemperatureCelsius == nil || *first.TemperatureCelsius != gotFirst[len(gotFirst)-1] {
		t.Fatalf("expected last committed temperature %v, got %v", gotFirst[len(gotFirst)-1], first.TemperatureCelsius)
	}
}

func TestSimulatorIsDeterministicForSeed(t *testing.T) {
	a := NewTelemetrySimulator(rand.NewSource(42), -33.45, -70.65).Generate(7, models.RealTimeData{})
	b := NewTelemetrySimulator(rand.NewSource(42), -33.45, -70.65).Generate(7, models.RealTimeData{})
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("same seed should generate identical readings")
	}
	if len(a) != 5 {
		t.Fatalf("expected 5 readings, got %d", len(a))
	}
	for _, r := range a {
		if !r.IsSimulated || r.ShipmentID != 7 {
			t.Fatalf("unexpected simulated reading: %+v", r)
		}
		switch r.SensorType {
		case constants.SensorTemperature:
			if r.Value < 2 || r.Value > 8 || r.DeviceID != "SIM-TEMP-001" {
				t.Fatalf("temperature out of range: %+v", r)
			}
		case constants.SensorHumidity:
			if r.Value < 50 || r.Value > 80 {
				t.Fatalf("humidity out of range: %+v", r)
			}
		case constants.SensorLocation:
			if r.Value < 40 || r.Value > 100 || *r.Latitude < -33.46 || *r.Latitude > -33.44 {
				t.Fatalf("location out of range: %+v", r)
			}
		case constants.SensorVibration:
			if r.Value < 0 || r.Value > 100 {
				t.Fatalf("vibration out of range: %+v", r)
			}
		case constants.SensorDoorStatus:
			if r.Value != 0 && r.Value != 1 {
				t.Fatalf("door status must be 0 or 1: %+v", r)
			}
		}
	}
}

func TestSimulateStoresFiveReadings(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.telemetry(99)

	readings, err := svc.Simulate(context.Background(), actorOf(s.carrier), s.shipment.ID)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if len(readings) != 5 {
		t.Fatalf("expected 5 readings, got %d", len(readings))
	}
	list, err := svc.ListReadings(actorOf(s.shipper), s.shipment.ID, 0)
	if err != nil {
		t.Fatalf("list readings failed: %v", err)
	}
	if len(list) != 5 {
		t.Fatalf("expected 5 stored readings, got %d", len(list))
	}
	if s.snapshot(t).CurrentLocation == "Santiago" {
		t.Fatalf("simulated readings should update current location")
	}
}
