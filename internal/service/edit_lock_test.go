package service

import (
	"context"
	"testing"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"

	"gorm.io/gorm"
)

// staleOfferRepository 返回读取时刻较早的状态，模拟撮合在读与写之间提交
type staleOfferRepository struct {
	repository.CargoOfferRepository
	staleStatus string
}

func (r *staleOfferRepository) WithTx(tx *gorm.DB) repository.CargoOfferRepository {
	return &staleOfferRepository{CargoOfferRepository: r.CargoOfferRepository.WithTx(tx), staleStatus: r.staleStatus}
}

func (r *staleOfferRepository) GetByIDForUpdate(id uint) (*models.CargoOffer, error) {
	offer, err := r.CargoOfferRepository.GetByIDForUpdate(id)
	if err != nil || offer == nil {
		return offer, err
	}
	offer.Status = r.staleStatus
	return offer, nil
}

func (f *serviceFixture) countShipments(t *testing.T, column string, id uint) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&models.Shipment{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		t.Fatalf("count shipments failed: %v", err)
	}
	return n
}

func TestVehicleAvailabilityLockedWhileOnTrip(t *testing.T) {
	f := setupServiceTest(t)
	admin := f.createUser(t, "admin", constants.RoleAdmin)
	shipper := f.createUser(t, "shipper", constants.RoleShipper)
	carrier := f.createUser(t, "carrier", constants.RoleCarrier)
	first := f.createOffer(t, shipper.ID, "Electronics", 500, 2.5)
	second := f.createOffer(t, shipper.ID, "Textiles", 300, 1.5)
	vehicle := f.createVehicle(t, carrier.ID, constants.VehicleTypeTruckFTL, 25000, 80)
	ctx := context.Background()

	if _, err := f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: first.ID, VehicleID: vehicle.ID}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	svc := NewVehicleService(f.vehicles, f.emitter)

	available := constants.VehicleAvailable
	_, err := svc.Update(ctx, actorOf(carrier), vehicle.ID, UpdateVehicleInput{Availability: &available})
	assertKind(t, err, KindConflict)
	capacity := 1000.0
	_, err = svc.Update(ctx, actorOf(carrier), vehicle.ID, UpdateVehicleInput{CapacityKg: &capacity})
	assertKind(t, err, KindConflict)

	driver := "Pedro Soto"
	updated, err := svc.Update(ctx, actorOf(carrier), vehicle.ID, UpdateVehicleInput{DriverName: &driver})
	if err != nil {
		t.Fatalf("driver change should be allowed on trip: %v", err)
	}
	if updated.DriverName != driver {
		t.Fatalf("driver not updated: %+v", updated)
	}
	reloaded := f.reloadVehicle(t, vehicle.ID)
	if reloaded.Availability != constants.VehicleOnTrip || reloaded.CapacityKg != 25000 {
		t.Fatalf("vehicle trip state should be untouched, got %+v", reloaded)
	}

	_, err = f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: second.ID, VehicleID: vehicle.ID})
	assertKind(t, err, KindConflict)
	if n := f.countShipments(t, "vehicle_id", vehicle.ID); n != 1 {
		t.Fatalf("vehicle should carry a single shipment, got %d", n)
	}
	if got := f.reloadOffer(t, second.ID).Status; got != constants.CargoStatusPending {
		t.Fatalf("second offer should stay PENDING, got %s", got)
	}
}

func TestCargoOfferLockedAfterMatching(t *testing.T) {
	f := setupServiceTest(t)
	admin := f.createUser(t, "admin", constants.RoleAdmin)
	shipper := f.createUser(t, "shipper", constants.RoleShipper)
	carrier := f.createUser(t, "carrier", constants.RoleCarrier)
	offer := f.createOffer(t, shipper.ID, "Electronics", 500, 2.5)
	firstVehicle := f.createVehicle(t, carrier.ID, constants.VehicleTypeTruckFTL, 25000, 80)
	secondVehicle := f.createVehicle(t, carrier.ID, constants.VehicleTypeTruckFTL, 25000, 80)
	ctx := context.Background()

	if _, err := f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: offer.ID, VehicleID: firstVehicle.ID}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	svc := NewCargoService(f.offers, f.emitter)

	weight := 900.0
	_, err := svc.Update(ctx, actorOf(shipper), offer.ID, UpdateCargoOfferInput{WeightKg: &weight})
	assertKind(t, err, KindConflict)
	pending := constants.CargoStatusPending
	_, err = svc.Update(ctx, actorOf(shipper), offer.ID, UpdateCargoOfferInput{Status: &pending})
	assertKind(t, err, KindConflict)

	origin := "Rancagua"
	updated, err := svc.Update(ctx, actorOf(shipper), offer.ID, UpdateCargoOfferInput{Origin: &origin})
	if err != nil {
		t.Fatalf("origin change should be allowed after matching: %v", err)
	}
	if updated.Status != constants.CargoStatusMatched || updated.Origin != origin {
		t.Fatalf("unexpected offer after update: %+v", updated)
	}
	reloaded := f.reloadOffer(t, offer.ID)
	if reloaded.Status != constants.CargoStatusMatched || reloaded.WeightKg != 500 {
		t.Fatalf("matched offer should keep status and weight, got %+v", reloaded)
	}

	_, err = f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: offer.ID, VehicleID: secondVehicle.ID})
	assertKind(t, err, KindConflict)
	if n := f.countShipments(t, "cargo_id", offer.ID); n != 1 {
		t.Fatalf("offer should have a single shipment, got %d", n)
	}
	if got := f.reloadVehicle(t, secondVehicle.ID).Availability; got != constants.VehicleAvailable {
		t.Fatalf("second vehicle should stay AVAILABLE, got %s", got)
	}
}

func TestCargoOfferUpdateKeepsConcurrentAssignment(t *testing.T) {
	f := setupServiceTest(t)
	admin := f.createUser(t, "admin", constants.RoleAdmin)
	shipper := f.createUser(t, "shipper", constants.RoleShipper)
	carrier := f.createUser(t, "carrier", constants.RoleCarrier)
	offer := f.createOffer(t, shipper.ID, "Electronics", 500, 2.5)
	vehicle := f.createVehicle(t, carrier.ID, constants.VehicleTypeTruckFTL, 25000, 80)
	ctx := context.Background()

	if _, err := f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: offer.ID, VehicleID: vehicle.ID}); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	svc := NewCargoService(&staleOfferRepository{CargoOfferRepository: f.offers, staleStatus: constants.CargoStatusPending}, f.emitter)
	f.emitter.audits = nil

	origin := "Rancagua"
	weight := 900.0
	_, err := svc.Update(ctx, actorOf(shipper), offer.ID, UpdateCargoOfferInput{Origin: &origin, WeightKg: &weight})
	assertKind(t, err, KindConflict)

	reloaded := f.reloadOffer(t, offer.ID)
	if reloaded.Status != constants.CargoStatusMatched {
		t.Fatalf("assignment must survive a stale update, got %s", reloaded.Status)
	}
	if reloaded.Origin != "Santiago" || reloaded.WeightKg != 500 {
		t.Fatalf("stale update must not be written, got %+v", reloaded)
	}
	if types := f.emitter.auditTypes(); len(types) != 0 {
		t.Fatalf("rejected update must not be audited, got %v", types)
	}

	_, err = f.matching().Assign(ctx, actorOf(admin), AssignInput{CargoID: offer.ID, VehicleID: vehicle.ID})
	assertKind(t, err, KindConflict)
	if n := f.countShipments(t, "cargo_id", offer.ID); n != 1 {
		t.Fatalf("offer should have a single shipment, got %d", n)
	}
}
