package service

import (
	"context"
	"testing"

	"github.com/smartcargo-next/internal/constants"
	"github.com/smartcargo-next/internal/models"
	"github.com/smartcargo-next/internal/repository"
)

type shipmentScenario struct {
	f        *serviceFixture
	admin    *models.User
	shipper  *models.User
	carrier  *models.User
	offer    *models.CargoOffer
	vehicle  *models.Vehicle
	shipment *models.Shipment
}

func setupAssignedShipment(t *testing.T) *shipmentScenario {
	t.Helper()
	f := setupServiceTest(t)
	s := &shipmentScenario{f: f}
	s.admin = f.createUser(t, "admin", constants.RoleAdmin)
	s.shipper = f.createUser(t, "shipper", constants.RoleShipper)
	s.carrier = f.createUser(t, "carrier", constants.RoleCarrier)
	s.offer = f.createOffer(t, s.shipper.ID, "Electronics", 500, 2.5)
	s.vehicle = f.createVehicle(t, s.carrier.ID, constants.VehicleTypeTruckFTL, 25000, 80)
	shipment, err := f.matching().Assign(context.Background(), actorOf(s.admin), AssignInput{CargoID: s.offer.ID, VehicleID: s.vehicle.ID})
	if err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	s.shipment = shipment
	f.emitter.alerts = nil
	f.emitter.audits = nil
	return s
}

func statusPtr(v string) *string {
	return &v
}

func TestShipmentDeliveredIsTerminal(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.f.shipmentService()
	ctx := context.Background()

	updated, err := svc.Update(ctx, actorOf(s.carrier), s.shipment.ID, UpdateShipmentInput{Status: statusPtr(constants.ShipmentStatusDelivered)})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if updated.DeliveredAt == nil {
		t.Fatalf("delivered_at should be set")
	}
	if got := s.f.reloadOffer(t, s.offer.ID).Status; got != constants.CargoStatusDelivered {
		t.Fatalf("expected offer DELIVERED, got %s", got)
	}
	if got := s.f.reloadVehicle(t, s.vehicle.ID).Availability; got != constants.VehicleAvailable {
		t.Fatalf("expected vehicle released, got %s", got)
	}

	_, err = svc.Update(ctx, actorOf(s.admin), s.shipment.ID, UpdateShipmentInput{Status: statusPtr(constants.ShipmentStatusInTransit)})
	assertKind(t, err, KindConflict)

	_, err = svc.Reopen(ctx, actorOf(s.shipper), s.shipment.ID)
	assertKind(t, err, KindForbidden)

	reopened, err := svc.Reopen(ctx, actorOf(s.admin), s.shipment.ID)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if reopened.Status != constants.ShipmentStatusInTransit || reopened.DeliveredAt != nil {
		t.Fatalf("unexpected reopened shipment: %+v", reopened)
	}
	if got := s.f.reloadVehicle(t, s.vehicle.ID).Availability; got != constants.VehicleOnTrip {
		t.Fatalf("expected vehicle back on trip, got %s", got)
	}

	_, err = svc.Reopen(ctx, actorOf(s.admin), s.shipment.ID)
	assertKind(t, err, KindConflict)

	types := s.f.emitter.auditTypes()
	if len(types) != 2 || types[0] != constants.EventShipmentStatusChanged || types[1] != constants.EventShipmentReopened {
		t.Fatalf("unexpected audit trail: %v", types)
	}
}

func TestShipmentStatusChangeAlertSeverity(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.f.shipmentService()
	ctx := context.Background()

	if _, err := svc.Update(ctx, actorOf(s.shipper), s.shipment.ID, UpdateShipmentInput{Status: statusPtr(constants.ShipmentStatusDelayed)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := svc.Update(ctx, actorOf(s.shipper), s.shipment.ID, UpdateShipmentInput{Status: statusPtr(constants.ShipmentStatusIssueReported)}); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if len(s.f.emitter.alertsWithSeverity(constants.AlertSeverityWarning)) != 1 {
		t.Fatalf("expected one WARNING alert for DELAYED")
	}
	critical := s.f.emitter.alertsWithSeverity(constants.AlertSeverityCritical)
	if len(critical) != 1 || critical[0].RecipientID != s.shipper.ID {
		t.Fatalf("expected one CRITICAL alert to shipper, got %+v", critical)
	}

	_, err := svc.Update(ctx, actorOf(s.shipper), s.shipment.ID, UpdateShipmentInput{Status: statusPtr("LOST")})
	assertKind(t, err, KindValidation)
}

func TestShipmentAccessControl(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.f.shipmentService()
	stranger := s.f.createUser(t, "stranger", constants.RoleShipper)

	_, err := svc.Get(actorOf(stranger), s.shipment.ID)
	assertKind(t, err, KindForbidden)

	_, err = svc.GetRealtimeData(context.Background(), actorOf(stranger), s.shipment.ID)
	assertKind(t, err, KindForbidden)

	_, err = svc.GetRealtimeData(context.Background(), actorOf(s.admin), 9999)
	assertKind(t, err, KindNotFound)

	view, err := svc.GetRealtimeData(context.Background(), actorOf(s.carrier), s.shipment.ID)
	if err != nil {
		t.Fatalf("realtime failed: %v", err)
	}
	if view.ID != s.shipment.ID || view.Status != constants.ShipmentStatusInTransit {
		t.Fatalf("unexpected realtime view: %+v", view)
	}

	rows, total, err := svc.List(actorOf(stranger), repository.ShipmentListFilter{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Fatalf("stranger should see no shipments, got %d", total)
	}
}

func TestShipmentDeleteReleasesVehicle(t *testing.T) {
	s := setupAssignedShipment(t)
	svc := s.f.shipmentService()

	err := svc.Delete(context.Background(), actorOf(s.shipper), s.shipment.ID)
	assertKind(t, err, KindForbidden)

	if err := svc.Delete(context.Background(), actorOf(s.admin), s.shipment.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := s.f.reloadVehicle(t, s.vehicle.ID).Availability; got != constants.VehicleAvailable {
		t.Fatalf("expected vehicle AVAILABLE, got %s", got)
	}
	if got := s.f.reloadOffer(t, s.offer.ID).Status; got != constants.CargoStatusPending {
		t.Fatalf("expected offer PENDING, got %s", got)
	}
}
