package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/smartcargo-next/internal/models"
)

// ShipmentRealtime 运单实时视图缓存，附带参与方 ID 供鉴权
type ShipmentRealtime struct {
	ID              uint                `json:"id"`
	RealTimeData    models.RealTimeData `json:"realTimeData"`
	CurrentLocation string              `json:"currentLocation"`
	Status          string              `json:"status"`
	ShipperID       uint                `json:"shipperId"`
	CarrierID       uint                `json:"carrierId"`
}

func shipmentRealtimeKey(shipmentID uint) string {
	return fmt.Sprintf("shipment:realtime:%d", shipmentID)
}

// GetShipmentRealtime 读取运单实时视图
func GetShipmentRealtime(ctx context.Context, shipmentID uint) (*ShipmentRealtime, bool, error) {
	if shipmentID == 0 {
		return nil, false, nil
	}
	var view ShipmentRealtime
	hit, err := GetJSON(ctx, shipmentRealtimeKey(shipmentID), &view)
	if err != nil || !hit {
		return nil, hit, err
	}
	return &view, true, nil
}

// SetShipmentRealtime 写入运单实时视图
func SetShipmentRealtime(ctx context.Context, view *ShipmentRealtime, ttl time.Duration) error {
	if view == nil || view.ID == 0 || ttl <= 0 {
		return nil
	}
	return SetJSON(ctx, shipmentRealtimeKey(view.ID), view, ttl)
}

// InvalidateShipmentRealtime 运单写入后失效缓存
func InvalidateShipmentRealtime(ctx context.Context, shipmentID uint) error {
	if shipmentID == 0 {
		return nil
	}
	return Del(ctx, shipmentRealtimeKey(shipmentID))
}
