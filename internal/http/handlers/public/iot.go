package public

import (
	"strconv"

	handlershared "github.com/smartcargo-next/internal/http/handlers/shared"
	"github.com/smartcargo-next/internal/http/response"
	"github.com/smartcargo-next/internal/service"

	"github.com/gin-gonic/gin"
)

// SensorReadingRequest 传感器读数请求
type SensorReadingRequest struct {
	ShipmentID  uint     `json:"shipment_id" binding:"required"`
	SensorType  string   `json:"sensor_type" binding:"required"`
	Value       *float64 `json:"value" binding:"required"`
	Unit        string   `json:"unit"`
	Latitude    *float64 `json:"latitude" binding:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" binding:"omitempty,gte=-180,lte=180"`
	DeviceID    string   `json:"device_id"`
	IsSimulated bool     `json:"is_simulated"`
	Timestamp   string   `json:"timestamp"`
}

// BatchReadingsRequest 批量读数请求
type BatchReadingsRequest struct {
	Readings []SensorReadingRequest `json:"readings" binding:"required,min=1,max=500,dive"`
}

func (r SensorReadingRequest) toInput() (service.ReadingInput, bool) {
	ts, ok := handlershared.ParseTime(r.Timestamp)
	if !ok {
		return service.ReadingInput{}, false
	}
	return service.ReadingInput{
		ShipmentID:  r.ShipmentID,
		SensorType:  r.SensorType,
		Value:       *r.Value,
		Unit:        r.Unit,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		DeviceID:    r.DeviceID,
		IsSimulated: r.IsSimulated,
		Timestamp:   ts,
	}, true
}

// RecordReading 上报单条读数
func (h *Handler) RecordReading(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req SensorReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	input, ok := req.toInput()
	if !ok {
		respondError(c, response.CodeBadRequest, "Invalid timestamp", nil)
		return
	}
	reading, err := h.TelemetryService.RecordReading(c.Request.Context(), actor, input)
	if err != nil {
		respondServiceError(c, err, "Failed to record reading")
		return
	}
	response.Created(c, reading)
}

// RecordBatch 批量上报读数
// 部分失败时按错误分类返回，data.recorded 为已提交的读数。
func (h *Handler) RecordBatch(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req BatchReadingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "Invalid request body", err)
		return
	}
	inputs := make([]service.ReadingInput, 0, len(req.Readings))
	for _, item := range req.Readings {
		input, ok := item.toInput()
		if !ok {
			respondError(c, response.CodeBadRequest, "Invalid timestamp", nil)
			return
		}
		inputs = append(inputs, input)
	}
	readings, err := h.TelemetryService.RecordBatch(c.Request.Context(), actor, inputs)
	if err != nil {
		if len(readings) > 0 {
			handlershared.RespondPartial(c, err, "Failed to record readings", gin.H{"recorded": readings})
			return
		}
		respondServiceError(c, err, "Failed to record readings")
		return
	}
	response.Created(c, readings)
}

// ListReadings 运单读数列表
func (h *Handler) ListReadings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseID(c, "shipment_id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	readings, err := h.TelemetryService.ListReadings(actor, shipmentID, limit)
	if err != nil {
		respondServiceError(c, err, "Failed to list readings")
		return
	}
	response.Success(c, readings)
}

// LatestReadings 每类传感器最新读数
func (h *Handler) LatestReadings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseID(c, "shipment_id")
	if !ok {
		return
	}
	latest, err := h.TelemetryService.LatestByType(actor, shipmentID)
	if err != nil {
		respondServiceError(c, err, "Failed to load latest readings")
		return
	}
	response.Success(c, latest)
}

// SimulateReadings 生成模拟读数
func (h *Handler) SimulateReadings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	shipmentID, ok := parseID(c, "shipment_id")
	if !ok {
		return
	}
	readings, err := h.TelemetryService.Simulate(c.Request.Context(), actor, shipmentID)
	if err != nil {
		respondServiceError(c, err, "Failed to simulate readings")
		return
	}
	response.Created(c, readings)
}
