package constants

// 用户角色常量
const (
	RoleAdmin   = "Admin"
	RoleShipper = "Shipper"
	RoleCarrier = "Carrier"
)

// 用户状态常量
const (
	UserStatusActive          = "ACTIVE"
	UserStatusPendingApproval = "PENDING_APPROVAL"
	UserStatusInactive        = "INACTIVE"
)

// 货源状态常量
const (
	CargoStatusPending       = "PENDING"
	CargoStatusMatched       = "MATCHED"
	CargoStatusConsolidating = "CONSOLIDATING"
	CargoStatusInTransit     = "IN_TRANSIT"
	CargoStatusDelivered     = "DELIVERED"
)

// 车辆类型常量
const (
	VehicleTypeTruckLTL          = "TRUCK_LTL"
	VehicleTypeTruckFTL          = "TRUCK_FTL"
	VehicleTypeVan               = "VAN"
	VehicleTypeRefrigeratedTruck = "REFRIGERATED_TRUCK"
)

// 车辆可用状态常量
const (
	VehicleAvailable   = "AVAILABLE"
	VehicleOnTrip      = "ON_TRIP"
	VehicleMaintenance = "MAINTENANCE"
)

// 运单状态常量
const (
	ShipmentStatusInTransit     = "IN_TRANSIT"
	ShipmentStatusDelayed       = "DELAYED"
	ShipmentStatusDelivered     = "DELIVERED"
	ShipmentStatusIssueReported = "ISSUE_REPORTED"
)

// 传感器类型常量
const (
	SensorTemperature = "TEMPERATURE"
	SensorHumidity    = "HUMIDITY"
	SensorLocation    = "LOCATION"
	SensorVibration   = "VIBRATION"
	SensorDoorStatus  = "DOOR_STATUS"
)

// 振动等级
const (
	VibrationLow    = "Low"
	VibrationMedium = "Medium"
	VibrationHigh   = "High"
)

// 告警级别常量
const (
	AlertSeverityInfo     = "INFO"
	AlertSeverityWarning  = "WARNING"
	AlertSeverityCritical = "CRITICAL"
)

// 审计事件类型常量
const (
	EventUserRegistered        = "USER_REGISTERED"
	EventUserUpdated           = "USER_UPDATED"
	EventUserDeleted           = "USER_DELETED"
	EventCargoOfferCreated     = "CARGO_OFFER_CREATED"
	EventCargoOfferUpdated     = "CARGO_OFFER_UPDATED"
	EventCargoOfferDeleted     = "CARGO_OFFER_DELETED"
	EventVehicleRegistered     = "VEHICLE_REGISTERED"
	EventVehicleUpdated        = "VEHICLE_UPDATED"
	EventVehicleDeleted        = "VEHICLE_DELETED"
	EventCargoAssigned         = "CARGO_ASSIGNED"
	EventShipmentCreated       = "SHIPMENT_CREATED"
	EventShipmentStatusChanged = "SHIPMENT_STATUS_CHANGED"
	EventShipmentReopened      = "SHIPMENT_REOPENED"
	EventShipmentDeleted       = "SHIPMENT_DELETED"
)

// 易腐货物关键字（小写匹配）
const PerishableKeyword = "perecedero"

// 队列常量
const (
	QueueDefault       = "default"
	QueueCritical      = "critical"
	TaskAlertEmit      = "alert:emit"
	TaskAuditAppend    = "audit:append"
	RedisPrefixDefault = "sc"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)
