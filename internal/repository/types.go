package repository

// UserListFilter 用户列表过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
	Status   string
}

// CargoOfferListFilter 货源列表过滤条件
type CargoOfferListFilter struct {
	Page        int
	PageSize    int
	ShipperID   uint
	Status      string
	Origin      string
	Destination string
}

// VehicleListFilter 车辆列表过滤条件
type VehicleListFilter struct {
	Page         int
	PageSize     int
	CarrierID    uint
	Availability string
	Type         string
}

// ShipmentListFilter 运单列表过滤条件
// PartyUserID 非零时仅返回该用户作为货主或承运商参与的运单
type ShipmentListFilter struct {
	Page        int
	PageSize    int
	PartyUserID uint
	Status      string
	VehicleID   uint
}

// AlertListFilter 告警列表过滤条件
type AlertListFilter struct {
	Page              int
	PageSize          int
	RecipientID       uint
	RelatedShipmentID uint
	UnreadOnly        bool
}

// AuditEventListFilter 审计事件过滤条件
type AuditEventListFilter struct {
	Page            int
	PageSize        int
	EventType       string
	RelatedEntityID uint
	ActorID         uint
}
