package service

import "errors"

// ErrorKind 业务错误分类，决定 HTTP 层的状态码
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
)

// Error 带分类的业务错误，Message 直接返回给调用方
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf 返回错误分类，非业务错误返回 0
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	var policyErr passwordPolicyError
	if errors.As(err, &policyErr) {
		return KindValidation
	}
	return 0
}

// 校验错误
var (
	ErrInvalidUsername       = newError(KindValidation, "Username must be at least 3 characters")
	ErrInvalidEmail          = newError(KindValidation, "Invalid email address")
	ErrWeakPassword          = newError(KindValidation, "Password does not meet the policy")
	ErrInvalidRole           = newError(KindValidation, "Role must be Shipper or Carrier")
	ErrInvalidUserStatus     = newError(KindValidation, "Invalid user status")
	ErrInvalidWeight         = newError(KindValidation, "Weight must be greater than 0")
	ErrInvalidVolume         = newError(KindValidation, "Volume must be greater than 0")
	ErrInvalidDateRange      = newError(KindValidation, "Delivery date must not be before pickup date")
	ErrRequiredField         = newError(KindValidation, "Required field is missing")
	ErrInvalidCargoStatus    = newError(KindValidation, "Invalid cargo offer status")
	ErrInvalidVehicleType    = newError(KindValidation, "Invalid vehicle type")
	ErrInvalidAvailability   = newError(KindValidation, "Invalid vehicle availability")
	ErrInvalidCapacity       = newError(KindValidation, "Capacity must be greater than 0")
	ErrInvalidShipmentStatus = newError(KindValidation, "Invalid shipment status")
	ErrInvalidSensorType     = newError(KindValidation, "Invalid sensor type")
	ErrInvalidSeverity       = newError(KindValidation, "Invalid alert severity")
	ErrVehicleIncompatible   = newError(KindValidation, "Vehicle is not compatible with cargo offer")
	ErrEmptyBatch            = newError(KindValidation, "Readings batch is empty")
)

// 资源不存在
var (
	ErrNotFound           = newError(KindNotFound, "Resource not found")
	ErrUserNotFound       = newError(KindNotFound, "User not found")
	ErrCargoOfferNotFound = newError(KindNotFound, "Cargo offer not found")
	ErrVehicleNotFound    = newError(KindNotFound, "Vehicle not found")
	ErrShipmentNotFound   = newError(KindNotFound, "Shipment not found")
	ErrAlertNotFound      = newError(KindNotFound, "Alert not found")
)

// 状态冲突
var (
	ErrUsernameExists       = newError(KindConflict, "Username already exists")
	ErrEmailExists          = newError(KindConflict, "Email already exists")
	ErrCargoNotPending      = newError(KindConflict, "Cargo offer is not pending")
	ErrVehicleNotAvailable  = newError(KindConflict, "Vehicle is not available")
	ErrShipmentDelivered    = newError(KindConflict, "Shipment already delivered")
	ErrShipmentNotDelivered = newError(KindConflict, "Only delivered shipments can be reopened")
	ErrCargoOfferInUse      = newError(KindConflict, "Cargo offer has an active shipment")
	ErrVehicleInUse         = newError(KindConflict, "Vehicle is on a trip")
	ErrCargoStatusManaged   = newError(KindConflict, "Cargo offer status is managed by matching and shipment lifecycle")
	ErrConcurrentUpdate     = newError(KindConflict, "Resource was modified concurrently, please retry")
)

// 认证与授权
var (
	ErrUnauthenticated        = newError(KindUnauthorized, "Authentication required")
	ErrInvalidCredentials     = newError(KindUnauthorized, "Invalid credentials")
	ErrInvalidToken           = newError(KindUnauthorized, "Invalid or expired token")
	ErrForbidden              = newError(KindForbidden, "Access denied")
	ErrAccountPendingApproval = newError(KindForbidden, "Account pending approval")
	ErrAccountInactive        = newError(KindForbidden, "Account is inactive")
)
