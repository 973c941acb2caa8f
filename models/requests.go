package models

// RegisterRequest is the sign-up payload.
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// ChangePasswordRequest replaces the signed-in user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ProfileRequest replaces the signed-in user's profile details.
type ProfileRequest struct {
	FirstName  string `json:"firstName" validate:"max=60"`
	LastName   string `json:"lastName" validate:"max=60"`
	Phone      string `json:"phone" validate:"max=30"`
	Department string `json:"department" validate:"max=60"`
	Position   string `json:"position" validate:"max=60"`
	EmployeeID string `json:"employeeId" validate:"max=30"`
}

// OrderRequest carries the editable fields of a service order.
type OrderRequest struct {
	OrderNumber        string `json:"orderNumber" validate:"required,max=40"`
	Status             string `json:"status"`
	Priority           string `json:"priority"`
	ServiceType        string `json:"serviceType" validate:"required"`
	Equipment          string `json:"equipment" validate:"required"`
	EquipmentID        string `json:"equipmentId"`
	Location           string `json:"location"`
	Sector             string `json:"sector"`
	Technician         string `json:"technician"`
	Requester          string `json:"requester"`
	ServiceDate        string `json:"serviceDate" validate:"omitempty,datetime=2006-01-02"`
	ProblemDescription string `json:"problemDescription" validate:"required"`
	Observations       string `json:"observations"`
	TaskID             string `json:"taskId"`
}

// UpdateOrderRequest edits an existing order. The order number is fixed
// once the order exists.
type UpdateOrderRequest struct {
	ID string `json:"id" validate:"required"`
	OrderRequest
}

// OrderStatusRequest moves an order to another status.
type OrderStatusRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

// TaskRequest creates a preventive task.
type TaskRequest struct {
	Name        string `json:"name" validate:"required"`
	Equipment   string `json:"equipment" validate:"required"`
	Frequency   string `json:"frequency" validate:"required"`
	NextDate    string `json:"nextDate" validate:"required,datetime=2006-01-02"`
	Description string `json:"description"`
}

// IDRequest names one record.
type IDRequest struct {
	ID string `json:"id" validate:"required"`
}

// EquipmentRequest creates (empty ID) or replaces an equipment record.
type EquipmentRequest struct {
	ID              string `json:"id"`
	Name            string `json:"name" validate:"required"`
	Model           string `json:"model"`
	Serial          string `json:"serial"`
	Status          string `json:"status"`
	Location        string `json:"location"`
	Sector          string `json:"sector"`
	LastMaintenance string `json:"lastMaintenance" validate:"omitempty,datetime=2006-01-02"`
	NextMaintenance string `json:"nextMaintenance" validate:"omitempty,datetime=2006-01-02"`
	Notes           string `json:"notes"`
}

// RoleRequest changes a user's role.
type RoleRequest struct {
	UserID string   `json:"userId" validate:"required"`
	Role   UserRole `json:"role" validate:"required,oneof=ADMIN MANAGER TECHNICIAN"`
}
