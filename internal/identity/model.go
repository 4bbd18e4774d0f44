package identity

import "time"

// Roles a user can hold. Staff accounts are provisioned out of band.
const (
	RoleCustomer = "customer"
	RoleMerchant = "merchant"
	RoleDriver   = "driver"
	RoleStaff    = "staff"
)

// User is the persistent record behind a phone number.
type User struct {
	ID        string
	Phone     string
	Role      string
	CreatedAt time.Time
	LastLogin *time.Time
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleMerchant, RoleDriver, RoleStaff:
		return true
	default:
		return false
	}
}

// SelfServiceRole reports whether a user may pick role when signing up by
// phone.
func SelfServiceRole(role string) bool {
	return role != RoleStaff && ValidRole(role)
}
