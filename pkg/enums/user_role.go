package enums

import "fmt"

// UserRole decides which operations an authenticated user may perform.
type UserRole string

const (
	UserRoleRetailer        UserRole = "retailer"
	UserRoleFarmOwner       UserRole = "farm_owner"
	UserRoleDriver          UserRole = "driver"
	UserRoleShippingManager UserRole = "shipping_manager"
	UserRoleAdmin           UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleRetailer,
	UserRoleFarmOwner,
	UserRoleDriver,
	UserRoleShippingManager,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known UserRole.
func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// OneOf reports whether the role matches any of the given roles.
func (r UserRole) OneOf(roles ...UserRole) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
