package enums

// UserRole is the coarse role carried in access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleSeller   UserRole = "seller"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleSeller,
	UserRoleAdmin,
}

func (u UserRole) String() string { return string(u) }

func (u UserRole) IsValid() bool { return oneOf(u, validUserRoles) }

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles)
}
