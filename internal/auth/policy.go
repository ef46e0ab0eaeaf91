package auth

// Role is a closed enum. Role strings are compared nowhere outside this file;
// handlers check capabilities instead.
type Role string

const (
	RoleStudent    Role = "student"
	RoleOrganizer  Role = "organizer"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleOrganizer, RoleAdmin, RoleSuperAdmin:
		return Role(s), true
	}
	return "", false
}

type Capability int

const (
	CapUseWallet Capability = iota
	CapRequestSettlement
	CapManageEvents
	CapReviewRequests
	CapViewTreasury
	CapViewAudit
	CapManageUsers
	CapManageConfig
)

var capabilities = map[Role]map[Capability]bool{
	RoleStudent: {
		CapUseWallet: true,
	},
	RoleOrganizer: {
		CapUseWallet:         true,
		CapRequestSettlement: true,
	},
	RoleAdmin: {
		CapUseWallet:         true,
		CapRequestSettlement: true,
		CapManageEvents:      true,
		CapReviewRequests:    true,
		CapViewTreasury:      true,
		CapViewAudit:         true,
		CapManageUsers:       true,
	},
	RoleSuperAdmin: {
		CapUseWallet:         true,
		CapRequestSettlement: true,
		CapManageEvents:      true,
		CapReviewRequests:    true,
		CapViewTreasury:      true,
		CapViewAudit:         true,
		CapManageUsers:       true,
		CapManageConfig:      true,
	},
}

// Allowed reports whether the role holds the capability.
func Allowed(role Role, cap Capability) bool {
	return capabilities[role][cap]
}
