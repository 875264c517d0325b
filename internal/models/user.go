package models

import (
	"fmt"
	"strings"
)

// Role is one of the three participant kinds of the provenance network.
type Role string

const (
	RoleManufacturer Role = "Manufacturer"
	RoleSeller       Role = "Seller"
	RoleCustomer     Role = "Customer"
)

// Roles lists every role in display order.
var Roles = []Role{RoleManufacturer, RoleSeller, RoleCustomer}

func (r Role) Valid() bool {
	switch r {
	case RoleManufacturer, RoleSeller, RoleCustomer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole accepts a role name in any letter case.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type Identity struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (%s)", i.Username, i.Role)
}

// ProfileFields are the role-specific registration fields, keyed by their wire name.
var ProfileFields = map[Role][]Field{
	RoleManufacturer: {
		{Key: "companyName", Label: "Company Name"},
		{Key: "licenseNumber", Label: "License Number"},
		{Key: "manager", Label: "Manager"},
		{Key: "brand", Label: "Brand"},
		{Key: "phone", Label: "Phone"},
		{Key: "address", Label: "Address"},
	},
	RoleSeller: {
		{Key: "companyName", Label: "Company Name"},
		{Key: "phone", Label: "Phone"},
		{Key: "manager", Label: "Manager"},
		{Key: "brand", Label: "Brand"},
		{Key: "address", Label: "Address"},
	},
	RoleCustomer: {
		{Key: "fullName", Label: "Full Name"},
		{Key: "phone", Label: "Phone"},
		{Key: "address", Label: "Address"},
	},
}

// Field names one input of a form.
type Field struct {
	Key   string
	Label string
}
