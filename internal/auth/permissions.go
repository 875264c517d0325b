package auth

import "github.com/Naveen474/fake-product-detection/internal/models"

// Action is a user-facing operation subject to the permission table.
type Action string

const (
	ActionRegisterProduct Action = "registerProduct"
	ActionAddSeller       Action = "addSeller"
	ActionSellProduct     Action = "sellProduct"
	ActionVerifyProduct   Action = "verifyProduct"
)

type rule struct {
	// public actions need no session at all.
	public bool
	roles  []models.Role
	// verb completes "Please log in to ..." and "Only ... can ...".
	verb string
}

var permissions = map[Action]rule{
	ActionRegisterProduct: {roles: []models.Role{models.RoleManufacturer}, verb: "register products"},
	ActionAddSeller:       {roles: []models.Role{models.RoleManufacturer}, verb: "add sellers"},
	ActionSellProduct:     {roles: []models.Role{models.RoleManufacturer, models.RoleSeller}, verb: "sell products"},
	ActionVerifyProduct:   {public: true, verb: "verify products"},
}

// GatedActions lists the actions that need a role, in menu order.
var GatedActions = []Action{ActionRegisterProduct, ActionSellProduct, ActionAddSeller}

// Allowed reports whether role may perform action. Unknown actions are
// never allowed.
func Allowed(role models.Role, action Action) bool {
	r, ok := permissions[action]
	if !ok {
		return false
	}
	if r.public {
		return true
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return true
		}
	}
	return false
}
