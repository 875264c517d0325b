package auth

import (
	"context"
	"strings"

	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

// Registration is the self-registration form.
type Registration struct {
	Username        string
	Password        string
	ConfirmPassword string
	// Fields holds the role's profile fields keyed by wire name.
	Fields map[string]string
}

// RegisterSelf creates a Manufacturer or Customer account and establishes
// a session for it. Seller self-registration is refused before any
// network call.
func (m *Manager) RegisterSelf(ctx context.Context, role models.Role, form Registration) (models.Identity, error) {
	if role == models.RoleSeller {
		return models.Identity{}, &utils.AuthError{Message: "You can't register as a Seller.", Err: ErrSellerSelfRegistration}
	}
	if role != models.RoleManufacturer && role != models.RoleCustomer {
		return models.Identity{}, utils.Validation("role", "Registration for role %q is not supported.", role)
	}
	request, err := validateRegistration(role, form)
	if err != nil {
		return models.Identity{}, err
	}

	result, err := m.ledger.RegisterUser(ctx, request)
	if err != nil {
		return models.Identity{}, authFailure(err, registerFailedMessage)
	}
	if result.Identity.Role != role || result.Identity.Username != request.Username {
		m.logger.Warn("registration confirmed a different identity",
			"requested", models.Identity{Username: request.Username, Role: role}, "confirmed", result.Identity)
		return models.Identity{}, &utils.AuthError{Message: registerFailedMessage, Err: ErrRoleMismatch}
	}
	m.establish(result)
	return result.Identity, nil
}

func validateRegistration(role models.Role, form Registration) (ledger.RegisterUserRequest, error) {
	username := strings.TrimSpace(form.Username)
	if username == "" || form.Password == "" {
		return ledger.RegisterUserRequest{}, utils.Validation("", "Username and Password are required.")
	}
	if form.Password != form.ConfirmPassword {
		return ledger.RegisterUserRequest{}, utils.Validation("confirmPassword", "Confirm Password is not the same as the Password.")
	}
	fields, err := RequireFields(models.ProfileFields[role], form.Fields)
	if err != nil {
		return ledger.RegisterUserRequest{}, err
	}
	return ledger.RegisterUserRequest{Username: username, Password: form.Password, Role: role, Fields: fields}, nil
}

// RequireFields trims every declared field and fails on the first empty
// one. Undeclared keys are dropped.
func RequireFields(declared []models.Field, values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(declared))
	for _, f := range declared {
		v := strings.TrimSpace(values[f.Key])
		if v == "" {
			return nil, utils.Validation(f.Key, "%s is required.", f.Label)
		}
		out[f.Key] = v
	}
	return out, nil
}
