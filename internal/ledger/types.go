package ledger

import (
	"net/http"

	"github.com/Naveen474/fake-product-detection/internal/models"
)

// Credential is the cookie set echoed on authenticated calls.
type Credential []*http.Cookie

// Cookie returns the value of the named cookie, or "".
func (c Credential) Cookie(name string) string {
	for _, cookie := range c {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

// AuthResult is the outcome of a successful login or self-registration.
type AuthResult struct {
	Identity   models.Identity
	Credential Credential
}

type RegisterUserRequest struct {
	Username string
	Password string
	Role     models.Role
	// Fields holds the role-specific profile fields keyed by wire name.
	Fields map[string]string
}

type AddSellerRequest struct {
	Username string
	Password string
	Fields   map[string]string
	// Manufacturer is the username of the acting manufacturer.
	Manufacturer string
}

type TransferRequest struct {
	ProductID  string `json:"productId"`
	ToUsername string `json:"toUsername"`
	ToUserType string `json:"toUserType"`
}

// VerifyResponse is the body of a verify call.
type VerifyResponse struct {
	Valid        bool   `json:"valid"`
	ProductID    string `json:"productId"`
	Manufacturer string `json:"manufacturer"`
	CurrentOwner string `json:"currentOwner"`
	Message      string `json:"message"`
}

type authResponse struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
