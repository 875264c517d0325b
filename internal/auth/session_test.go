package auth_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/ledger/ledgertest"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

func newManager(t *testing.T) (*auth.Manager, *ledgertest.Server) {
	t.Helper()
	stub := ledgertest.New()
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)
	client, err := ledger.NewClient(ledger.ClientConfig{BaseURL: server.URL + "/api", Timeout: 5 * time.Second, Logger: utils.Discard()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return auth.NewManager(client, utils.Discard()), stub
}

func customerForm() auth.Registration {
	return auth.Registration{
		Username:        "carol",
		Password:        "secret",
		ConfirmPassword: "secret",
		Fields:          map[string]string{"fullName": "Carol C", "phone": "555", "address": "1 Road"},
	}
}

func TestSellerSelfRegistrationRejectedLocally(t *testing.T) {
	manager, stub := newManager(t)
	form := customerForm()
	form.Fields = map[string]string{"companyName": "S", "phone": "1", "manager": "m", "brand": "b", "address": "a"}

	_, err := manager.RegisterSelf(context.Background(), models.RoleSeller, form)
	var authErr *utils.AuthError
	if !errors.As(err, &authErr) || !errors.Is(err, auth.ErrSellerSelfRegistration) {
		t.Fatalf("expected seller self-registration AuthError, got %v", err)
	}
	if manager.Authenticated() {
		t.Fatal("no session should be established")
	}
	if reqs := stub.Requests(); len(reqs) != 0 {
		t.Fatalf("expected no ledger requests, got %v", reqs)
	}
}

func TestRegisterSelfValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*auth.Registration)
		field  string
	}{
		{"missing username", func(r *auth.Registration) { r.Username = "  " }, ""},
		{"missing password", func(r *auth.Registration) { r.Password, r.ConfirmPassword = "", "" }, ""},
		{"confirm mismatch", func(r *auth.Registration) { r.ConfirmPassword = "other" }, "confirmPassword"},
		{"missing field", func(r *auth.Registration) { r.Fields["phone"] = " " }, "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manager, stub := newManager(t)
			form := customerForm()
			tt.mutate(&form)
			_, err := manager.RegisterSelf(context.Background(), models.RoleCustomer, form)
			var valErr *utils.ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if valErr.Field != tt.field {
				t.Fatalf("field = %q, want %q", valErr.Field, tt.field)
			}
			if len(stub.Requests()) != 0 {
				t.Fatalf("validation failures must not reach the ledger: %v", stub.Requests())
			}
		})
	}
}

func TestRegisterSelfEstablishesSession(t *testing.T) {
	manager, stub := newManager(t)
	identity, err := manager.RegisterSelf(context.Background(), models.RoleCustomer, customerForm())
	if err != nil {
		t.Fatalf("RegisterSelf: %v", err)
	}
	if identity != (models.Identity{Username: "carol", Role: models.RoleCustomer}) {
		t.Fatalf("identity = %+v", identity)
	}
	if !stub.HasUser("carol", models.RoleCustomer) {
		t.Fatal("ledger should know the new customer")
	}
	if manager.Credential().Cookie(ledger.CookieUsername) != "carol" {
		t.Fatalf("credential = %v", manager.Credential())
	}
}

func TestRegisterSelfDuplicateKeepsBackendMessage(t *testing.T) {
	manager, stub := newManager(t)
	if err := stub.AddUser("carol", "x", models.RoleCustomer); err != nil {
		t.Fatal(err)
	}
	_, err := manager.RegisterSelf(context.Background(), models.RoleCustomer, customerForm())
	var authErr *utils.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Message == "" || authErr.Message == "Registration failed due to an unknown error." {
		t.Fatalf("expected backend reason, got %q", authErr.Message)
	}
}

func TestLoginFailureKeepsPreviousSession(t *testing.T) {
	manager, stub := newManager(t)
	if err := stub.AddUser("maker", "pw", models.RoleManufacturer); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := manager.Login(ctx, "maker", "pw", models.RoleManufacturer); err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err := manager.Login(ctx, "maker", "wrong", models.RoleManufacturer)
	var authErr *utils.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	identity, ok := manager.Current()
	if !ok || identity.Username != "maker" {
		t.Fatalf("previous session lost: %+v %v", identity, ok)
	}
}

func TestLoginValidation(t *testing.T) {
	manager, stub := newManager(t)
	_, err := manager.Login(context.Background(), "", "pw", models.RoleCustomer)
	var valErr *utils.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(stub.Requests()) != 0 {
		t.Fatalf("unexpected requests: %v", stub.Requests())
	}
}

type fixedLedger struct {
	result *ledger.AuthResult
	err    error
}

func (f fixedLedger) Login(context.Context, string, string, models.Role) (*ledger.AuthResult, error) {
	return f.result, f.err
}

func (f fixedLedger) RegisterUser(context.Context, ledger.RegisterUserRequest) (*ledger.AuthResult, error) {
	return f.result, f.err
}

func TestLoginRoleMismatch(t *testing.T) {
	l := fixedLedger{result: &ledger.AuthResult{Identity: models.Identity{Username: "bob", Role: models.RoleCustomer}}}
	manager := auth.NewManager(l, utils.Discard())
	_, err := manager.Login(context.Background(), "bob", "pw", models.RoleSeller)
	if !errors.Is(err, auth.ErrRoleMismatch) {
		t.Fatalf("expected role mismatch, got %v", err)
	}
	if manager.Authenticated() {
		t.Fatal("mismatched login must not create a session")
	}
}

func TestLoginNetworkErrorPassesThrough(t *testing.T) {
	l := fixedLedger{err: &utils.NetworkError{Op: "login", Err: context.DeadlineExceeded}}
	manager := auth.NewManager(l, utils.Discard())
	_, err := manager.Login(context.Background(), "bob", "pw", models.RoleSeller)
	var netErr *utils.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestPermissionTable(t *testing.T) {
	tests := []struct {
		role    models.Role
		allowed []auth.Action
		denied  []auth.Action
	}{
		{models.RoleManufacturer, []auth.Action{auth.ActionRegisterProduct, auth.ActionAddSeller, auth.ActionSellProduct, auth.ActionVerifyProduct}, nil},
		{models.RoleSeller, []auth.Action{auth.ActionSellProduct, auth.ActionVerifyProduct}, []auth.Action{auth.ActionRegisterProduct, auth.ActionAddSeller}},
		{models.RoleCustomer, []auth.Action{auth.ActionVerifyProduct}, []auth.Action{auth.ActionRegisterProduct, auth.ActionAddSeller, auth.ActionSellProduct}},
	}
	for _, tt := range tests {
		l := fixedLedger{result: &ledger.AuthResult{Identity: models.Identity{Username: "u", Role: tt.role}}}
		manager := auth.NewManager(l, utils.Discard())
		if _, err := manager.Login(context.Background(), "u", "pw", tt.role); err != nil {
			t.Fatalf("Login(%s): %v", tt.role, err)
		}
		for _, a := range tt.allowed {
			if !manager.Can(a) {
				t.Errorf("%s should be allowed %s", tt.role, a)
			}
			if _, err := manager.Require(a); err != nil {
				t.Errorf("Require(%s) as %s: %v", a, tt.role, err)
			}
		}
		for _, a := range tt.denied {
			if manager.Can(a) {
				t.Errorf("%s should be denied %s", tt.role, a)
			}
			if _, err := manager.Require(a); !errors.Is(err, auth.ErrForbidden) {
				t.Errorf("Require(%s) as %s = %v, want ErrForbidden", a, tt.role, err)
			}
		}
	}
}

func TestLogoutRevokesGatedActions(t *testing.T) {
	l := fixedLedger{result: &ledger.AuthResult{Identity: models.Identity{Username: "m", Role: models.RoleManufacturer}}}
	manager := auth.NewManager(l, utils.Discard())
	if _, err := manager.Login(context.Background(), "m", "pw", models.RoleManufacturer); err != nil {
		t.Fatal(err)
	}
	manager.Logout()
	manager.Logout()

	for _, a := range auth.GatedActions {
		if manager.Can(a) {
			t.Errorf("Can(%s) after logout", a)
		}
		if _, err := manager.Require(a); !errors.Is(err, auth.ErrNotAuthenticated) {
			t.Errorf("Require(%s) = %v, want ErrNotAuthenticated", a, err)
		}
	}
	if !manager.Can(auth.ActionVerifyProduct) {
		t.Fatal("verification stays public")
	}
	if manager.Credential() != nil {
		t.Fatal("credential should be cleared")
	}
}
