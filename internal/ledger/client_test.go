package ledger_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/ledger/ledgertest"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

func newClient(t *testing.T) (*ledger.Client, *ledgertest.Server) {
	t.Helper()
	stub := ledgertest.New()
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)
	client, err := ledger.NewClient(ledger.ClientConfig{
		BaseURL: server.URL + "/api",
		Timeout: 5 * time.Second,
		Logger:  utils.Discard(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, stub
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://ledger", "://bad"} {
		if _, err := ledger.NewClient(ledger.ClientConfig{BaseURL: raw}); err == nil {
			t.Fatalf("NewClient(%q) should fail", raw)
		}
	}
}

func TestLoginSynthesizesCredential(t *testing.T) {
	client, stub := newClient(t)
	if err := stub.AddUser("alice", "pw", models.RoleManufacturer); err != nil {
		t.Fatal(err)
	}
	result, err := client.Login(context.Background(), "alice", "pw", models.RoleManufacturer)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Identity != (models.Identity{Username: "alice", Role: models.RoleManufacturer}) {
		t.Fatalf("identity = %+v", result.Identity)
	}
	if result.Credential.Cookie(ledger.CookieUsername) != "alice" || result.Credential.Cookie(ledger.CookieRole) != "Manufacturer" {
		t.Fatalf("credential = %v", result.Credential)
	}
}

func TestLoginKeepsServerCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc123"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username":"bob","role":"Seller"}`))
	}))
	defer server.Close()
	client, err := ledger.NewClient(ledger.ClientConfig{BaseURL: server.URL, Logger: utils.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	result, err := client.Login(context.Background(), "bob", "pw", models.RoleSeller)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(result.Credential) != 1 || result.Credential.Cookie("sid") != "abc123" {
		t.Fatalf("credential = %v", result.Credential)
	}
}

func TestLoginFailureCarriesBackendMessage(t *testing.T) {
	client, _ := newClient(t)
	_, err := client.Login(context.Background(), "ghost", "pw", models.RoleCustomer)
	var apiErr *ledger.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if got := utils.UserMessage(err, "fallback"); got != "Invalid username or password. Did you register yet?" {
		t.Fatalf("user message = %q", got)
	}
}

func TestNonJSONErrorFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	}))
	defer server.Close()
	client, err := ledger.NewClient(ledger.ClientConfig{BaseURL: server.URL, Logger: utils.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	err = client.TransferProduct(context.Background(), nil, ledger.TransferRequest{ProductID: "P1"})
	if !ledger.IsStatus(err, http.StatusBadGateway) {
		t.Fatalf("expected 502 APIError, got %v", err)
	}
	if got := utils.UserMessage(err, "Transfer failed."); got != "Transfer failed." {
		t.Fatalf("user message = %q", got)
	}
}

func TestTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)
	client, err := ledger.NewClient(ledger.ClientConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond, Logger: utils.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.VerifyProduct(context.Background(), nil, "P1")
	var netErr *utils.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if utils.UserMessage(err, "x") != utils.NetworkMessage {
		t.Fatalf("network errors should surface the generic message")
	}
}

func TestMalformedSuccessIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()
	client, err := ledger.NewClient(ledger.ClientConfig{BaseURL: server.URL, Logger: utils.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	_, err = client.Login(context.Background(), "a", "b", models.RoleCustomer)
	var netErr *utils.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestProductLifecycle(t *testing.T) {
	client, stub := newClient(t)
	ctx := context.Background()

	registered, err := client.RegisterUser(ctx, ledger.RegisterUserRequest{
		Username: "acme",
		Password: "pw",
		Role:     models.RoleManufacturer,
		Fields: map[string]string{
			"companyName": "ACME", "licenseNumber": "L-1", "manager": "M", "brand": "B", "phone": "1", "address": "A",
		},
	})
	if err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	cred := registered.Credential

	err = client.AddSeller(ctx, cred, ledger.AddSellerRequest{
		Username:     "shop",
		Password:     "pw",
		Manufacturer: "acme",
		Fields:       map[string]string{"companyName": "Shop", "phone": "2", "manager": "S", "brand": "B", "address": "S St"},
	})
	if err != nil {
		t.Fatalf("AddSeller: %v", err)
	}
	if !stub.HasUser("shop", models.RoleSeller) {
		t.Fatal("seller not created")
	}

	product := models.Product{ProductID: "P1", Name: "Watch", BatchNumber: "B1", ManufacturingDate: "2024-01-01", Description: "steel", Price: "100"}
	id, err := client.RegisterProduct(ctx, cred, product)
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}
	if id != "P1" {
		t.Fatalf("product id = %q", id)
	}

	if err := client.TransferProduct(ctx, cred, ledger.TransferRequest{ProductID: "P1", ToUsername: "shop", ToUserType: "Seller"}); err != nil {
		t.Fatalf("TransferProduct: %v", err)
	}
	if owner, _ := stub.Owner("P1"); owner != "shop" {
		t.Fatalf("owner = %q", owner)
	}

	verified, err := client.VerifyProduct(ctx, nil, "P1")
	if err != nil {
		t.Fatalf("VerifyProduct: %v", err)
	}
	if !verified.Valid || verified.Manufacturer != "acme" || verified.CurrentOwner != "shop (Seller)" {
		t.Fatalf("verify = %+v", verified)
	}

	_, err = client.VerifyProduct(ctx, nil, "nope")
	if !ledger.IsStatus(err, http.StatusNotFound) || utils.UserMessage(err, "") != "Product not found" {
		t.Fatalf("expected 404 with message, got %v", err)
	}
}

func TestTransferRequiresSellingRole(t *testing.T) {
	client, _ := newClient(t)
	cred := ledger.Credential{{Name: ledger.CookieUsername, Value: "c"}, {Name: ledger.CookieRole, Value: "Customer"}}
	err := client.TransferProduct(context.Background(), cred, ledger.TransferRequest{ProductID: "P1", ToUsername: "x", ToUserType: "Customer"})
	if !ledger.IsStatus(err, http.StatusForbidden) {
		t.Fatalf("expected 403, got %v", err)
	}
}
