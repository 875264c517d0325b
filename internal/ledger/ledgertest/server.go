// Package ledgertest is an in-memory implementation of the ledger REST
// contract, used by tests and by cmd/ledgerstub for local development. It
// follows the rules of the production backend: role-checked logins,
// manufacturer-only product registration, and transfers by the current
// owner only.
package ledgertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/Naveen474/fake-product-detection/internal/models"
)

var requiredFields = map[models.Role][]string{
	models.RoleManufacturer: {"username", "password", "companyName", "licenseNumber", "manager", "brand", "phone", "address"},
	models.RoleSeller:       {"username", "password", "companyName", "phone", "manager", "brand", "address"},
	models.RoleCustomer:     {"username", "password", "fullName", "phone", "address"},
}

var productFields = []string{"productId", "name", "batchNumber", "manufacturingDate", "description", "price"}

type user struct {
	passwordHash []byte
	role         models.Role
	profile      map[string]string
}

type product struct {
	models.Product
	manufacturer string
	owner        string
	ownerRole    models.Role
}

// Canned is a fixed response that replaces a route's normal behavior.
type Canned struct {
	Status int
	Body   any
}

// Server holds the stub's state. The zero value is not usable; call New.
type Server struct {
	// Cost is the bcrypt cost for stored passwords.
	Cost int

	mu       sync.Mutex
	users    map[string]*user
	products map[string]*product
	requests []string
	canned   map[string]Canned
}

func New() *Server {
	return &Server{
		Cost:     bcrypt.MinCost,
		users:    make(map[string]*user),
		products: make(map[string]*product),
		canned:   make(map[string]Canned),
	}
}

// Handler returns the API mounted under /api.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.record)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "OK")
	}).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/users/register", s.handleRegister).Methods("POST")
	api.HandleFunc("/users/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/users/add-seller", s.handleAddSeller).Methods("POST")
	api.HandleFunc("/products/register", s.handleRegisterProduct).Methods("POST")
	api.HandleFunc("/products/transfer", s.handleTransfer).Methods("POST")
	api.HandleFunc("/products/verify/{pid}", s.handleVerify).Methods("POST")
	return r
}

// record logs the request and serves a canned response when one is set
// for its route.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.requests = append(s.requests, key)
		canned, ok := s.canned[key]
		s.mu.Unlock()
		if ok {
			writeJSON(w, canned.Status, canned.Body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetResponse makes every request to "METHOD /path" return canned.
func (s *Server) SetResponse(route string, canned Canned) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned[route] = canned
}

// Requests returns "METHOD /path" for every request received, in order.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// AddUser seeds an account.
func (s *Server) AddUser(username, password string, role models.Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.Cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = &user{passwordHash: hash, role: role, profile: map[string]string{}}
	return nil
}

// AddProduct seeds a product owned by its manufacturer.
func (s *Server) AddProduct(p models.Product, manufacturer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductID] = &product{Product: p, manufacturer: manufacturer, owner: manufacturer, ownerRole: models.RoleManufacturer}
}

// Owner returns the current owner of a product.
func (s *Server) Owner(productID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return "", false
	}
	return p.owner, true
}

// HasUser reports whether username exists with role.
func (s *Server) HasUser(username string, role models.Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[username]
	return ok && u.role == role
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	role := models.Role(body["role"])
	if role != models.RoleManufacturer && role != models.RoleCustomer {
		writeError(w, http.StatusBadRequest, "Invalid role: "+string(role))
		return
	}
	if missing := firstMissing(body, requiredFields[role]); missing != "" {
		writeError(w, http.StatusBadRequest, "Missing field: "+missing)
		return
	}
	if err := s.createUser(body, role); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message":  "User registered successfully",
		"username": body["username"],
		"role":     string(role),
	})
}

func (s *Server) handleAddSeller(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if missing := firstMissing(body, requiredFields[models.RoleSeller]); missing != "" {
		writeError(w, http.StatusBadRequest, "Missing field for seller: "+missing)
		return
	}
	if !s.HasUser(body["manufacturer"], models.RoleManufacturer) {
		writeError(w, http.StatusUnauthorized, "Unauthorized manufacturer")
		return
	}
	if err := s.createUser(body, models.RoleSeller); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Seller added successfully", "username": body["username"]})
}

func (s *Server) createUser(body map[string]string, role models.Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(body["password"]), s.Cost)
	if err != nil {
		return err
	}
	profile := make(map[string]string)
	for k, v := range body {
		if k != "password" && k != "username" && k != "role" {
			profile[k] = v
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body["username"]]; exists {
		return fmt.Errorf("User already exists")
	}
	s.users[body["username"]] = &user{passwordHash: hash, role: role, profile: profile}
	return nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	u, exists := s.users[body["username"]]
	s.mu.Unlock()
	if !exists || u.role != models.Role(body["role"]) ||
		bcrypt.CompareHashAndPassword(u.passwordHash, []byte(body["password"])) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password. Did you register yet?")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "Login successful",
		"username": body["username"],
		"role":     string(u.role),
	})
}

func (s *Server) handleRegisterProduct(w http.ResponseWriter, r *http.Request) {
	manufacturer := cookie(r, "username")
	if !s.HasUser(manufacturer, models.RoleManufacturer) {
		writeError(w, http.StatusUnauthorized, "Unauthorized manufacturer")
		return
	}
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	if missing := firstMissing(body, productFields); missing != "" {
		writeError(w, http.StatusBadRequest, "Missing field: "+missing)
		return
	}
	var p models.Product
	for k, v := range body {
		p.Set(k, v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.products[p.ProductID]; exists {
		writeError(w, http.StatusConflict, "Product already registered: "+p.ProductID)
		return
	}
	s.products[p.ProductID] = &product{Product: p, manufacturer: manufacturer, owner: manufacturer, ownerRole: models.RoleManufacturer}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product registered", "productId": p.ProductID})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	from, fromRole := cookie(r, "username"), models.Role(cookie(r, "role"))
	if fromRole != models.RoleManufacturer && fromRole != models.RoleSeller {
		writeError(w, http.StatusForbidden, "Only Manufacturer or Seller can transfer products")
		return
	}
	body, ok := decodeFields(w, r)
	if !ok {
		return
	}
	toRole := models.Role(body["toUserType"])
	if toRole != models.RoleSeller && toRole != models.RoleCustomer {
		writeError(w, http.StatusForbidden, "Expected Seller or Customer, but got "+body["toUserType"])
		return
	}
	if !s.HasUser(body["toUsername"], toRole) {
		writeError(w, http.StatusNotFound, "Target user not found or invalid role")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, exists := s.products[body["productId"]]
	if !exists {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if p.owner != from {
		writeError(w, http.StatusForbidden, "Product is not owned by "+from)
		return
	}
	p.owner, p.ownerRole = body["toUsername"], toRole
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product transferred"})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	productID := mux.Vars(r)["pid"]
	s.mu.Lock()
	p, exists := s.products[productID]
	s.mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]any{"valid": false, "message": "Product not found"})
		return
	}
	if !s.HasUser(p.manufacturer, models.RoleManufacturer) {
		writeJSON(w, http.StatusNotFound, map[string]any{"valid": false, "message": "Manufacturer not registered"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":        true,
		"productId":    productID,
		"manufacturer": p.manufacturer,
		"currentOwner": fmt.Sprintf("%s (%s)", p.owner, p.ownerRole),
	})
}

func decodeFields(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return body, true
}

func firstMissing(body map[string]string, fields []string) string {
	for _, f := range fields {
		if strings.TrimSpace(body[f]) == "" {
			return f
		}
	}
	return ""
}

func cookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
