package workflow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/files"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

const (
	DefaultAddSellerFailure = "Failed to add seller."
	DefaultProductFailure   = "Failed to register product."

	productIDLength = 12
)

// SellerForm is the add-seller form filled in by a manufacturer.
type SellerForm struct {
	Username string
	Password string
	Fields   map[string]string
}

// ProductRegistration is the outcome of a successful product registration.
// LabelErr is set when the ledger accepted the product but its QR label
// could not be written.
type ProductRegistration struct {
	Product  models.Product
	Label    *files.Label
	LabelErr error
}

// Registrar registers users, sellers and products.
type Registrar struct {
	ledger  Ledger
	session *auth.Manager
	labels  LabelSaver
	logger  *slog.Logger
	newID   func() string
}

// NewRegistrar builds a Registrar. labels may be nil to skip QR labels.
func NewRegistrar(l Ledger, session *auth.Manager, labels LabelSaver, logger *slog.Logger) *Registrar {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registrar{ledger: l, session: session, labels: labels, logger: logger.With("component", "registration"), newID: NewProductID}
}

// NewProductID returns a random 48-bit product ID in hex.
func NewProductID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:productIDLength]
}

// RegisterSelf creates a Manufacturer or Customer account and logs it in.
func (r *Registrar) RegisterSelf(ctx context.Context, role models.Role, form auth.Registration) (models.Identity, error) {
	return r.session.RegisterSelf(ctx, role, form)
}

// AddSeller provisions a seller account on behalf of the logged-in
// manufacturer. The current session is unchanged.
func (r *Registrar) AddSeller(ctx context.Context, form SellerForm) error {
	session, err := r.session.Require(auth.ActionAddSeller)
	if err != nil {
		return err
	}
	username := strings.TrimSpace(form.Username)
	if username == "" || form.Password == "" {
		return utils.Validation("", "Seller username and password are required.")
	}
	fields, err := auth.RequireFields(models.ProfileFields[models.RoleSeller], form.Fields)
	if err != nil {
		return err
	}
	err = r.ledger.AddSeller(ctx, session.Credential, ledger.AddSellerRequest{
		Username:     username,
		Password:     form.Password,
		Fields:       fields,
		Manufacturer: session.Identity.Username,
	})
	if err != nil {
		r.logger.Warn("add seller failed", "seller", username, "error", err)
		return err
	}
	r.logger.Info("seller added", "seller", username, "manufacturer", session.Identity.Username)
	return nil
}

// NewProductDraft returns an empty product carrying a freshly generated ID.
func (r *Registrar) NewProductDraft() models.Product {
	return models.Product{ProductID: r.newID()}
}

// RegisterProduct records a product on the ledger and writes its QR label.
// A label failure is reported in the result, not as an error.
func (r *Registrar) RegisterProduct(ctx context.Context, product models.Product) (ProductRegistration, error) {
	session, err := r.session.Require(auth.ActionRegisterProduct)
	if err != nil {
		return ProductRegistration{}, err
	}
	product.ProductID = strings.TrimSpace(product.ProductID)
	if product.ProductID == "" {
		product.ProductID = r.newID()
	}
	values, err := auth.RequireFields(models.ProductFields, product.Values())
	if err != nil {
		return ProductRegistration{}, err
	}
	for k, v := range values {
		product.Set(k, v)
	}

	id, err := r.ledger.RegisterProduct(ctx, session.Credential, product)
	if err != nil {
		r.logger.Warn("product registration failed", "productId", product.ProductID, "error", err)
		return ProductRegistration{}, err
	}
	product.ProductID = id
	r.logger.Info("product registered", "productId", id, "manufacturer", session.Identity.Username)

	registration := ProductRegistration{Product: product}
	if r.labels != nil {
		label, err := r.labels.Save(product)
		if err != nil {
			r.logger.Warn("failed to write product label", "productId", id, "error", err)
			registration.LabelErr = err
		} else {
			registration.Label = &label
		}
	}
	return registration, nil
}
