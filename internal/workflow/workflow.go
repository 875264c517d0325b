// Package workflow holds the user-facing operations: verifying a product,
// transferring ownership, and registering users, sellers and products.
// Each service is built from explicit capabilities and consults the
// session's permission table before doing anything.
package workflow

import (
	"context"

	"github.com/Naveen474/fake-product-detection/internal/files"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/scan"
)

// Ledger is the part of the ledger client used by the workflows.
type Ledger interface {
	AddSeller(ctx context.Context, credential ledger.Credential, request ledger.AddSellerRequest) error
	RegisterProduct(ctx context.Context, credential ledger.Credential, product models.Product) (string, error)
	VerifyProduct(ctx context.Context, credential ledger.Credential, productID string) (*ledger.VerifyResponse, error)
	TransferProduct(ctx context.Context, credential ledger.Credential, request ledger.TransferRequest) error
}

// Scanner starts scan sessions. *scan.Source implements it.
type Scanner interface {
	Start(ctx context.Context) (*scan.Handle, error)
}

// LabelSaver stores a printable label for a registered product.
type LabelSaver interface {
	Save(product models.Product) (files.Label, error)
}
