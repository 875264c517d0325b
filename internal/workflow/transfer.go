package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

const DefaultTransferFailure = "Failed to transfer product."

// TransferForm collects the transfer fields from the user. scanned yields
// the product ID read by the camera, at most once, and is closed when
// scanning ends. The form may use it to pre-fill the product ID, which the
// user can still edit.
type TransferForm interface {
	Fill(ctx context.Context, scanned <-chan string) (ledger.TransferRequest, error)
}

// TransferFormFunc adapts a function to TransferForm.
type TransferFormFunc func(ctx context.Context, scanned <-chan string) (ledger.TransferRequest, error)

func (f TransferFormFunc) Fill(ctx context.Context, scanned <-chan string) (ledger.TransferRequest, error) {
	return f(ctx, scanned)
}

// Transferer moves product ownership to another participant.
type Transferer struct {
	ledger  Ledger
	scanner Scanner
	session *auth.Manager
	logger  *slog.Logger
}

func NewTransferer(l Ledger, scanner Scanner, session *auth.Manager, logger *slog.Logger) *Transferer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transferer{ledger: l, scanner: scanner, session: session, logger: logger.With("component", "transfer")}
}

// Sell runs one transfer attempt. The camera, when one is configured, is
// released before Sell returns on every path.
func (t *Transferer) Sell(ctx context.Context, form TransferForm) (ledger.TransferRequest, error) {
	session, err := t.session.Require(auth.ActionSellProduct)
	if err != nil {
		return ledger.TransferRequest{}, err
	}

	scanned := make(chan string, 1)
	if t.scanner == nil {
		close(scanned)
	} else {
		h, err := t.scanner.Start(ctx)
		if err != nil {
			return ledger.TransferRequest{}, err
		}
		defer h.Stop()
		go func() {
			defer close(scanned)
			event, err := scan.First(ctx, h)
			if err != nil {
				if !errors.Is(err, scan.ErrStopped) && ctx.Err() == nil {
					t.logger.Debug("no product code scanned", "error", err)
				}
				return
			}
			scanned <- event.RawPayload
		}()
	}

	request, err := form.Fill(ctx, scanned)
	if err != nil {
		return ledger.TransferRequest{}, err
	}
	request, err = validateTransfer(request)
	if err != nil {
		return ledger.TransferRequest{}, err
	}

	if err := t.ledger.TransferProduct(ctx, session.Credential, request); err != nil {
		t.logger.Warn("transfer failed", "productId", request.ProductID, "to", request.ToUsername, "error", err)
		return ledger.TransferRequest{}, err
	}
	t.logger.Info("product transferred", "productId", request.ProductID, "from", session.Identity.Username, "to", request.ToUsername)
	return request, nil
}

func validateTransfer(request ledger.TransferRequest) (ledger.TransferRequest, error) {
	request.ProductID = strings.TrimSpace(request.ProductID)
	request.ToUsername = strings.TrimSpace(request.ToUsername)
	request.ToUserType = strings.TrimSpace(request.ToUserType)
	switch {
	case request.ProductID == "":
		return request, utils.Validation("productId", "Product ID is required.")
	case request.ToUsername == "":
		return request, utils.Validation("toUsername", "Recipient username is required.")
	case request.ToUserType == "":
		return request, utils.Validation("toUserType", "Recipient role is required.")
	}
	// the recipient role is free-form; known roles are sent in canonical case
	if role, err := models.ParseRole(request.ToUserType); err == nil {
		request.ToUserType = string(role)
	}
	return request, nil
}
