package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/indicator"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

const DefaultFakeMessage = "Product not found or tampered."

// Verifier checks scanned products against the ledger and signals the
// verdict on the indicator.
type Verifier struct {
	ledger  Ledger
	scanner Scanner
	signal  indicator.Sink
	session *auth.Manager
	logger  *slog.Logger
}

func NewVerifier(l Ledger, scanner Scanner, signal indicator.Sink, session *auth.Manager, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	if signal == nil {
		signal = indicator.LogSink{Logger: logger}
	}
	return &Verifier{ledger: l, scanner: scanner, signal: signal, session: session, logger: logger.With("component", "verify")}
}

// Verify scans one code and verifies it. The camera is released as soon as
// the code has been read. Cancelling ctx only aborts the scan; after that
// the check runs to completion.
//
// A *utils.HardwareSignalError is returned together with a complete result
// when the indicator could not be driven; the verdict still stands.
func (v *Verifier) Verify(ctx context.Context) (models.VerificationResult, error) {
	if v.scanner == nil {
		return models.VerificationResult{}, scan.ErrCameraUnavailable
	}
	h, err := v.scanner.Start(ctx)
	if err != nil {
		return models.VerificationResult{}, err
	}
	defer h.Stop()

	event, err := scan.First(ctx, h)
	if err != nil {
		return models.VerificationResult{}, err
	}
	h.Stop()
	// once a code is consumed the verdict must be reached and signalled;
	// the ledger and indicator timeouts still bound it
	return v.VerifyID(context.WithoutCancel(ctx), event.RawPayload)
}

// VerifyID verifies a product ID typed in by the user. It follows the same
// verdict and signalling rules as Verify.
func (v *Verifier) VerifyID(ctx context.Context, productID string) (models.VerificationResult, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return models.VerificationResult{}, utils.Validation("productId", "Product ID is required.")
	}
	response, err := v.ledger.VerifyProduct(ctx, v.credential(), productID)

	result := models.VerificationResult{Status: models.VerdictFake, ProductID: productID}
	switch {
	case err != nil:
		v.logger.Warn("verification failed", "productId", productID, "error", err)
		result.Message = utils.UserMessage(err, DefaultFakeMessage)
	case response.Valid:
		result.Status = models.VerdictGenuine
		if response.ProductID != "" {
			result.ProductID = response.ProductID
		}
		result.Manufacturer = response.Manufacturer
		result.CurrentOwner = response.CurrentOwner
	default:
		result.Message = response.Message
		if result.Message == "" {
			result.Message = DefaultFakeMessage
		}
	}
	v.logger.Info("product verified", "productId", productID, "verdict", result.Status)

	if err := v.signal.Announce(ctx, result.Status); err != nil {
		var hwErr *utils.HardwareSignalError
		if !errors.As(err, &hwErr) {
			err = &utils.HardwareSignalError{Err: err}
		}
		return result, err
	}
	return result, nil
}

// credential is sent when someone is logged in; verification itself is
// public.
func (v *Verifier) credential() ledger.Credential {
	if v.session == nil {
		return nil
	}
	return v.session.Credential()
}
