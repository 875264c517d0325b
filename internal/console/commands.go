package console

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Naveen474/fake-product-detection/internal/auth"
	"github.com/Naveen474/fake-product-detection/internal/ledger"
	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/scan"
	"github.com/Naveen474/fake-product-detection/internal/utils"
	"github.com/Naveen474/fake-product-detection/internal/workflow"
)

const verifyFailure = "Verification failed."

func (s *Session) login(ctx context.Context, args []string) {
	username, err := s.argOrLine(ctx, args, 0, "Username: ")
	if err != nil {
		s.fail(err, "")
		return
	}
	password, err := s.readSecret(ctx, "Password: ")
	if err != nil {
		s.fail(err, "")
		return
	}
	role, err := s.readRole(ctx, "Role (Manufacturer/Seller/Customer): ")
	if err != nil {
		s.fail(err, "")
		return
	}
	identity, err := s.session.Login(ctx, username, password, role)
	if err != nil {
		s.fail(err, "Login failed due to an unknown error.")
		return
	}
	s.printSuccess("Logged in as " + identity.String())
}

func (s *Session) logout(context.Context, []string) {
	s.session.Logout()
	fmt.Fprintln(s.out, "Logged out.")
}

func (s *Session) register(ctx context.Context, _ []string) {
	role, err := s.readRole(ctx, "Register as (Manufacturer/Customer): ")
	if err != nil {
		s.fail(err, "")
		return
	}
	if role == models.RoleSeller {
		// refused by policy before anything else is asked
		_, err := s.registrar.RegisterSelf(ctx, role, auth.Registration{})
		s.fail(err, "")
		return
	}
	var form auth.Registration
	if form.Username, err = s.readLine(ctx, "Username: "); err != nil {
		s.fail(err, "")
		return
	}
	if form.Password, err = s.readSecret(ctx, "Password: "); err != nil {
		s.fail(err, "")
		return
	}
	if form.ConfirmPassword, err = s.readSecret(ctx, "Confirm Password: "); err != nil {
		s.fail(err, "")
		return
	}
	if form.Fields, err = s.readFields(ctx, models.ProfileFields[role]); err != nil {
		s.fail(err, "")
		return
	}
	identity, err := s.registrar.RegisterSelf(ctx, role, form)
	if err != nil {
		s.fail(err, "Registration failed due to an unknown error.")
		return
	}
	s.printSuccess("Registered and logged in as " + identity.String())
}

func (s *Session) addSeller(ctx context.Context, _ []string) {
	if _, err := s.session.Require(auth.ActionAddSeller); err != nil {
		s.fail(err, "")
		return
	}
	var form workflow.SellerForm
	var err error
	if form.Username, err = s.readLine(ctx, "Seller Username: "); err != nil {
		s.fail(err, "")
		return
	}
	if form.Password, err = s.readSecret(ctx, "Seller Password: "); err != nil {
		s.fail(err, "")
		return
	}
	if form.Fields, err = s.readFields(ctx, models.ProfileFields[models.RoleSeller]); err != nil {
		s.fail(err, "")
		return
	}
	if err := s.registrar.AddSeller(ctx, form); err != nil {
		s.fail(err, workflow.DefaultAddSellerFailure)
		return
	}
	s.printSuccess(fmt.Sprintf("Seller %s added. They can now log in.", strings.TrimSpace(form.Username)))
}

func (s *Session) registerProduct(ctx context.Context, _ []string) {
	if _, err := s.session.Require(auth.ActionRegisterProduct); err != nil {
		s.fail(err, "")
		return
	}
	product := s.registrar.NewProductDraft()
	fmt.Fprintf(s.out, "Product ID: %s\n", s.styles.label.Render(product.ProductID))
	values, err := s.readFields(ctx, models.ProductFields)
	if err != nil {
		s.fail(err, "")
		return
	}
	for k, v := range values {
		product.Set(k, v)
	}
	registration, err := s.registrar.RegisterProduct(ctx, product)
	if err != nil {
		s.fail(err, workflow.DefaultProductFailure)
		return
	}
	s.printSuccess("Product registered with ID " + registration.Product.ProductID)
	switch {
	case registration.Label != nil:
		fmt.Fprintf(s.out, "QR label saved to %s\n", registration.Label.Path)
	case registration.LabelErr != nil:
		s.printWarning("Could not save the QR label: " + registration.LabelErr.Error())
	}
}

// verify runs a camera scan in the background. Pressing Enter cancels it.
func (s *Session) verify(ctx context.Context, _ []string) {
	fmt.Fprintln(s.out, "Hold the product code up to the camera. Press Enter to cancel.")
	scanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result models.VerificationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := s.verifier.Verify(scanCtx)
		done <- outcome{result, err}
	}()

	var o outcome
	select {
	case o = <-done:
	case <-s.input.next():
		s.input.received()
		cancel()
		o = <-done
	}
	s.report(o.result, o.err)
}

func (s *Session) verifyID(ctx context.Context, args []string) {
	productID, err := s.argOrLine(ctx, args, 0, "Product ID: ")
	if err != nil {
		s.fail(err, "")
		return
	}
	result, err := s.verifier.VerifyID(ctx, productID)
	s.report(result, err)
}

func (s *Session) report(result models.VerificationResult, err error) {
	var hwErr *utils.HardwareSignalError
	if err != nil && !errors.As(err, &hwErr) {
		s.fail(err, verifyFailure)
		if errors.Is(err, scan.ErrCameraUnavailable) {
			fmt.Fprintln(s.out, "Use verify-id to type the product ID instead.")
		}
		return
	}
	if result.Genuine() {
		fmt.Fprintln(s.out, s.styles.genuine.Render("GENUINE"))
		fmt.Fprintf(s.out, "  Product ID:    %s\n", result.ProductID)
		fmt.Fprintf(s.out, "  Manufacturer:  %s\n", result.Manufacturer)
		fmt.Fprintf(s.out, "  Current owner: %s\n", result.CurrentOwner)
	} else {
		fmt.Fprintln(s.out, s.styles.fake.Render("FAKE"))
		fmt.Fprintf(s.out, "  %s\n", result.Message)
	}
	if hwErr != nil {
		s.printWarning("Indicator not updated: " + hwErr.Err.Error())
	}
}

func (s *Session) sell(ctx context.Context, _ []string) {
	request, err := s.transferer.Sell(ctx, workflow.TransferFormFunc(s.fillTransfer))
	if err != nil {
		s.fail(err, workflow.DefaultTransferFailure)
		if errors.Is(err, scan.ErrCameraUnavailable) {
			fmt.Fprintln(s.out, `Start the client with --camera "" to type product IDs without a camera.`)
		}
		return
	}
	s.printSuccess(fmt.Sprintf("Product %s transferred to %s (%s).", request.ProductID, request.ToUsername, request.ToUserType))
}

// fillTransfer waits for either a scanned code or a typed product ID, then
// asks for the recipient.
func (s *Session) fillTransfer(ctx context.Context, scanned <-chan string) (ledger.TransferRequest, error) {
	var request ledger.TransferRequest
	fmt.Fprint(s.out, "Scan the product code or type its ID: ")
waiting:
	for {
		select {
		case <-ctx.Done():
			return request, ctx.Err()
		case id, ok := <-scanned:
			if !ok {
				scanned = nil
				continue
			}
			fmt.Fprintf(s.out, "\nScanned product ID: %s\n", id)
			edited, err := s.readLine(ctx, fmt.Sprintf("Product ID [%s]: ", id))
			if err != nil {
				return request, err
			}
			request.ProductID = id
			if edited != "" {
				request.ProductID = edited
			}
			break waiting
		case l := <-s.input.next():
			s.input.received()
			if l.err != nil {
				return request, l.err
			}
			// an empty ID is left for validation to reject
			request.ProductID = strings.TrimSpace(l.text)
			break waiting
		}
	}
	var err error
	if request.ToUsername, err = s.readLine(ctx, "Recipient username: "); err != nil {
		return request, err
	}
	if request.ToUserType, err = s.readLine(ctx, "Recipient role (Seller/Customer): "); err != nil {
		return request, err
	}
	return request, nil
}

func (s *Session) listLabels(context.Context, []string) {
	if s.labels == nil {
		fmt.Fprintln(s.out, "Labels are disabled.")
		return
	}
	labels, err := s.labels.GetAll()
	if err != nil {
		s.fail(err, "Could not read labels.")
		return
	}
	if len(labels) == 0 {
		fmt.Fprintln(s.out, "No labels yet.")
		return
	}
	for _, l := range labels {
		fmt.Fprintf(s.out, "  %s  %-20s %s  %s\n", l.ProductID, l.Name, l.CreatedAt.Format("2006-01-02 15:04"), s.styles.dim.Render(l.Path))
	}
}

func (s *Session) readRole(ctx context.Context, prompt string) (models.Role, error) {
	text, err := s.readLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	role, err := models.ParseRole(text)
	if err != nil {
		return "", utils.Validation("role", "Unknown role %q.", text)
	}
	return role, nil
}

// argOrLine returns args[i] when present, otherwise prompts for it.
func (s *Session) argOrLine(ctx context.Context, args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	return s.readLine(ctx, prompt)
}
