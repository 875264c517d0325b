package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Naveen474/fake-product-detection/internal/models"
	"github.com/Naveen474/fake-product-detection/internal/utils"
)

// maxResponseSize bounds response body reads.
const maxResponseSize = 1 << 20

// DefaultTimeout bounds each request when ClientConfig.Timeout is zero.
const DefaultTimeout = 10 * time.Second

const (
	CookieUsername = "username"
	CookieRole     = "role"
)

type ClientConfig struct {
	// BaseURL is the API root, e.g. "http://localhost:5000/api".
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with no
	// timeout of its own is created; Timeout still applies.
	HTTPClient *http.Client
	// Timeout bounds every request including reading the body.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Client is the typed transaction layer over the ledger REST contract.
// It holds no session state; authenticated calls take a Credential.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("ledger: BaseURL is required")
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("ledger: BaseURL %q must be http or https", config.BaseURL)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
		logger:     logger.With("component", "ledger"),
	}, nil
}

// RegisterUser self-registers a Manufacturer or Customer. The returned
// credential authorizes later calls as that user.
func (c *Client) RegisterUser(ctx context.Context, request RegisterUserRequest) (*AuthResult, error) {
	payload := make(map[string]string, len(request.Fields)+3)
	for k, v := range request.Fields {
		payload[k] = v
	}
	payload["username"] = request.Username
	payload["password"] = request.Password
	payload["role"] = string(request.Role)

	response, err := c.do(ctx, "register user", http.MethodPost, "/users/register", nil, payload)
	if err != nil {
		return nil, err
	}
	result, err := c.authResult(response)
	if err != nil {
		return nil, &utils.NetworkError{Op: "register user", Err: err}
	}
	c.logger.Info("registered user", "username", result.Identity.Username, "role", result.Identity.Role)
	return result, nil
}

// Login authenticates username with the claimed role.
func (c *Client) Login(ctx context.Context, username, password string, role models.Role) (*AuthResult, error) {
	payload := map[string]string{
		"username": username,
		"password": password,
		"role":     string(role),
	}
	response, err := c.do(ctx, "login", http.MethodPost, "/users/login", nil, payload)
	if err != nil {
		return nil, err
	}
	result, err := c.authResult(response)
	if err != nil {
		return nil, &utils.NetworkError{Op: "login", Err: err}
	}
	c.logger.Info("logged in", "username", result.Identity.Username, "role", result.Identity.Role)
	return result, nil
}

// AddSeller provisions a seller account on behalf of a manufacturer.
func (c *Client) AddSeller(ctx context.Context, credential Credential, request AddSellerRequest) error {
	payload := make(map[string]string, len(request.Fields)+3)
	for k, v := range request.Fields {
		payload[k] = v
	}
	payload["username"] = request.Username
	payload["password"] = request.Password
	payload["manufacturer"] = request.Manufacturer

	if _, err := c.do(ctx, "add seller", http.MethodPost, "/users/add-seller", credential, payload); err != nil {
		return err
	}
	c.logger.Info("added seller", "seller", request.Username, "manufacturer", request.Manufacturer)
	return nil
}

// RegisterProduct records a new product and returns its ID as confirmed by
// the ledger, or the submitted ID when the response does not echo it.
func (c *Client) RegisterProduct(ctx context.Context, credential Credential, product models.Product) (string, error) {
	response, err := c.do(ctx, "register product", http.MethodPost, "/products/register", credential, product)
	if err != nil {
		return "", err
	}
	var body struct {
		ProductID string `json:"productId"`
	}
	if len(bytes.TrimSpace(response.body)) > 0 {
		if err := json.Unmarshal(response.body, &body); err != nil {
			return "", &utils.NetworkError{Op: "register product", Err: fmt.Errorf("malformed response: %w", err)}
		}
	}
	if body.ProductID == "" {
		body.ProductID = product.ProductID
	}
	c.logger.Info("registered product", "product_id", body.ProductID)
	return body.ProductID, nil
}

// VerifyProduct asks the ledger whether productID is genuine. The call is
// valid without a credential. A non-2xx answer is returned as *APIError.
func (c *Client) VerifyProduct(ctx context.Context, credential Credential, productID string) (*VerifyResponse, error) {
	path := "/products/verify/" + url.PathEscape(productID)
	response, err := c.do(ctx, "verify product", http.MethodPost, path, credential, nil)
	if err != nil {
		return nil, err
	}
	var body VerifyResponse
	if err := json.Unmarshal(response.body, &body); err != nil {
		return nil, &utils.NetworkError{Op: "verify product", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &body, nil
}

// TransferProduct moves ownership of a product to another user.
func (c *Client) TransferProduct(ctx context.Context, credential Credential, request TransferRequest) error {
	if _, err := c.do(ctx, "transfer product", http.MethodPost, "/products/transfer", credential, request); err != nil {
		return err
	}
	c.logger.Info("transferred product", "product_id", request.ProductID, "to", request.ToUsername, "to_type", request.ToUserType)
	return nil
}

type response struct {
	status  int
	body    []byte
	cookies []*http.Cookie
}

// do performs one bounded request. Transport failures and timeouts become
// *utils.NetworkError; non-2xx statuses become *APIError.
func (c *Client) do(ctx context.Context, op, method, path string, credential Credential, requestBody any) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("ledger: failed to encode %s request: %w", op, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to create %s request: %w", op, err)
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	request.Header.Set("Accept", "application/json")
	for _, cookie := range credential {
		request.AddCookie(cookie)
	}

	start := time.Now()
	httpResponse, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("ledger request failed", "op", op, "error", err)
		return nil, &utils.NetworkError{Op: op, Err: err}
	}
	defer httpResponse.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseSize))
	if err != nil {
		return nil, &utils.NetworkError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("ledger request", "op", op, "method", method, "path", path,
		"status", httpResponse.StatusCode, "elapsed", time.Since(start))

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: httpResponse.StatusCode}
		var parsed errorBody
		if json.Unmarshal(body, &parsed) == nil {
			apiErr.Message = parsed.Error
			if apiErr.Message == "" {
				apiErr.Message = parsed.Message
			}
		}
		return nil, apiErr
	}
	return &response{status: httpResponse.StatusCode, body: body, cookies: httpResponse.Cookies()}, nil
}

// authResult decodes {username, role} and keeps the cookies the ledger set.
// When it set none, the username and role cookies are synthesized, which is
// what the ledger reads to authorize later calls.
func (c *Client) authResult(response *response) (*AuthResult, error) {
	var body authResponse
	if err := json.Unmarshal(response.body, &body); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if body.Username == "" || !body.Role.Valid() {
		return nil, fmt.Errorf("malformed response: username %q role %q", body.Username, body.Role)
	}
	credential := Credential(response.cookies)
	if len(credential) == 0 {
		credential = Credential{
			{Name: CookieUsername, Value: body.Username},
			{Name: CookieRole, Value: string(body.Role)},
		}
	}
	return &AuthResult{
		Identity:   models.Identity{Username: body.Username, Role: body.Role},
		Credential: credential,
	}, nil
}
