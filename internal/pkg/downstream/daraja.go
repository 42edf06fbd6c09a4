package downstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sacco-ledger/internal/pkg/config"
	"sacco-ledger/internal/pkg/consts"
	errs "sacco-ledger/internal/pkg/downstream/error_handling"
	"sacco-ledger/internal/pkg/log_messages"
	"sacco-ledger/internal/pkg/logger"
	"sacco-ledger/internal/pkg/models"
	"sacco-ledger/internal/service/interfaces"

	"go.uber.org/zap"
)

type StkPushRequest struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type StkPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// DarajaClient starts M-Pesa STK push collections.
type DarajaClient struct {
	BaseURL        string
	consumerKey    string
	consumerSecret string
	shortCode      string
	passKey        string
	callbackURL    string
	httpClient     *http.Client
	tokenCache     interfaces.RedisStoreOperations
	now            func() time.Time
}

var _ interfaces.PaymentGateway = (*DarajaClient)(nil)

func NewDarajaClient(cfg config.GatewayConfig, tokenCache interfaces.RedisStoreOperations) *DarajaClient {
	return &DarajaClient{
		BaseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		consumerKey:    cfg.ConsumerKey,
		consumerSecret: cfg.ConsumerSecret,
		shortCode:      cfg.ShortCode,
		passKey:        cfg.PassKey,
		callbackURL:    cfg.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		tokenCache: tokenCache,
		now:        time.Now,
	}
}

// NormalizePhone rewrites local 07xx/01xx numbers and +254 numbers to 2547xx form.
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.ReplaceAll(p, " ", "")
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") {
		p = consts.GatewayCountryCode + p[1:]
	}
	if len(p) != 12 || !strings.HasPrefix(p, consts.GatewayCountryCode) {
		return "", models.NewValidationError("invalid phone number %q", phone)
	}
	if _, err := strconv.ParseUint(p, 10, 64); err != nil {
		return "", models.NewValidationError("invalid phone number %q", phone)
	}
	return p, nil
}

// InitiateDeposit returns the gateway CheckoutRequestID used to match the callback.
func (c *DarajaClient) InitiateDeposit(ctx context.Context, phone string, amount models.Money, reference string) (string, error) {
	msisdn, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}
	// the gateway takes whole shillings
	units := int64(amount) / 100
	if units < 1 {
		return "", models.NewValidationError("amount %s is below the gateway minimum of KES 1", amount)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return "", err
	}

	timestamp := c.now().UTC().Format(consts.GatewayTimestampLayout)
	password := base64.StdEncoding.EncodeToString([]byte(c.shortCode + c.passKey + timestamp))
	accountRef := reference
	if len(accountRef) > consts.GatewayMaxReferenceChars {
		accountRef = accountRef[len(accountRef)-consts.GatewayMaxReferenceChars:]
	}

	req := StkPushRequest{
		BusinessShortCode: c.shortCode,
		Password:          password,
		Timestamp:         timestamp,
		TransactionType:   consts.GatewayTransactionType,
		Amount:            units,
		PartyA:            msisdn,
		PartyB:            c.shortCode,
		PhoneNumber:       msisdn,
		CallBackURL:       c.callbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   consts.GatewayTransactionDesc,
	}

	body, err := json.Marshal(req)
	if err != nil {
		logger.CtxError(ctx, "failed to marshal STK push request", err)
		return "", errs.NewGatewayError(fmt.Errorf("marshal request: %w", err))
	}

	statusCode, bodyBytes, err := c.do(ctx, http.MethodPost, c.BaseURL+consts.GatewayStkPushPath, "Bearer "+token, body)
	if err != nil {
		return "", err
	}
	return c.processStkPushResponse(ctx, statusCode, bodyBytes)
}

func (c *DarajaClient) processStkPushResponse(ctx context.Context, statusCode int, bodyBytes []byte) (string, error) {
	logger.CtxInfo(ctx, "Processing STK push response", zap.Int("status", statusCode))

	if statusCode == http.StatusOK {
		var respData StkPushResponse
		if err := json.Unmarshal(bodyBytes, &respData); err != nil {
			logger.CtxError(ctx, "failed to decode STK push success response", err)
			return "", errs.NewGatewayError(fmt.Errorf("decode success response: %w", err), statusCode)
		}
		if respData.ResponseCode == consts.GatewayResponseCodeOK && respData.CheckoutRequestID != "" {
			return respData.CheckoutRequestID, nil
		}
		apiErr := &errs.GatewayError{
			ResponseCode:        respData.ResponseCode,
			ResponseDescription: respData.ResponseDescription,
			StatusCode:          statusCode,
			Err:                 errors.New("stk push not accepted"),
		}
		logger.CtxError(ctx, log_messages.GatewayRequestFailed, apiErr)
		return "", apiErr
	}

	var apiErr errs.GatewayError
	if err := json.Unmarshal(bodyBytes, &apiErr); err != nil {
		logger.CtxError(ctx, "failed to decode STK push error response", err)
		return "", errs.NewGatewayError(fmt.Errorf("decode error response: %w", err), statusCode)
	}
	apiErr.StatusCode = statusCode
	apiErr.Err = errors.New("stk push rejected")
	logger.CtxError(ctx, log_messages.GatewayRequestFailed, &apiErr)
	return "", &apiErr
}

// accessToken serves the cached token while it is valid.
func (c *DarajaClient) accessToken(ctx context.Context) (string, error) {
	if c.tokenCache != nil {
		if cached, err := c.tokenCache.Get(ctx, consts.GatewayTokenKey); err == nil && cached != "" {
			return cached, nil
		}
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.consumerKey + ":" + c.consumerSecret))
	statusCode, bodyBytes, err := c.do(ctx, http.MethodGet, c.BaseURL+consts.GatewayTokenPath, "Basic "+basic, nil)
	if err != nil {
		return "", err
	}
	if statusCode != http.StatusOK {
		gwErr := errs.NewGatewayError(fmt.Errorf("token endpoint returned %d", statusCode), statusCode)
		logger.CtxError(ctx, log_messages.GatewayTokenFailed, gwErr)
		return "", gwErr
	}

	var tok tokenResponse
	if err := json.Unmarshal(bodyBytes, &tok); err != nil || tok.AccessToken == "" {
		if err == nil {
			err = errors.New("empty access token")
		}
		logger.CtxError(ctx, log_messages.GatewayTokenFailed, err)
		return "", errs.NewGatewayError(fmt.Errorf("decode token response: %w", err), statusCode)
	}

	if c.tokenCache != nil {
		ttl := tokenTTL(tok.ExpiresIn)
		if ttl > 0 {
			if err := c.tokenCache.Set(ctx, consts.GatewayTokenKey, tok.AccessToken, ttl); err != nil {
				logger.CtxWarn(ctx, "Failed caching gateway token", zap.Error(err))
			}
		}
	}
	return tok.AccessToken, nil
}

func tokenTTL(expiresIn string) time.Duration {
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil {
		return 0
	}
	return time.Duration(seconds)*time.Second - consts.GatewayTokenSafetyMargin
}

func (c *DarajaClient) do(ctx context.Context, method, url, authorization string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		logger.CtxError(ctx, "failed to build gateway request", err)
		return 0, nil, errs.NewGatewayError(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Authorization", authorization)
	if body != nil {
		httpReq.Header.Set("Content-Type", consts.ContentType)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.CtxError(ctx, log_messages.GatewayRequestFailed, err, zap.String("url", url))
		// -1 marks a request that never got a response
		return 0, nil, errs.NewGatewayError(fmt.Errorf("failed to send request: %w", err), -1)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.CtxError(ctx, "failed to close gateway response body", cerr)
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.CtxError(ctx, "failed to read gateway response body", err)
		return 0, nil, errs.NewGatewayError(fmt.Errorf("read response body: %w", err), resp.StatusCode)
	}
	return resp.StatusCode, bodyBytes, nil
}
