package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"sacco-ledger/internal/app/middleware"
	"sacco-ledger/internal/pkg/consts"
	"sacco-ledger/internal/pkg/models"
	storemodels "sacco-ledger/internal/pkg/store/models"
	"sacco-ledger/internal/service/compliance"
	"sacco-ledger/internal/service/deposits"
	"sacco-ledger/internal/service/members"
	"sacco-ledger/internal/service/servicetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AttachRequestContext())
	return router
}

func serve(router *gin.Engine, req *http.Request, actor *models.Actor) *httptest.ResponseRecorder {
	if actor != nil {
		req.Header.Set(consts.HeaderMemberID, actor.MemberID.Hex())
		req.Header.Set(consts.HeaderMemberRole, string(actor.Role))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(method, path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealthCheckHandlerHealthCheck(t *testing.T) {
	router := newRouter()
	router.GET("/health", NewHealthCheckHandler().HealthCheck)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := serve(router, req, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Health Check"}`, w.Body.String())
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{models.ErrCodeValidation, http.StatusBadRequest},
		{models.ErrCodePreconditionFailed, http.StatusPreconditionFailed},
		{models.ErrCodeForbidden, http.StatusForbidden},
		{models.ErrCodeConflict, http.StatusConflict},
		{models.ErrCodeNotFound, http.StatusNotFound},
		{models.ErrCodeInsufficientFunds, http.StatusUnprocessableEntity},
		{models.ErrCodeInvariantViolation, http.StatusInternalServerError},
		{models.ErrCodeInternal, http.StatusInternalServerError},
		{"SOMETHING_NEW", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestMemberHandler(t *testing.T) {
	f := servicetest.New()
	chair, _ := f.SeedMember(t, servicetest.MemberSpec{Email: "chair@sacco.test", Role: models.RoleChairperson})
	plain, _ := f.SeedMember(t, servicetest.MemberSpec{Email: "plain@sacco.test"})
	svc := members.NewMemberService(f.Store, members.Repositories{
		Members: f.Store.Members(),
		Wallets: f.Store.Wallets(),
	}, f.Audit).WithClock(f.Clock())

	handler := NewMemberHandler(svc)
	router := newRouter()
	router.POST("/members", handler.Register)
	router.POST("/members/:id/activate", handler.Activate)
	router.GET("/wallets/:memberId", handler.Wallet)

	w := serve(router, jsonRequest(t, http.MethodPost, "/members", models.RegisterMemberRequest{
		Email:      "achieng@sacco.test",
		Phone:      "0722000111",
		FirstName:  "Achieng",
		LastName:   "Otieno",
		NationalID: "30111222",
	}), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var registered storemodels.Member
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))
	assert.Equal(t, models.MemberPending, registered.Status)

	activatePath := "/members/" + registered.ID.Hex() + "/activate"

	t.Run("missing identity", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, activatePath, nil)
		w := serve(router, req, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), errCodeUnauthenticated)
	})

	t.Run("member cannot activate", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, activatePath, nil)
		actor := servicetest.Actor(plain)
		w := serve(router, req, &actor)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), models.ErrCodeForbidden)
	})

	t.Run("malformed id", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, "/members/nope/activate", nil)
		actor := servicetest.Actor(chair)
		w := serve(router, req, &actor)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("chairperson activates", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, activatePath, nil)
		actor := servicetest.Actor(chair)
		w := serve(router, req, &actor)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var activated storemodels.Member
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &activated))
		assert.Equal(t, models.MemberActive, activated.Status)
	})

	t.Run("second activation is a failed precondition", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, activatePath, nil)
		actor := servicetest.Actor(chair)
		w := serve(router, req, &actor)
		assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	})

	t.Run("another member's wallet is hidden", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, "/wallets/"+registered.ID.Hex(), nil)
		actor := servicetest.Actor(plain)
		w := serve(router, req, &actor)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

type MockDepositService struct {
	mock.Mock
}

func (m *MockDepositService) RecordManual(ctx context.Context, actor models.Actor, req models.ManualDepositRequest) (*deposits.Deposit, error) {
	args := m.Called(ctx, actor, req)
	d, _ := args.Get(0).(*deposits.Deposit)
	return d, args.Error(1)
}

func (m *MockDepositService) InitiateGateway(ctx context.Context, actor models.Actor, req models.GatewayDepositRequest) (*storemodels.Transaction, error) {
	args := m.Called(ctx, actor, req)
	tx, _ := args.Get(0).(*storemodels.Transaction)
	return tx, args.Error(1)
}

func (m *MockDepositService) HandleCallback(ctx context.Context, cb models.GatewayCallback) (bool, error) {
	args := m.Called(ctx, cb)
	return args.Bool(0), args.Error(1)
}

func TestDepositCallback(t *testing.T) {
	settled := `{"Body":{"stkCallback":{"MerchantRequestID":"1","CheckoutRequestID":"ws_CO_1",` +
		`"ResultCode":0,"ResultDesc":"ok","CallbackMetadata":{"Item":[` +
		`{"Name":"Amount","Value":250},{"Name":"MpesaReceiptNumber","Value":"QAB12CD"}]}}}}`
	want := models.GatewayCallback{
		TrackingID:    "ws_CO_1",
		ResultDesc:    "ok",
		Amount:        models.KES(250),
		ReceiptNumber: "QAB12CD",
	}

	tests := []struct {
		name       string
		body       string
		setup      func(m *MockDepositService)
		wantStatus int
		wantBody   string
	}{
		{
			name: "applied",
			body: settled,
			setup: func(m *MockDepositService) {
				m.On("HandleCallback", mock.Anything, want).Return(true, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ResultCode":0,"ResultDesc":"Accepted"}`,
		},
		{
			name: "duplicate is still acknowledged",
			body: settled,
			setup: func(m *MockDepositService) {
				m.On("HandleCallback", mock.Anything, want).Return(false, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ResultCode":0,"ResultDesc":"Accepted"}`,
		},
		{
			name: "processing failure asks for a retry",
			body: settled,
			setup: func(m *MockDepositService) {
				m.On("HandleCallback", mock.Anything, want).Return(false, errors.New("mongo unavailable"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"INTERNAL_ERROR","message":"internal error"}`,
		},
		{
			name:       "malformed body",
			body:       `{"Body":`,
			setup:      func(m *MockDepositService) {},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockDepositService{}
			tt.setup(svc)
			router := newRouter()
			router.POST("/deposits/callback", NewDepositHandler(svc).Callback)

			req, _ := http.NewRequest(http.MethodPost, "/deposits/callback", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := serve(router, req, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}

type MockComplianceService struct {
	mock.Mock
}

func (m *MockComplianceService) Sweep(ctx context.Context) *compliance.SweepResponse {
	args := m.Called(ctx)
	return args.Get(0).(*compliance.SweepResponse)
}

func TestComplianceSweep(t *testing.T) {
	tests := []struct {
		name       string
		response   *compliance.SweepResponse
		wantStatus int
	}{
		{
			name:       "clean sweep",
			response:   &compliance.SweepResponse{Scanned: 1, PenalizedIDs: []string{"a"}},
			wantStatus: http.StatusOK,
		},
		{
			name: "partial failure",
			response: &compliance.SweepResponse{
				Scanned:      2,
				DefaultedIDs: []string{"a"},
				FailedIDs:    []string{"b"},
				ErrorMsg:     "write conflict",
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "nothing processed",
			response:   &compliance.SweepResponse{ErrorMsg: "finding overdue loans: timeout"},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockComplianceService{}
			svc.On("Sweep", mock.Anything).Return(tt.response)
			router := newRouter()
			router.POST("/compliance/sweep", NewComplianceHandler(svc).Sweep)

			req, _ := http.NewRequest(http.MethodPost, "/compliance/sweep", nil)
			w := serve(router, req, nil)

			assert.Equal(t, tt.wantStatus, w.Code)
			var got compliance.SweepResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, *tt.response, got)
		})
	}
}

type MockWelfareService struct {
	mock.Mock
}

func (m *MockWelfareService) FileClaim(ctx context.Context, actor models.Actor, req models.WelfareClaimRequest, evidence *models.EvidenceFile) (*storemodels.WelfareClaim, error) {
	args := m.Called(ctx, actor, req, evidence)
	c, _ := args.Get(0).(*storemodels.WelfareClaim)
	return c, args.Error(1)
}

func (m *MockWelfareService) ListMine(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error) {
	args := m.Called(ctx, actor)
	c, _ := args.Get(0).([]storemodels.WelfareClaim)
	return c, args.Error(1)
}

func (m *MockWelfareService) ListAll(ctx context.Context, actor models.Actor) ([]storemodels.WelfareClaim, error) {
	args := m.Called(ctx, actor)
	c, _ := args.Get(0).([]storemodels.WelfareClaim)
	return c, args.Error(1)
}

func (m *MockWelfareService) Review(ctx context.Context, actor models.Actor, id primitive.ObjectID, req models.WelfareClaimReviewRequest) (*storemodels.WelfareClaim, error) {
	args := m.Called(ctx, actor, id, req)
	c, _ := args.Get(0).(*storemodels.WelfareClaim)
	return c, args.Error(1)
}

func claimForm(t *testing.T, amount string, evidence []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("type", "BEREAVEMENT"))
	require.NoError(t, form.WriteField("description", "Funeral costs for a parent"))
	require.NoError(t, form.WriteField("amountRequested", amount))
	if evidence != nil {
		part, err := form.CreateFormFile(consts.EvidenceFormField, "permit.pdf")
		require.NoError(t, err)
		_, err = part.Write(evidence)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, "/welfare/claims", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestWelfareFileClaim(t *testing.T) {
	actor := models.Actor{MemberID: primitive.NewObjectID(), Role: models.RoleMember}
	wantReq := models.WelfareClaimRequest{
		Type:            "BEREAVEMENT",
		Description:     "Funeral costs for a parent",
		AmountRequested: models.KES(5000),
	}

	t.Run("with evidence", func(t *testing.T) {
		svc := &MockWelfareService{}
		svc.On("FileClaim", mock.Anything, actor, wantReq, mock.MatchedBy(func(e *models.EvidenceFile) bool {
			return e != nil && e.Name == "permit.pdf" && string(e.Data) == "%PDF-1.4"
		})).Return(&storemodels.WelfareClaim{Status: models.ClaimPending}, nil)
		router := newRouter()
		router.POST("/welfare/claims", NewWelfareHandler(svc).FileClaim)

		w := serve(router, claimForm(t, "500000", []byte("%PDF-1.4")), &actor)

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("without evidence", func(t *testing.T) {
		svc := &MockWelfareService{}
		svc.On("FileClaim", mock.Anything, actor, wantReq, (*models.EvidenceFile)(nil)).
			Return(&storemodels.WelfareClaim{Status: models.ClaimPending}, nil)
		router := newRouter()
		router.POST("/welfare/claims", NewWelfareHandler(svc).FileClaim)

		w := serve(router, claimForm(t, "500000", nil), &actor)

		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("amount is not a number", func(t *testing.T) {
		svc := &MockWelfareService{}
		router := newRouter()
		router.POST("/welfare/claims", NewWelfareHandler(svc).FileClaim)

		w := serve(router, claimForm(t, "five thousand", nil), &actor)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "FileClaim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
