package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/ledger"
	"github.com/ripplegate/ripplegate/internal/middleware"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/purchase"
	"github.com/ripplegate/ripplegate/internal/store"
	"github.com/ripplegate/ripplegate/internal/testutil"
)

const (
	testSecret = "test-secret"
	wallet     = "rHb9CJAWyB4rj91VRWn96DkukG4bwdtyTh"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubLedger struct {
	mintErr error
	// transferErr is returned with a minted result.
	transferErr error
	owned       []ledger.Token
	listErr     error
}

func (s *stubLedger) MintTicketToken(_ context.Context, req ledger.MintRequest) (ledger.MintResult, error) {
	res := ledger.MintResult{TokenID: "NFT-" + req.TicketID, TxHash: "TX-" + req.TicketID, Metadata: ledger.NewTicketMetadata(req)}
	if s.mintErr != nil {
		return ledger.MintResult{}, s.mintErr
	}
	if s.transferErr != nil {
		return res, fmt.Errorf("%w: %w", ledger.ErrTransferFailed, s.transferErr)
	}
	s.owned = append(s.owned, ledger.Token{NFTokenID: res.TokenID})
	return res, nil
}

func (s *stubLedger) VerifyOwnership(_ context.Context, tokenID, _ string) bool {
	for _, tok := range s.owned {
		if tok.NFTokenID == tokenID {
			return true
		}
	}
	return false
}

func (s *stubLedger) ListOwnedTokens(context.Context, string) ([]ledger.Token, error) {
	return s.owned, s.listErr
}

type testEnv struct {
	db     *gorm.DB
	ledger *stubLedger
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	db := testutil.NewTestDB(t)
	st := store.New(db)
	fake := &stubLedger{}
	h := New(st, purchase.NewService(st, fake), fake, AuthConfig{Secret: testSecret})

	r := gin.New()
	auth := middleware.JWTAuthMiddleware(testSecret)
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)
	r.GET("/auth/me", auth, h.Me)
	r.GET("/events", h.ListEvents)
	r.POST("/events", auth, h.CreateEvent)
	r.POST("/tickets/buy", h.BuyTicket)
	r.GET("/tickets/user/:userId", h.ListUserTickets)
	r.GET("/tickets/verify/:ticketId", h.VerifyTicket)
	r.GET("/tickets/nfts/:walletAddress", h.ListWalletNFTs)
	r.GET("/tickets/activity", h.RecentActivity)
	r.GET("/tickets/pending", auth, h.ListPendingTickets)
	r.GET("/tickets/:ticketId/qr", auth, h.GenerateTicketQR)
	r.POST("/tickets/validate", auth, h.ValidateTicket)
	r.GET("/health", h.Health)

	return &testEnv{db: db, ledger: fake, router: r}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func tokenFor(t *testing.T, user models.User) string {
	token, err := helpers.GenerateToken(testSecret, user.ID, user.Email, time.Hour)
	require.NoError(t, err)
	return token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuth_RegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"email": "Alice@example.com", "password": "hunter22", "wallet_address": wallet,
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["token"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), "token=")

	w = env.do(t, http.MethodPost, "/auth/register", gin.H{
		"email": "alice@example.com", "password": "hunter22", "wallet_address": wallet,
	}, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "alice@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/auth/login", gin.H{"email": "alice@example.com", "password": "hunter22"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = env.do(t, http.MethodGet, "/auth/me", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "alice@example.com", me["email"])
	assert.Equal(t, wallet, me["wallet_address"])
}

func TestAuth_RegisterRejectsBadWallet(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/auth/register", gin.H{
		"email": "bob@example.com", "password": "hunter22", "wallet_address": "not-a-wallet",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEvents_CreateAndList(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.InsertUser(t, env.db, "host@example.com", wallet)

	body := gin.H{
		"title": "Launch", "location": "Main Hall", "description": "Opening night",
		"tickets": 100, "price": "12.5", "date": "2026-12-01", "time": "2026-12-01T19:30:00.000Z",
	}
	w := env.do(t, http.MethodPost, "/events", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/events", body, tokenFor(t, host))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "2026-12-01", created["date"])
	assert.Equal(t, "19:30:00", created["time"])

	w = env.do(t, http.MethodPost, "/events", body, tokenFor(t, host))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodGet, "/events", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var events []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "Launch", events[0]["title"])
	assert.Equal(t, "12.5", events[0]["price"])
}

func TestEvents_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := tokenFor(t, testutil.InsertUser(t, env.db, "host@example.com", wallet))

	for name, body := range map[string]gin.H{
		"negative tickets": {"title": "A", "location": "L1", "description": "d", "tickets": -1, "date": "2026-12-01", "time": "19:00:00"},
		"bad date":         {"title": "A", "location": "L2", "description": "d", "tickets": 1, "date": "01/12/2026", "time": "19:00:00"},
		"bad time":         {"title": "A", "location": "L3", "description": "d", "tickets": 1, "date": "2026-12-01", "time": "evening"},
		"missing tickets":  {"title": "A", "location": "L4", "description": "d", "date": "2026-12-01", "time": "19:00:00"},
	} {
		t.Run(name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/events", body, token)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestBuyTicket_Flow(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 1, 10)

	w := env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": user.ID}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Ticket purchased successfully", body["message"])
	ticket := body["ticket"].(map[string]any)
	assert.Equal(t, "confirmed", ticket["status"])
	assert.Equal(t, "10", ticket["price"])
	details := body["nft_details"].(map[string]any)
	assert.Equal(t, true, details["success"])
	assert.Equal(t, ticket["nft_id"], details["nft_id"])
	assert.Equal(t, "RippleGate", details["metadata"].(map[string]any)["platform"])

	w = env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": user.ID}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No tickets available.", decode(t, w)["message"])

	w = env.do(t, http.MethodGet, "/tickets/verify/"+ticket["id"].(string), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	verify := decode(t, w)
	assert.Equal(t, true, verify["verified"])
	assert.Equal(t, ticket["nft_id"], verify["nft_id"])

	w = env.do(t, http.MethodGet, "/tickets/user/"+user.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tickets []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, wallet, tickets[0]["user_wallet"])

	w = env.do(t, http.MethodGet, "/tickets/activity", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	activity := decode(t, w)["activity"].([]any)
	require.Len(t, activity, 1)
	entry := activity[0].(map[string]any)
	assert.Equal(t, "buyer", entry["user_name"])
	assert.Equal(t, "Launch", entry["event_name"])
}

func TestBuyTicket_Errors(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing fields", gin.H{"event_id": event.ID}, http.StatusBadRequest},
		{"camel case unknown user", gin.H{"eventId": event.ID, "userId": uuid.New()}, http.StatusNotFound},
		{"bad uuid", gin.H{"event_id": "12", "user_id": user.ID}, http.StatusBadRequest},
		{"unknown event", gin.H{"event_id": uuid.New(), "user_id": user.ID}, http.StatusNotFound},
		{"unknown user", gin.H{"event_id": event.ID, "user_id": uuid.New()}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/tickets/buy", tt.body, "")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, testutil.CountTickets(t, env.db))
}

func TestBuyTicket_MintFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)
	env.ledger.mintErr = &ledger.MintError{Err: &ledger.EngineError{Result: "tecINSUFFICIENT_RESERVE"}}

	w := env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": user.ID}, "")

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Failed to mint NFT ticket.", body["message"])
	assert.Contains(t, body["details"], "tecINSUFFICIENT_RESERVE")
}

func TestBuyTicket_TransferFailureIsBadGateway(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)
	env.ledger.transferErr = &ledger.EngineError{Result: "tecNO_DST"}

	w := env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": user.ID}, "")

	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode(t, w)
	assert.Equal(t, "NFT minted but transfer failed.", body["message"])
	assert.Contains(t, body["details"], "tecNO_DST")

	var stored models.Ticket
	require.NoError(t, env.db.First(&stored).Error)
	assert.Equal(t, models.TicketStatusFailed, stored.Status)
	require.NotNil(t, stored.NFTID)
	assert.Equal(t, "NFT-"+stored.ID.String(), *stored.NFTID)
}

func TestBuyTicket_UnsettledMintIsGatewayTimeout(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)
	env.ledger.mintErr = &ledger.MintError{Err: &ledger.UnsettledError{Hash: "MINTHASH", LastLedgerSequence: 120}}

	w := env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": user.ID}, "")

	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	body := decode(t, w)
	assert.Contains(t, body["details"], "MINTHASH")

	var stored models.Ticket
	require.NoError(t, env.db.First(&stored).Error)
	assert.Equal(t, models.TicketStatusPending, stored.Status)
}

func TestVerifyTicket_NotMinted(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)
	ticket := models.Ticket{EventID: event.ID, UserID: user.ID, Price: event.Price}
	require.NoError(t, env.db.Create(&ticket).Error)

	w := env.do(t, http.MethodGet, "/tickets/verify/"+ticket.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["verified"])
	assert.NotEmpty(t, body["reason"])

	w = env.do(t, http.MethodGet, "/tickets/verify/"+uuid.NewString(), nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodGet, "/tickets/verify/nope", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListWalletNFTs(t *testing.T) {
	env := newTestEnv(t)
	env.ledger.owned = []ledger.Token{{NFTokenID: "A"}, {NFTokenID: "B"}}

	w := env.do(t, http.MethodGet, "/tickets/nfts/"+wallet, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["nfts"], 2)

	env.ledger.listErr = errors.New("actNotFound")
	w = env.do(t, http.MethodGet, "/tickets/nfts/"+wallet, nil, "")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body = decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "actNotFound", body["error"])
}

func TestTicketPass_GenerateAndValidate(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.InsertUser(t, env.db, "host@example.com", wallet)
	buyer := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	event := testutil.InsertEvent(t, env.db, "Launch", 3, 10)
	require.NoError(t, env.db.Model(&event).Update("host_id", host.ID).Error)

	w := env.do(t, http.MethodPost, "/tickets/buy", gin.H{"event_id": event.ID, "user_id": buyer.ID}, "")
	require.Equal(t, http.StatusCreated, w.Code)
	ticketID := decode(t, w)["ticket"].(map[string]any)["id"].(string)

	w = env.do(t, http.MethodGet, "/tickets/"+ticketID+"/qr", nil, tokenFor(t, host))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/tickets/"+ticketID+"/qr", nil, tokenFor(t, buyer))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())

	var ticket models.Ticket
	require.NoError(t, env.db.First(&ticket, "id = ?", ticketID).Error)
	qrData := helpers.NewPassSigner(testSecret).Encode(ticket.ID, ticket.EventID, ticket.UserID, *ticket.NFTID)

	w = env.do(t, http.MethodPost, "/tickets/validate", gin.H{"qr_data": qrData}, tokenFor(t, buyer))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/tickets/validate", gin.H{"qr_data": qrData + "00"}, tokenFor(t, host))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/tickets/validate", gin.H{"qr_data": qrData}, tokenFor(t, host))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Ticket validated successfully", decode(t, w)["message"])

	w = env.do(t, http.MethodPost, "/tickets/validate", gin.H{"qr_data": qrData}, tokenFor(t, host))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/tickets/validate", gin.H{"qr_data": "garbage"}, tokenFor(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPendingTickets(t *testing.T) {
	env := newTestEnv(t)
	host := testutil.InsertUser(t, env.db, "host@example.com", wallet)
	buyer := testutil.InsertUser(t, env.db, "buyer@example.com", wallet)
	mine := testutil.InsertEvent(t, env.db, "Mine", 3, 10)
	other := testutil.InsertEvent(t, env.db, "Other", 3, 10)
	require.NoError(t, env.db.Model(&mine).Update("host_id", host.ID).Error)

	old := time.Now().Add(-time.Hour)
	for _, ev := range []models.Event{mine, other} {
		ticket := models.Ticket{EventID: ev.ID, UserID: buyer.ID, Price: ev.Price, CreatedAt: old}
		require.NoError(t, env.db.Create(&ticket).Error)
	}

	w := env.do(t, http.MethodGet, "/tickets/pending", nil, tokenFor(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	var tickets []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tickets))
	require.Len(t, tickets, 1)
	assert.Equal(t, mine.ID.String(), tickets[0]["event_id"])

	w = env.do(t, http.MethodGet, "/tickets/pending?older_than=2h", nil, tokenFor(t, host))
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tickets))
	assert.Empty(t, tickets)

	w = env.do(t, http.MethodGet, "/tickets/pending?older_than=soon", nil, tokenFor(t, host))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}
