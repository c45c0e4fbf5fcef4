package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/CallPilotAI/callpilot-voice-service/internal/config"
	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"github.com/CallPilotAI/callpilot-voice-service/internal/services/callconfig"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL   = "https://voice.example.com"
	testAuthToken = "test-auth-token"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// fakeTenantStore serves tenants keyed by owned phone number and counts
// lookups so tests can assert the store was never touched.
type fakeTenantStore struct {
	byNumber map[string]*domain.Tenant
	lookups  int
	err      error
}

func (s *fakeTenantStore) GetByPhoneNumber(ctx context.Context, number string) (*domain.Tenant, error) {
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	tenant, ok := s.byNumber[number]
	if !ok {
		return nil, fmt.Errorf("no tenant owns %s: %w", number, domain.ErrTenantNotFound)
	}
	return tenant, nil
}

func (s *fakeTenantStore) GetCallConfig(ctx context.Context, id string) (domain.CallConfig, error) {
	return domain.CallConfig{}, domain.ErrTenantNotFound
}

func (s *fakeTenantStore) Create(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	return nil, domain.ErrPersistence
}

func (s *fakeTenantStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (s *fakeTenantStore) GetAll(ctx context.Context) ([]*domain.Tenant, error) { return nil, nil }

func (s *fakeTenantStore) Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error) {
	return nil, domain.ErrTenantNotFound
}

func (s *fakeTenantStore) Delete(ctx context.Context, id string) error { return domain.ErrTenantNotFound }

func (s *fakeTenantStore) MergeCallConfig(ctx context.Context, id string, partial domain.CallConfig) (domain.CallConfig, error) {
	return domain.CallConfig{}, domain.ErrTenantNotFound
}

// fakeNumberStore satisfies the phone number repository for cache wiring.
type fakeNumberStore struct{}

func (s *fakeNumberStore) Register(ctx context.Context, req *domain.RegisterPhoneNumberRequest) (*domain.PhoneNumber, error) {
	return nil, domain.ErrPersistence
}

func (s *fakeNumberStore) GetByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	return nil, domain.ErrTenantNotFound
}

func (s *fakeNumberStore) ListByTenant(ctx context.Context, tenantID string) ([]*domain.PhoneNumber, error) {
	return nil, nil
}

func (s *fakeNumberStore) Deactivate(ctx context.Context, number string) error {
	return domain.ErrTenantNotFound
}

// fakeCallLogStore mimics the upsert-by-CallSid semantics in memory.
type fakeCallLogStore struct {
	rows map[string]*domain.CallLog
	err  error
}

func newFakeCallLogStore() *fakeCallLogStore {
	return &fakeCallLogStore{rows: make(map[string]*domain.CallLog)}
}

func (s *fakeCallLogStore) Upsert(ctx context.Context, callSid, from, to, direction, status string) (*domain.CallLog, error) {
	if s.err != nil {
		return nil, s.err
	}
	if row, ok := s.rows[callSid]; ok {
		row.Status = status
		return row, nil
	}
	row := &domain.CallLog{
		CallSid:    callSid,
		FromNumber: from,
		ToNumber:   to,
		Direction:  direction,
		Status:     status,
	}
	s.rows[callSid] = row
	return row, nil
}

func (s *fakeCallLogStore) GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error) {
	if row, ok := s.rows[callSid]; ok {
		return row, nil
	}
	return nil, nil
}

func (s *fakeCallLogStore) List(ctx context.Context, limit, offset int) ([]*domain.CallLog, error) {
	var rows []*domain.CallLog
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	return rows, nil
}

type webhookFixture struct {
	router   *mux.Router
	tenants  *fakeTenantStore
	callLogs *fakeCallLogStore
}

func newWebhookFixture(t *testing.T, authToken string) *webhookFixture {
	t.Helper()

	tenants := &fakeTenantStore{byNumber: map[string]*domain.Tenant{
		"+15550001111": {
			ID: "tenant-1",
			CallConfig: domain.CallConfig{
				Greeting: strPtr("Hola"),
				VoiceID:  strPtr("Polly.Lupe"),
				Language: strPtr("es-MX"),
			},
		},
		"+15550002222": {
			ID: "tenant-2",
			CallConfig: domain.CallConfig{
				Enabled: boolPtr(false),
			},
		},
		"+15550003333": {
			ID: "tenant-3",
			CallConfig: domain.CallConfig{
				Instructions: strPtr("Briefly describe why you are calling."),
			},
		},
		"+15550004444": {
			ID: "tenant-4",
			CallConfig: domain.CallConfig{
				Language: strPtr(""),
			},
		},
	}}
	callLogs := newFakeCallLogStore()

	cfg := &config.VoiceGatewayConfig{
		PublicBaseURL:   testBaseURL,
		TwilioAuthToken: authToken,
		DefaultGreeting: "Hello, thank you for calling.",
		DefaultVoiceID:  "alice",
		DefaultLanguage: "en-US",
	}
	configService := callconfig.NewService(callconfig.Defaults{
		Greeting: cfg.DefaultGreeting,
		VoiceID:  cfg.DefaultVoiceID,
		Language: cfg.DefaultLanguage,
	}, tenants, &fakeNumberStore{}, nil, 0)

	router := mux.NewRouter()
	NewVoiceWebhookHandler(cfg, configService, callLogs).SetupWebhookRoutes(router)

	return &webhookFixture{router: router, tenants: tenants, callLogs: callLogs}
}

// twilioSignature reproduces the provider's signing scheme: HMAC-SHA1 of
// the full URL followed by the sorted form keys and values, base64 encoded.
func twilioSignature(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var payload strings.Builder
	payload.WriteString(fullURL)
	for _, key := range keys {
		payload.WriteString(key)
		payload.WriteString(form.Get(key))
	}

	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(payload.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (f *webhookFixture) post(path string, form url.Values, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *webhookFixture) postSigned(path string, form url.Values) *httptest.ResponseRecorder {
	return f.post(path, form, twilioSignature(testAuthToken, testBaseURL+path, form))
}

func inboundCallForm(callSid, to string) url.Values {
	return url.Values{
		"CallSid":    {callSid},
		"From":       {"+15551234567"},
		"To":         {to},
		"CallStatus": {"ringing"},
		"Direction":  {"inbound"},
	}
}

func TestHandleInboundCall_TenantGreeting(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA100", "+15550001111"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `voice="Polly.Lupe"`)
	assert.Contains(t, body, `language="es-MX"`)
	assert.Contains(t, body, ">Hola<")
	assert.NotContains(t, body, "<Gather")

	row, err := f.callLogs.GetByCallSid(context.Background(), "CA100")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "+15551234567", row.FromNumber)
	assert.Equal(t, "+15550001111", row.ToNumber)
	assert.Equal(t, "ringing", row.Status)
}

func TestHandleInboundCall_DisabledTenantGetsClosure(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA200", "+15550002222"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "currently unavailable")
	assert.Contains(t, body, "<Hangup")

	// The attempt is still logged.
	row, err := f.callLogs.GetByCallSid(context.Background(), "CA200")
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestHandleInboundCall_InstructionsAddGather(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA300", "+15550003333"))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Hello, thank you for calling.")
	assert.Contains(t, body, `<Gather input="speech"`)
	assert.Contains(t, body, "Briefly describe why you are calling.")
}

func TestHandleInboundCall_UnknownDestination(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA400", "+15559990000"))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "not in service")
	assert.Contains(t, body, "<Hangup")
	// The generic document must not leak internal identifiers.
	assert.NotContains(t, body, "tenant")

	// No call log row for an unknown destination.
	row, err := f.callLogs.GetByCallSid(context.Background(), "CA400")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestHandleInboundCall_UnresolvableConfigFallsBack(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA500", "+15550004444"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello. Thank you for calling.")

	row, err := f.callLogs.GetByCallSid(context.Background(), "CA500")
	require.NoError(t, err)
	require.NotNil(t, row)
}

func TestHandleInboundCall_StorageFailureStillAnswers(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)
	f.tenants.err = fmt.Errorf("connection refused: %w", domain.ErrPersistence)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA600", "+15550001111"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Hello. Thank you for calling.")
}

func TestHandleInboundCall_MissingFields(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	form := url.Values{"From": {"+15551234567"}}
	rec := f.postSigned("/webhook/voice", form)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInboundCall_LogFailureIsNonFatal(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)
	f.callLogs.err = fmt.Errorf("insert failed: %w", domain.ErrPersistence)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA700", "+15550001111"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ">Hola<")
}

func TestHandleStatusCallback_UpsertsSameRow(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/voice", inboundCallForm("CA800", "+15550001111"))
	require.Equal(t, http.StatusOK, rec.Code)

	form := inboundCallForm("CA800", "+15550001111")
	form.Set("CallStatus", "completed")
	rec = f.postSigned("/webhook/status", form)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rows, err := f.callLogs.List(context.Background(), 0, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "completed", rows[0].Status)
}

func TestHandleStatusCallback_MissingFields(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	rec := f.postSigned("/webhook/status", url.Values{"CallSid": {"CA900"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignatureMiddleware_RejectsBeforeStorageAccess(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	form := inboundCallForm("CA1000", "+15550001111")

	for name, signature := range map[string]string{
		"missing signature":  "",
		"tampered signature": twilioSignature("wrong-token", testBaseURL+"/webhook/voice", form),
	} {
		rec := f.post("/webhook/voice", form, signature)
		assert.Equal(t, http.StatusForbidden, rec.Code, name)
	}

	// Neither request may touch the tenant store or leave a call log row.
	assert.Equal(t, 0, f.tenants.lookups)
	row, err := f.callLogs.GetByCallSid(context.Background(), "CA1000")
	require.NoError(t, err)
	assert.Nil(t, row)
}

func TestSignatureMiddleware_RejectsModifiedParams(t *testing.T) {
	f := newWebhookFixture(t, testAuthToken)

	form := inboundCallForm("CA1100", "+15550001111")
	signature := twilioSignature(testAuthToken, testBaseURL+"/webhook/voice", form)

	// Change a field after signing.
	form.Set("To", "+15550002222")

	rec := f.post("/webhook/voice", form, signature)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, f.tenants.lookups)
}

func TestSignatureMiddleware_DisabledWithoutToken(t *testing.T) {
	f := newWebhookFixture(t, "")

	rec := f.post("/webhook/voice", inboundCallForm("CA1200", "+15550001111"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ">Hola<")
}
