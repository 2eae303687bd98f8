package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/metrics"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/notify"
	"github.com/erazemk/inventar/internal/store"
)

const testSecret = "test-secret"

type env struct {
	url    string
	token  string
	cfg    Config
	member *model.User
	now    time.Time
}

func newEnv(t *testing.T, tweak ...func(*Config)) *env {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	clock := func() time.Time { return now }

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	blobs := blob.NewMemory("")
	svc := inventory.NewService(database,
		inventory.WithMetrics(m),
		inventory.WithBlobStore(blobs),
		inventory.WithClock(clock),
	)
	notes := notify.NewService(database, zerolog.Nop(), m)
	notes.SetClock(clock)
	svc.OnChange(notes.RefreshQuietly)

	hash, err := auth.HashPassword("password")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, database, model.User{Name: "Ana", Email: "ana@example.com", Role: model.RoleAdmin, PasswordHash: hash})
	require.NoError(t, err)
	member, err := store.CreateUser(ctx, database, model.User{Name: "Rui", Email: "rui@example.com", Role: model.RoleMember})
	require.NoError(t, err)

	cfg := Config{
		DB:            database,
		Inventory:     svc,
		Notify:        notes,
		Blobs:         blobs,
		Metrics:       m,
		Gatherer:      reg,
		Log:           zerolog.Nop(),
		SessionSecret: testSecret,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}
	server := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(server.Close)

	e := &env{url: server.URL, cfg: cfg, member: member, now: now}
	e.token = e.signIn(t, "ana@example.com", "password")
	return e
}

func (e *env) signIn(t *testing.T, email, password string) string {
	t.Helper()
	var out sessionResponse
	resp := e.do(t, "", http.MethodPost, "/api/session", map[string]string{"email": email, "password": password}, &out)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, out.Token)
	return out.Token
}

// do sends a JSON request and decodes the response into out when given.
func (e *env) do(t *testing.T, token, method, path string, body, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.url+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *env) upload(t *testing.T, method, path, field, filename, contentType string, data []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(method, e.url+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *env) createItem(t *testing.T, name string, qty, minQty int) model.Item {
	t.Helper()
	var item model.Item
	resp := e.do(t, e.token, http.MethodPost, "/api/items", map[string]any{
		"name": name, "quantity": qty, "minQuantity": minQty, "unit": "pcs",
	}, &item)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return item
}

func TestSessionLifecycle(t *testing.T) {
	e := newEnv(t)

	var errBody errorBody
	resp := e.do(t, "", http.MethodPost, "/api/session", map[string]string{"email": "ana@example.com", "password": "wrong"}, &errBody)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Users without a password sign in by email.
	memberToken := e.signIn(t, "RUI@example.com", "")

	var current sessionResponse
	resp = e.do(t, memberToken, http.MethodGet, "/api/session", nil, &current)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, e.member.ID, current.User.ID)
	assert.Equal(t, model.RoleMember, current.User.Role)

	resp = e.do(t, memberToken, http.MethodDelete, "/api/session", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, memberToken, http.MethodGet, "/api/session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "revoked token")
}

func TestUnauthenticatedAccess(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, "", http.MethodGet, "/api/items", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, "not-a-token", http.MethodGet, "/api/items", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.do(t, "", http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUserManagementRequiresAdmin(t *testing.T) {
	e := newEnv(t)
	memberToken := e.signIn(t, "rui@example.com", "")

	resp := e.do(t, memberToken, http.MethodGet, "/api/users", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Members still use the inventory.
	resp = e.do(t, memberToken, http.MethodGet, "/api/items", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var created model.User
	resp = e.do(t, e.token, http.MethodPost, "/api/users", map[string]string{
		"name": "Eva", "email": "eva@example.com", "password": "longenough",
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.RoleMember, created.Role)

	resp = e.do(t, e.token, http.MethodPost, "/api/users", map[string]string{
		"name": "Eva again", "email": "EVA@example.com",
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var updated model.User
	resp = e.do(t, e.token, http.MethodPatch, "/api/users/"+created.ID, map[string]string{"role": "admin"}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.RoleAdmin, updated.Role)
	assert.Equal(t, "eva@example.com", updated.Email)

	e.signIn(t, "eva@example.com", "longenough")
}

func TestValidationErrors(t *testing.T) {
	e := newEnv(t)

	var body errorBody
	resp := e.do(t, e.token, http.MethodPost, "/api/items", map[string]any{"quantity": -1}, &body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "required", body.Fields["name"])
	assert.Equal(t, "gte", body.Fields["quantity"])

	resp = e.do(t, e.token, http.MethodPost, "/api/movements", map[string]any{
		"itemId": "x", "type": "sideways", "reason": "other", "quantity": 1,
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, e.token, http.MethodGet, "/api/loans?state=lost", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMovementAndLoanFlow(t *testing.T) {
	e := newEnv(t)
	item := e.createItem(t, "Drill", 5, 1)
	assert.Equal(t, 5, item.Quantity)

	var m model.Movement
	resp := e.do(t, e.token, http.MethodPost, "/api/movements", map[string]any{
		"itemId": item.ID, "type": "Saída", "reason": "Uso", "quantity": 2,
	}, &m)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.MovementOutput, m.Type)
	assert.Equal(t, "Ana", m.ResponsibleUser.Name)

	var body errorBody
	resp = e.do(t, e.token, http.MethodPost, "/api/movements", map[string]any{
		"itemId": item.ID, "type": "output", "reason": "use", "quantity": 10,
	}, &body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body.Error, "insufficient stock")

	var loan model.Loan
	resp = e.do(t, e.token, http.MethodPost, "/api/loans", map[string]any{
		"itemId": item.ID, "borrowerId": e.member.ID, "quantity": 3,
		"expectedReturnDate": e.now.Add(72 * time.Hour),
	}, &loan)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var got model.Item
	e.do(t, e.token, http.MethodGet, "/api/items/"+item.ID, nil, &got)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, model.StatusBorrowed, got.Status)

	resp = e.do(t, e.token, http.MethodDelete, "/api/items/"+item.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "active loan blocks delete")

	var active []model.Loan
	e.do(t, e.token, http.MethodGet, "/api/loans?state=active&borrower="+e.member.ID, nil, &active)
	require.Len(t, active, 1)

	var ret inventory.LoanReturn
	resp = e.do(t, e.token, http.MethodPost, "/api/loans/"+loan.ID+"/return", nil, &ret)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, ret.Movement)
	assert.Equal(t, "Return of loan by Rui", ret.Movement.Notes)

	resp = e.do(t, e.token, http.MethodPost, "/api/loans/"+loan.ID+"/return", nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	e.do(t, e.token, http.MethodGet, "/api/items/"+item.ID, nil, &got)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, model.StatusAvailable, got.Status)

	var ledger []model.Movement
	e.do(t, e.token, http.MethodGet, "/api/items/"+item.ID+"/movements", nil, &ledger)
	assert.Len(t, ledger, 4, "initial stock, use, loan, return")

	var outputs []model.Movement
	e.do(t, e.token, http.MethodGet, "/api/movements?type=output&q=loan", nil, &outputs)
	require.Len(t, outputs, 1)
	assert.Equal(t, "Loan to Rui", outputs[0].Notes)

	resp = e.do(t, e.token, http.MethodGet, "/api/loans/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestItemEditAndQueries(t *testing.T) {
	e := newEnv(t)

	var loc model.Location
	resp := e.do(t, e.token, http.MethodPost, "/api/locations", map[string]any{"name": "Shelf", "capacity": 10}, &loc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var cat model.Category
	resp = e.do(t, e.token, http.MethodPost, "/api/categories", map[string]string{"name": "Tools"}, &cat)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	item := e.createItem(t, "Hammer", 4, 2)
	e.createItem(t, "Saw", 1, 0)

	var edited model.Item
	resp = e.do(t, e.token, http.MethodPatch, "/api/items/"+item.ID, map[string]any{
		"quantity": 1, "locationId": loc.ID, "category": map[string]string{"id": cat.ID},
	}, &edited)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, edited.Quantity)
	assert.Equal(t, "Tools", edited.Category.Name)

	var low []model.Item
	e.do(t, e.token, http.MethodGet, "/api/items?lowStock=true", nil, &low)
	require.Len(t, low, 1)
	assert.Equal(t, item.ID, low[0].ID)

	var found []model.Item
	e.do(t, e.token, http.MethodGet, "/api/items?q=tools", nil, &found)
	assert.Len(t, found, 1)

	var atShelf []model.Item
	e.do(t, e.token, http.MethodGet, "/api/locations/"+loc.ID+"/items", nil, &atShelf)
	assert.Len(t, atShelf, 1)

	resp = e.do(t, e.token, http.MethodDelete, "/api/locations/"+loc.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var notes []model.Notification
	e.do(t, e.token, http.MethodGet, "/api/notifications", nil, &notes)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotificationLowStock, notes[0].Type)

	var unread map[string]int
	e.do(t, e.token, http.MethodGet, "/api/notifications/unread", nil, &unread)
	assert.Equal(t, 1, unread["unread"])

	resp = e.do(t, e.token, http.MethodPost, "/api/notifications/"+notes[0].ID+"/read", nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	e.do(t, e.token, http.MethodGet, "/api/notifications/unread", nil, &unread)
	assert.Equal(t, 0, unread["unread"])

	resp = e.do(t, e.token, http.MethodPost, "/api/notifications/nope/read", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocumentsAndFiles(t *testing.T) {
	e := newEnv(t)
	item := e.createItem(t, "Projector", 1, 0)

	resp := e.upload(t, http.MethodPost, "/api/items/"+item.ID+"/documents", "file", "manual.pdf", "application/pdf", []byte("%PDF-1.4 test"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc model.Document
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	assert.Equal(t, model.DocumentPDF, doc.Type)

	req, err := http.NewRequest(http.MethodGet, e.url+doc.URL, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token)
	fileResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	require.Equal(t, http.StatusOK, fileResp.StatusCode)
	data, _ := io.ReadAll(fileResp.Body)
	assert.Equal(t, "%PDF-1.4 test", string(data))
	assert.Equal(t, "application/pdf", fileResp.Header.Get("Content-Type"))

	delResp := e.do(t, e.token, http.MethodDelete, "/api/items/"+item.ID+"/documents/"+doc.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	missing := e.do(t, e.token, http.MethodGet, doc.URL, nil, nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad := e.upload(t, http.MethodPut, "/api/items/"+item.ID+"/image", "image", "photo.jpg", "image/jpeg", []byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestReportsAndMetrics(t *testing.T) {
	e := newEnv(t)
	e.createItem(t, "Tape", 3, 5)

	var summary struct {
		UniqueItems   int `json:"uniqueItems"`
		LowStockItems int `json:"lowStockItems"`
	}
	resp := e.do(t, e.token, http.MethodGet, "/api/reports/summary", nil, &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, summary.UniqueItems)
	assert.Equal(t, 1, summary.LowStockItems)

	resp = e.do(t, e.token, http.MethodGet, "/api/reports/inventory.pdf", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp = e.do(t, e.token, http.MethodGet, "/api/reports/export.xlsx", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	metricsResp, err := http.Get(e.url + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	text, _ := io.ReadAll(metricsResp.Body)
	assert.Contains(t, string(text), "inventar_http_request_duration_seconds")
	assert.Contains(t, string(text), "inventar_movements_total")
}

func TestRateLimit(t *testing.T) {
	e := newEnv(t, func(c *Config) {
		c.RateLimit = 0.001
		c.RateBurst = 2
	})

	// Sign in used the first token.
	resp := e.do(t, e.token, http.MethodGet, "/api/session", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = e.do(t, e.token, http.MethodGet, "/api/session", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestStoreFailureReportsSteps(t *testing.T) {
	e := newEnv(t)
	item := e.createItem(t, "Drill", 5, 0)

	_, err := e.cfg.DB.Exec(`CREATE TRIGGER fail_movement_insert BEFORE INSERT ON movements
		BEGIN SELECT RAISE(ABORT, 'disk full'); END`)
	require.NoError(t, err)

	var body errorBody
	resp := e.do(t, e.token, http.MethodPost, "/api/movements", map[string]any{
		"itemId": item.ID, "type": "output", "reason": "use", "quantity": 2,
	}, &body)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "record movement", body.Operation)
	assert.Equal(t, []string{"apply quantity"}, body.Completed)
	assert.Equal(t, "append movement", body.Failed)
	require.NotNil(t, body.RolledBack)
	assert.True(t, *body.RolledBack)

	var got model.Item
	e.do(t, e.token, http.MethodGet, "/api/items/"+item.ID, nil, &got)
	assert.Equal(t, 5, got.Quantity)
}
