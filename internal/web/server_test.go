package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/panel"
	"VPN-Connect-API/internal/payment"
	"VPN-Connect-API/internal/ratelimit"
	"VPN-Connect-API/internal/storage"
	"VPN-Connect-API/internal/token"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const testBaseURL = "https://vpn.example.com"

// fakePanel — клиенты в памяти, без сети.
type fakePanel struct {
	mu       sync.Mutex
	clients  map[string]*panel.ClientStatus
	loginErr error
	addErr   error
	adds     int
}

func newFakePanel() *fakePanel {
	return &fakePanel{clients: map[string]*panel.ClientStatus{}}
}

func (f *fakePanel) Login(context.Context) error { return f.loginErr }

func (f *fakePanel) GetClientByEmail(_ context.Context, _ int, email string) (*panel.ClientStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.clients[email]
	if !ok {
		return nil, panel.ErrClientNotFound
	}
	cp := *st
	return &cp, nil
}

func (f *fakePanel) AddClient(_ context.Context, inboundID int, email, id string, days int) (panel.ClientInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return panel.ClientInfo{}, f.addErr
	}
	f.adds++
	info := panel.ClientInfo{
		UUID:          id,
		Email:         email,
		InboundID:     inboundID,
		ServerAddress: "vpn.example.com",
		Port:          443,
		PublicKey:     "test-pbk",
		ShortID:       "ab12",
		ServerName:    "yahoo.com",
	}
	f.clients[email] = &panel.ClientStatus{
		ClientInfo: info,
		ExpiryTime: time.Now().Add(time.Duration(days) * 24 * time.Hour).UnixMilli(),
		Enable:     true,
	}
	return info, nil
}

func (f *fakePanel) ExtendClientByEmail(_ context.Context, _ int, email string, days int) (*panel.ClientStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.clients[email]
	if !ok {
		return nil, panel.ErrClientNotFound
	}
	st.ExpiryTime += int64(days) * 86400000
	cp := *st
	return &cp, nil
}

func (f *fakePanel) GetClientTraffic(_ context.Context, _ int, id string) (*panel.TrafficStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, st := range f.clients {
		if st.UUID == id {
			return &panel.TrafficStats{
				UUID:       id,
				Email:      st.Email,
				Up:         100,
				Down:       200,
				Total:      10737418240,
				ExpiryTime: st.ExpiryTime,
			}, nil
		}
	}
	return nil, panel.ErrClientNotFound
}

type fakeTrials struct {
	mu   sync.Mutex
	rows map[string]*db.Trial
}

func newFakeTrials() *fakeTrials { return &fakeTrials{rows: map[string]*db.Trial{}} }

func (f *fakeTrials) Get(telegramID string) (*db.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.rows[telegramID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrials) MarkUsed(t *db.Trial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *t
	f.rows[t.TelegramID] = &cp
	return nil
}

type fakePayments struct {
	mu   sync.Mutex
	rows map[string]*db.Payment
}

func newFakePayments() *fakePayments { return &fakePayments{rows: map[string]*db.Payment{}} }

func (f *fakePayments) put(p *db.Payment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[p.PaymentID] = p
}

func (f *fakePayments) Save(p *db.Payment) error {
	cp := *p
	f.put(&cp)
	return nil
}

func (f *fakePayments) MarkStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakePayments) GetByID(id string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) GetByEmail(email string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakePayments) GetByTelegramID(id string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.rows {
		if p.TelegramID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

type fakeGateway struct {
	created []string
	err     error
}

func (f *fakeGateway) CreatePayment(_ context.Context, amount float64, days int, email, telegramID, returnURL string) (*payment.CreatedPayment, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, email)
	return &payment.CreatedPayment{
		ID:              "pay-test-1",
		Status:          "pending",
		ConfirmationURL: "https://yookassa.ru/checkout/pay-test-1",
	}, nil
}

type botRecorder struct {
	sent []tgbotapi.Chattable
}

func (r *botRecorder) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	r.sent = append(r.sent, c)
	return tgbotapi.Message{}, nil
}

type env struct {
	server   *Server
	panel    *fakePanel
	trials   *fakeTrials
	payments *fakePayments
	gateway  *fakeGateway
	bot      *botRecorder
	codec    *token.Codec
}

func newEnv(t *testing.T) *env {
	t.Helper()
	codec, err := token.NewCodec("test-secret-long-enough-for-hs256-keys")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}

	fp := newFakePanel()
	ft := newFakeTrials()
	fpay := newFakePayments()
	gw := &fakeGateway{}
	rec := &botRecorder{}

	processor := &payment.Processor{
		Panel:     fp,
		InboundID: 1,
		Records:   fpay,
		Codec:     codec,
		BaseURL:   testBaseURL,
	}

	s := New(Options{
		Panel:     fp,
		InboundID: 1,
		Codec:     codec,
		BaseURL:   testBaseURL,
		Store:     storage.NewMemoryStore(),
		Limiter:   ratelimit.New(storage.NewMemoryStore()),
		Gateway:   gw,
		Processor: processor,
		Allowlist: payment.NewAllowlist(false),
		Trials:    ft,
		Payments:  fpay,
		Bot:       rec,
		BotSecret: "hunter2",
	})

	return &env{server: s, panel: fp, trials: ft, payments: fpay, gateway: gw, bot: rec, codec: codec}
}

func (e *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

// mintToken выдаёт валидный токен для клиента, заранее заведённого в панели.
func (e *env) mintToken(t *testing.T, email string, days int) string {
	t.Helper()
	info, err := e.panel.AddClient(context.Background(), 1, email, "uuid-"+email, days)
	if err != nil {
		t.Fatalf("AddClient: %v", err)
	}
	tok, err := e.codec.GenerateConfigToken(info, days)
	if err != nil {
		t.Fatalf("GenerateConfigToken: %v", err)
	}
	return tok
}
