package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"VPN-Connect-API/internal/db"
	"VPN-Connect-API/internal/panel"
	"VPN-Connect-API/internal/token"
)

// fakePanel держит клиентов в памяти и считает вызовы.
type fakePanel struct {
	mu       sync.Mutex
	clients  map[string]*panel.ClientStatus
	adds     int
	extends  int
	failWith error
}

func newFakePanel() *fakePanel {
	return &fakePanel{clients: map[string]*panel.ClientStatus{}}
}

func (f *fakePanel) GetClientByEmail(_ context.Context, _ int, email string) (*panel.ClientStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
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
	if f.failWith != nil {
		return panel.ClientInfo{}, f.failWith
	}
	f.adds++
	info := panel.ClientInfo{
		UUID:          id,
		Email:         email,
		InboundID:     inboundID,
		ServerAddress: "vpn.example.com",
		Port:          443,
		PublicKey:     "pbk",
		ShortID:       "sid",
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
	if f.failWith != nil {
		return nil, f.failWith
	}
	st, ok := f.clients[email]
	if !ok {
		return nil, panel.ErrClientNotFound
	}
	f.extends++
	st.ExpiryTime += int64(days) * 86400000
	st.Enable = true
	cp := *st
	return &cp, nil
}

// fakeRecords повторяет семантику хранилища: Save делает upsert по
// payment_id, MarkStatus меняет только статус.
type fakeRecords struct {
	mu   sync.Mutex
	rows map[string]*db.Payment
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: map[string]*db.Payment{}}
}

func (f *fakeRecords) Save(p *db.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.rows[p.PaymentID] = &cp
	return nil
}

func (f *fakeRecords) MarkStatus(id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.rows[id]; ok {
		p.Status = status
	}
	return nil
}

func (f *fakeRecords) GetByID(id string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func newProcessor(t *testing.T, fp *fakePanel, fr Records) *Processor {
	t.Helper()
	codec, err := token.NewCodec("test-secret-for-webhook-processing-0001")
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return &Processor{
		Panel:     fp,
		InboundID: 1,
		Records:   fr,
		Codec:     codec,
		BaseURL:   "https://vpn.example.com",
	}
}

func succeededNotification(paymentID, email string) Notification {
	var n Notification
	n.Type = "notification"
	n.Event = "payment.succeeded"
	n.Object.ID = paymentID
	n.Object.Status = "succeeded"
	n.Object.Amount.Value = "99.00"
	n.Object.Amount.Currency = "RUB"
	n.Object.Metadata.Email = email
	n.Object.Metadata.TelegramID = "123456"
	n.Object.Metadata.PlanDuration = json.Number("30")
	return n
}

func TestProcessFirstDeliveryProvisions(t *testing.T) {
	fp := newFakePanel()
	fr := newFakeRecords()
	p := newProcessor(t, fp, fr)

	res := p.Process(context.Background(), succeededNotification("pay-1", "user@mail.ru"))

	if res.Status != "success" {
		t.Fatalf("status = %q, want success (err=%q)", res.Status, res.Error)
	}
	if res.Email != "user@mail.ru" {
		t.Errorf("email = %q", res.Email)
	}
	if !strings.HasPrefix(res.ConfigURL, "https://vpn.example.com/api/config/") {
		t.Errorf("configUrl = %q", res.ConfigURL)
	}
	if fp.adds != 1 || fp.extends != 0 {
		t.Errorf("adds=%d extends=%d, want 1/0", fp.adds, fp.extends)
	}
	if _, err := fr.GetByID("pay-1"); err != nil {
		t.Errorf("record not saved: %v", err)
	}
}

func TestProcessRepeatDeliveryIsIdempotent(t *testing.T) {
	fp := newFakePanel()
	fr := newFakeRecords()
	p := newProcessor(t, fp, fr)
	n := succeededNotification("pay-2", "repeat@mail.ru")

	first := p.Process(context.Background(), n)
	second := p.Process(context.Background(), n)

	if first.Status != "success" {
		t.Fatalf("first status = %q", first.Status)
	}
	if second.Status != "already_processed" {
		t.Fatalf("second status = %q, want already_processed", second.Status)
	}
	if second.ConfigURL != first.ConfigURL {
		t.Errorf("configUrl changed between deliveries: %q vs %q", first.ConfigURL, second.ConfigURL)
	}
	if fp.adds != 1 || fp.extends != 0 {
		t.Errorf("panel touched twice: adds=%d extends=%d", fp.adds, fp.extends)
	}
}

func TestProcessExtendsExistingClient(t *testing.T) {
	fp := newFakePanel()
	fr := newFakeRecords()
	p := newProcessor(t, fp, fr)

	if _, err := fp.AddClient(context.Background(), 1, "old@mail.ru", "uuid-old", 5); err != nil {
		t.Fatal(err)
	}
	fp.adds = 0

	res := p.Process(context.Background(), succeededNotification("pay-3", "old@mail.ru"))

	if res.Status != "success" {
		t.Fatalf("status = %q (err=%q)", res.Status, res.Error)
	}
	if fp.adds != 0 || fp.extends != 1 {
		t.Errorf("adds=%d extends=%d, want 0/1", fp.adds, fp.extends)
	}
}

func TestProcessIgnoresOtherEvents(t *testing.T) {
	p := newProcessor(t, newFakePanel(), newFakeRecords())

	n := succeededNotification("pay-4", "user@mail.ru")
	n.Event = "refund.succeeded"

	res := p.Process(context.Background(), n)
	if res.Status != "ignored" {
		t.Errorf("status = %q, want ignored", res.Status)
	}
}

func TestProcessCanceledMarksFailed(t *testing.T) {
	fp := newFakePanel()
	fr := newFakeRecords()
	fr.rows["pay-c"] = &db.Payment{PaymentID: "pay-c", Status: db.StatusPending}
	p := newProcessor(t, fp, fr)

	n := succeededNotification("pay-c", "user@mail.ru")
	n.Event = "payment.canceled"
	n.Object.Status = "canceled"

	res := p.Process(context.Background(), n)
	if res.Status != "canceled" {
		t.Fatalf("status = %q, want canceled", res.Status)
	}
	if rec, _ := fr.GetByID("pay-c"); rec.Status != db.StatusFailed {
		t.Errorf("record status = %q, want %q", rec.Status, db.StatusFailed)
	}
	if fp.adds != 0 || fp.extends != 0 {
		t.Errorf("panel touched on cancel: adds=%d extends=%d", fp.adds, fp.extends)
	}
}

// Запись со статусом pending появляется при выставлении платежа; вебхук
// должен дооформить её, а не счесть платёж уже обработанным.
func TestProcessCompletesPendingRecord(t *testing.T) {
	fp := newFakePanel()
	fr := newFakeRecords()
	fr.rows["pay-p"] = &db.Payment{PaymentID: "pay-p", Email: "pend@mail.ru", Status: db.StatusPending}
	p := newProcessor(t, fp, fr)

	res := p.Process(context.Background(), succeededNotification("pay-p", "pend@mail.ru"))
	if res.Status != "success" {
		t.Fatalf("status = %q, want success (err=%q)", res.Status, res.Error)
	}
	rec, err := fr.GetByID("pay-p")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if rec.Status != db.StatusSucceeded {
		t.Errorf("record status = %q, want %q", rec.Status, db.StatusSucceeded)
	}
	if rec.ConfigURL == "" {
		t.Error("completed record must carry a config url")
	}
	if fp.adds != 1 {
		t.Errorf("adds = %d, want 1", fp.adds)
	}
}

func TestProcessPendingStatus(t *testing.T) {
	p := newProcessor(t, newFakePanel(), newFakeRecords())

	n := succeededNotification("pay-5", "user@mail.ru")
	n.Object.Status = "pending"

	res := p.Process(context.Background(), n)
	if res.Status != "pending" {
		t.Errorf("status = %q, want pending", res.Status)
	}
}

func TestProcessPanelErrorDoesNotRecord(t *testing.T) {
	fp := newFakePanel()
	fp.failWith = errors.New("connection refused")
	fr := newFakeRecords()
	p := newProcessor(t, fp, fr)

	res := p.Process(context.Background(), succeededNotification("pay-6", "user@mail.ru"))

	if res.Status != "panel_error" {
		t.Fatalf("status = %q, want panel_error", res.Status)
	}
	// Платёж не записан — повторная доставка после восстановления панели
	// должна пройти заново.
	if _, err := fr.GetByID("pay-6"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("record saved despite panel error: %v", err)
	}

	fp.failWith = nil
	retry := p.Process(context.Background(), succeededNotification("pay-6", "user@mail.ru"))
	if retry.Status != "success" {
		t.Errorf("retry status = %q, want success", retry.Status)
	}
}

func TestProcessEmailFallback(t *testing.T) {
	fp := newFakePanel()
	p := newProcessor(t, fp, newFakeRecords())

	n := succeededNotification("pay-7", "")
	res := p.Process(context.Background(), n)

	if res.Status != "success" {
		t.Fatalf("status = %q", res.Status)
	}
	if res.Email != "user_pay-7@vpn.local" {
		t.Errorf("email = %q", res.Email)
	}
}

func TestProcessWaitingForCapture(t *testing.T) {
	p := newProcessor(t, newFakePanel(), newFakeRecords())

	n := succeededNotification("pay-8", "user@mail.ru")
	n.Event = "payment.waiting_for_capture"
	n.Object.Status = "waiting_for_capture"

	res := p.Process(context.Background(), n)
	if res.Status != "success" {
		t.Errorf("status = %q, want success", res.Status)
	}
}

// racingRecords моделирует конкурирующую доставку: перед нашим Save запись
// уже появилась, и уникальный индекс отбивает вставку.
type racingRecords struct {
	*fakeRecords
	winner *db.Payment
}

func (r *racingRecords) Save(p *db.Payment) error {
	r.fakeRecords.Save(r.winner)
	return errors.New("duplicate key value violates unique constraint")
}

func TestProcessSaveRaceReturnsWinner(t *testing.T) {
	fp := newFakePanel()
	fr := &racingRecords{
		fakeRecords: newFakeRecords(),
		winner: &db.Payment{
			PaymentID: "pay-9",
			Email:     "race@mail.ru",
			ConfigURL: "https://vpn.example.com/api/config/winner-token",
			Status:    db.StatusSucceeded,
		},
	}
	p := newProcessor(t, fp, fr)

	res := p.Process(context.Background(), succeededNotification("pay-9", "race@mail.ru"))
	if res.Status != "already_processed" {
		t.Fatalf("status = %q, want already_processed", res.Status)
	}
	if res.ConfigURL != "https://vpn.example.com/api/config/winner-token" {
		t.Errorf("configUrl = %q, want winner's", res.ConfigURL)
	}
}
