package web

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigEndpoint(t *testing.T) {
	e := newEnv(t)
	tok := e.mintToken(t, "cfg@mail.ru", 30)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/config/"+tok, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "xray_config.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	var cfg map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("config is not JSON: %v", err)
	}
	for _, key := range []string{"log", "dns", "inbounds", "outbounds", "routing"} {
		if _, ok := cfg[key]; !ok {
			t.Errorf("config missing %q section", key)
		}
	}
	if !strings.Contains(rec.Body.String(), "uuid-cfg@mail.ru") {
		t.Error("config does not embed the client uuid")
	}
}

func TestConfigEndpointRejectsBadToken(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/config/not-a-token", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TOKEN_INVALID") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestLinkEndpoint(t *testing.T) {
	e := newEnv(t)
	tok := e.mintToken(t, "link@mail.ru", 30)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/link/"+tok, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	var resp struct {
		Success  bool   `json:"success"`
		VlessURI string `json:"vlessUri"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("success = false")
	}
	if !strings.HasPrefix(resp.VlessURI, "vless://uuid-link@mail.ru@vpn.example.com:443?") {
		t.Errorf("vlessUri = %q", resp.VlessURI)
	}
	if !strings.Contains(resp.VlessURI, "security=reality") {
		t.Errorf("vlessUri missing reality params: %q", resp.VlessURI)
	}
}

func TestSubEndpoint(t *testing.T) {
	e := newEnv(t)
	tok := e.mintToken(t, "sub@mail.ru", 30)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/sub/"+tok, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}

	decoded, err := base64.StdEncoding.DecodeString(rec.Body.String())
	if err != nil {
		t.Fatalf("body is not base64: %v", err)
	}
	if !strings.HasPrefix(string(decoded), "vless://") {
		t.Errorf("decoded = %q", decoded)
	}

	userinfo := rec.Header().Get("Subscription-Userinfo")
	if !strings.Contains(userinfo, "upload=100") || !strings.Contains(userinfo, "download=200") {
		t.Errorf("Subscription-Userinfo = %q", userinfo)
	}
	if rec.Header().Get("Profile-Update-Interval") != "1" {
		t.Errorf("Profile-Update-Interval = %q", rec.Header().Get("Profile-Update-Interval"))
	}
}

func TestLandingPagePerPlatform(t *testing.T) {
	e := newEnv(t)
	tok := e.mintToken(t, "go@mail.ru", 30)

	tests := []struct {
		name      string
		userAgent string
		marker    string
	}{
		{"ios", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)", "foxray://"},
		{"android", "Mozilla/5.0 (Linux; Android 14; Pixel 8)", "hiddify://"},
		{"windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)", "VPN для Windows"},
		{"macos", "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0)", "VPN для macOS"},
		{"universal", "curl/8.0", "VPN для всех устройств"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/go/"+tok, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			rec := e.do(req)

			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.marker) {
				t.Errorf("page missing %q", tt.marker)
			}
			if !strings.Contains(rec.Body.String(), "/api/sub/"+tok) {
				t.Error("page missing subscription URL")
			}
		})
	}
}

func TestLandingPageRejectsBadToken(t *testing.T) {
	e := newEnv(t)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/go/garbage", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("Content-Type = %q, want html error page", ct)
	}
}

func TestQREndpoint(t *testing.T) {
	e := newEnv(t)
	tok := e.mintToken(t, "qr@mail.ru", 30)

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/qr/"+tok, nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	// PNG magic bytes.
	body := rec.Body.Bytes()
	if len(body) < 8 || body[0] != 0x89 || string(body[1:4]) != "PNG" {
		t.Error("body is not a PNG image")
	}
}
