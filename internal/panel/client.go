// Package panel is the HTTP client for the 3x-ui proxy panel: cookie-based
// session with a shared TTL cache, retried login, and client provisioning by
// mutation of the inbound settings blob.
package panel

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"VPN-Connect-API/internal/logger"
	"VPN-Connect-API/internal/retry"
	"VPN-Connect-API/internal/storage"

	"go.uber.org/zap"
)

const (
	sessionTTL      = time.Hour
	requestTimeout  = 15 * time.Second
	sessionStoreKey = "panel:session"
	defaultFlow     = "xtls-rprx-vision"
)

// ErrClientNotFound is returned when an inbound has no client for the given
// email or uuid.
var ErrClientNotFound = errors.New("panel: client not found")

var loginPolicy = retry.Policy{Attempts: 4, BaseDelay: time.Second}

// Client talks to one 3x-ui panel. It is safe for concurrent use; the session
// cookie is cached for an hour and shared across all callers (and across warm
// instances when a Store is attached).
type Client struct {
	baseURL  string
	username string
	password string
	inbound  int

	// Reality fallbacks for inbounds whose stream settings are incomplete.
	defaultPublicKey  string
	defaultShortID    string
	defaultServerName string

	httpClient *http.Client
	store      storage.Store // optional write-through for the session cookie

	mu            sync.Mutex
	cookie        string
	cookieExpires time.Time
}

// Options carries the connection and fallback parameters for a panel Client.
type Options struct {
	URL        string
	Username   string
	Password   string
	InboundID  int
	PublicKey  string
	ShortID    string
	ServerName string
	Store      storage.Store
}

// New builds a panel client. The panel commonly runs on a self-signed
// certificate, so TLS verification is disabled for this one upstream.
func New(opts Options) *Client {
	return &Client{
		baseURL:           strings.TrimRight(opts.URL, "/"),
		username:          opts.Username,
		password:          opts.Password,
		inbound:           opts.InboundID,
		defaultPublicKey:  opts.PublicKey,
		defaultShortID:    opts.ShortID,
		defaultServerName: opts.ServerName,
		store:             opts.Store,
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// InboundID returns the inbound this client provisions into.
func (c *Client) InboundID() int { return c.inbound }

// serverAddress is the panel host without port, used as the proxy address.
func (c *Client) serverAddress() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL
	}
	return u.Hostname()
}

// Login authenticates and caches the session cookie. It retries with
// 1s/2s/4s backoff and surfaces a classified error after exhaustion.
func (c *Client) Login(ctx context.Context) error {
	err := retry.Do(ctx, loginPolicy, func() error {
		return c.loginOnce(ctx)
	})
	if err != nil {
		logger.Error("panel login failed", zap.String("panel", c.baseURL), zap.Error(err))
		return fmt.Errorf("panel login: %w", classify(err))
	}
	return nil
}

func (c *Client) loginOnce(ctx context.Context) error {
	body, _ := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("panel rejected credentials (status %d)", resp.StatusCode)
	}
	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if !envelope.Success {
		return fmt.Errorf("login failed: %s", envelope.Msg)
	}

	cookies := resp.Header.Values("Set-Cookie")
	if len(cookies) == 0 {
		return errors.New("login succeeded but no session cookie was set")
	}
	cookie := strings.Join(cookies, ";")

	c.mu.Lock()
	c.cookie = cookie
	c.cookieExpires = time.Now().Add(sessionTTL)
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Set(ctx, sessionStoreKey, cookie, sessionTTL); err != nil {
			logger.Warn("failed to share panel session", zap.Error(err))
		}
	}
	logger.Info("panel login ok", zap.String("panel", c.baseURL))
	return nil
}

// session returns a valid cookie, logging in when the cached one expired.
// Concurrent callers under an expired cache may trigger duplicate logins;
// the panel treats login as idempotent so the last writer wins.
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	cookie, valid := c.cookie, time.Now().Before(c.cookieExpires)
	c.mu.Unlock()
	if valid && cookie != "" {
		return cookie, nil
	}

	if c.store != nil {
		if shared, err := c.store.Get(ctx, sessionStoreKey); err == nil && shared != "" {
			c.mu.Lock()
			c.cookie = shared
			c.cookieExpires = time.Now().Add(sessionTTL)
			c.mu.Unlock()
			return shared, nil
		}
	}

	if err := c.Login(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	cookie = c.cookie
	c.mu.Unlock()
	return cookie, nil
}

// dropSession clears the cached cookie after the panel rejected it.
func (c *Client) dropSession(ctx context.Context) {
	c.mu.Lock()
	c.cookie = ""
	c.cookieExpires = time.Time{}
	c.mu.Unlock()
	if c.store != nil {
		_ = c.store.Del(ctx, sessionStoreKey)
	}
}

// call performs one authenticated panel request and decodes the envelope.
func (c *Client) call(ctx context.Context, method, path string, payload any) (*apiResponse, error) {
	cookie, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("panel %s %s: %w", method, path, classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.dropSession(ctx)
		return nil, fmt.Errorf("panel %s %s: session rejected (status %d)", method, path, resp.StatusCode)
	}
	var envelope apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("panel %s %s: decode response: %w", method, path, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("panel %s %s: %s", method, path, envelope.Msg)
	}
	return &envelope, nil
}

// GetInbound fetches the raw inbound config.
func (c *Client) GetInbound(ctx context.Context, inboundID int) (*Inbound, error) {
	envelope, err := c.call(ctx, http.MethodGet, fmt.Sprintf("/panel/api/inbounds/get/%d", inboundID), nil)
	if err != nil {
		return nil, err
	}
	var inbound Inbound
	if err := json.Unmarshal(envelope.Obj, &inbound); err != nil {
		return nil, fmt.Errorf("decode inbound: %w", err)
	}
	return &inbound, nil
}

// reality extracts the Reality connection parameters from an inbound,
// falling back to the configured defaults when the panel omits them.
func (c *Client) reality(inbound *Inbound) (serverName, publicKey, shortID string) {
	serverName = c.defaultServerName
	publicKey = c.defaultPublicKey
	shortID = c.defaultShortID

	var ss streamSettings
	if err := json.Unmarshal([]byte(inbound.StreamSettings), &ss); err != nil || ss.RealitySettings == nil {
		if err != nil {
			logger.Warn("failed to parse stream settings", zap.Int("inbound_id", inbound.ID), zap.Error(err))
		}
		return
	}
	rs := ss.RealitySettings
	if rs.ServerName != "" {
		serverName = rs.ServerName
	} else if len(rs.ServerNames) > 0 {
		serverName = rs.ServerNames[0]
	}
	if rs.PublicKey != "" {
		publicKey = rs.PublicKey
	} else if rs.Settings.PublicKey != "" {
		publicKey = rs.Settings.PublicKey
	}
	if rs.ShortID != "" {
		shortID = rs.ShortID
	} else if len(rs.ShortIDs) > 0 {
		shortID = rs.ShortIDs[0]
	}
	return
}

func (c *Client) clientInfo(inbound *Inbound, uuid, email string) ClientInfo {
	serverName, publicKey, shortID := c.reality(inbound)
	return ClientInfo{
		UUID:          uuid,
		Email:         email,
		InboundID:     inbound.ID,
		ServerAddress: c.serverAddress(),
		Port:          inbound.Port,
		PublicKey:     publicKey,
		ShortID:       shortID,
		ServerName:    serverName,
	}
}

// GetClientByEmail scans the inbound settings for the identity keyed by
// email. Returns ErrClientNotFound when absent.
func (c *Client) GetClientByEmail(ctx context.Context, inboundID int, email string) (*ClientStatus, error) {
	inbound, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	var settings inboundSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		return nil, fmt.Errorf("decode inbound settings: %w", err)
	}
	for _, cl := range settings.Clients {
		if cl.Email == email {
			return &ClientStatus{
				ClientInfo: c.clientInfo(inbound, cl.ID, cl.Email),
				ExpiryTime: cl.ExpiryTime,
				Enable:     cl.Enable,
			}, nil
		}
	}
	return nil, ErrClientNotFound
}

// AddClient provisions a new identity for email, valid for days (0 =
// unlimited). When the email already exists the call is an idempotent no-op
// returning the existing identity. The targeted addClient endpoint is tried
// first; older panels only support a full read-modify-write of the inbound.
func (c *Client) AddClient(ctx context.Context, inboundID int, email, uuid string, days int) (ClientInfo, error) {
	inbound, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return ClientInfo{}, err
	}
	var settings inboundSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		return ClientInfo{}, fmt.Errorf("decode inbound settings: %w", err)
	}
	for _, cl := range settings.Clients {
		if cl.Email == email {
			logger.Info("client already exists, returning existing",
				zap.String("email", email), zap.Int("inbound_id", inboundID))
			return c.clientInfo(inbound, cl.ID, cl.Email), nil
		}
	}

	var expiryTime int64
	if days > 0 {
		expiryTime = time.Now().UnixMilli() + int64(days)*86400000
	}
	newClient := inboundClient{
		ID:         uuid,
		Email:      email,
		Flow:       defaultFlow,
		ExpiryTime: expiryTime,
		Enable:     true,
	}

	addPayload, _ := json.Marshal(inboundSettings{Clients: []inboundClient{newClient}})
	_, err = c.call(ctx, http.MethodPost, "/panel/api/inbounds/addClient", map[string]any{
		"id":       inboundID,
		"settings": string(addPayload),
	})
	logger.LogPanelCall("add_client", inboundID, err)
	if err != nil {
		logger.Warn("addClient endpoint failed, falling back to inbound update",
			zap.Int("inbound_id", inboundID), zap.Error(err))
		raw, clients, rerr := rawSettings(inbound.Settings)
		if rerr != nil {
			return ClientInfo{}, rerr
		}
		entry := map[string]any{}
		blob, _ := json.Marshal(newClient)
		json.Unmarshal(blob, &entry)
		raw["clients"] = append(clients, entry)
		if err := c.updateInbound(ctx, inbound, raw); err != nil {
			return ClientInfo{}, err
		}
	}

	logger.Info("client provisioned", zap.String("email", email),
		zap.String("uuid", uuid), zap.Int("days", days))
	return c.clientInfo(inbound, uuid, email), nil
}

// ExtendClientByEmail adds days of validity to an existing identity. An
// expired or unlimited identity restarts from now; an active one extends from
// its current expiry. Disabled identities are re-enabled.
func (c *Client) ExtendClientByEmail(ctx context.Context, inboundID int, email string, days int) (*ClientStatus, error) {
	inbound, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	raw, clients, err := rawSettings(inbound.Settings)
	if err != nil {
		return nil, err
	}

	var target map[string]any
	for _, entry := range clients {
		if cm, ok := entry.(map[string]any); ok && cm["email"] == email {
			target = cm
			break
		}
	}
	if target == nil {
		return nil, ErrClientNotFound
	}

	now := time.Now().UnixMilli()
	var expiry int64
	if v, ok := target["expiryTime"].(float64); ok {
		expiry = int64(v)
	}
	if expiry == 0 || expiry < now {
		expiry = now + int64(days)*86400000
	} else {
		expiry += int64(days) * 86400000
	}
	target["expiryTime"] = expiry
	target["enable"] = true
	uuid, _ := target["id"].(string)

	if err := c.updateInbound(ctx, inbound, raw); err != nil {
		return nil, err
	}
	logger.Info("client extended", zap.String("email", email),
		zap.Int("days", days), zap.Int64("new_expiry", expiry))
	return &ClientStatus{
		ClientInfo: c.clientInfo(inbound, uuid, email),
		ExpiryTime: expiry,
		Enable:     true,
	}, nil
}

// rawSettings parses the settings blob without a schema, so keys the typed
// views do not model survive a read-modify-write of the inbound.
func rawSettings(blob string) (map[string]any, []any, error) {
	raw := map[string]any{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, nil, fmt.Errorf("decode inbound settings: %w", err)
	}
	clients, _ := raw["clients"].([]any)
	return raw, clients, nil
}

// updateInbound writes back the full settings blob, preserving every other
// inbound field. There is no locking around this read-modify-write; the panel
// keeps the last writer.
func (c *Client) updateInbound(ctx context.Context, inbound *Inbound, settings map[string]any) error {
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	sniffing := inbound.Sniffing
	if sniffing == "" {
		sniffing = `{"enabled":true,"destOverride":["http","tls","quic"]}`
	}
	_, err = c.call(ctx, http.MethodPost, fmt.Sprintf("/panel/api/inbounds/update/%d", inbound.ID), map[string]any{
		"up":             inbound.Up,
		"down":           inbound.Down,
		"total":          inbound.Total,
		"remark":         inbound.Remark,
		"enable":         inbound.Enable,
		"expiryTime":     inbound.ExpiryTime,
		"listen":         inbound.Listen,
		"port":           inbound.Port,
		"protocol":       inbound.Protocol,
		"settings":       string(settingsJSON),
		"streamSettings": inbound.StreamSettings,
		"sniffing":       sniffing,
	})
	logger.LogPanelCall("update_inbound", inbound.ID, err)
	return err
}

// GetClientTraffic returns the traffic counters for one identity, zeroed when
// the panel reports no stats yet.
func (c *Client) GetClientTraffic(ctx context.Context, inboundID int, uuid string) (*TrafficStats, error) {
	inbound, err := c.GetInbound(ctx, inboundID)
	if err != nil {
		return nil, err
	}
	var settings inboundSettings
	if err := json.Unmarshal([]byte(inbound.Settings), &settings); err != nil {
		return nil, fmt.Errorf("decode inbound settings: %w", err)
	}
	for _, cl := range settings.Clients {
		if cl.ID != uuid {
			continue
		}
		stats := &TrafficStats{UUID: uuid, Email: cl.Email, ExpiryTime: cl.ExpiryTime}
		for _, s := range inbound.ClientStats {
			if s.Email == cl.Email {
				stats.Up = s.Up
				stats.Down = s.Down
				stats.Total = s.Total
				break
			}
		}
		return stats, nil
	}
	return nil, ErrClientNotFound
}

// classify rewrites low-level transport failures into the distinct messages
// the logs are searched by.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("panel timeout: %w", err)
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("panel DNS failure: %w", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return fmt.Errorf("panel unreachable: %w", err)
	}
	return err
}
