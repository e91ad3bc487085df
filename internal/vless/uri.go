// Package vless renders validated token payloads into the formats client
// apps consume: the vless:// URI, the base64 subscription blob and the full
// xray JSON config.
package vless

import (
	"encoding/base64"
	"fmt"
	"net/url"

	"VPN-Connect-API/internal/panel"
)

const (
	// Flow and fingerprint are fixed for the Reality transport we provision.
	flow        = "xtls-rprx-vision"
	fingerprint = "chrome"

	// DefaultLabel is the display name clients show after import.
	DefaultLabel = "VPN-Connect"
)

// BuildURI assembles the vless:// connection URI:
// vless://uuid@host:port?type=tcp&security=reality&...#label
func BuildURI(client panel.ClientInfo, label string) string {
	if label == "" {
		label = DefaultLabel
	}
	params := url.Values{}
	params.Set("type", "tcp")
	params.Set("security", "reality")
	params.Set("pbk", client.PublicKey)
	params.Set("fp", fingerprint)
	params.Set("sni", client.ServerName)
	params.Set("sid", client.ShortID)
	params.Set("flow", flow)
	params.Set("spx", "/")

	return fmt.Sprintf("vless://%s@%s:%d?%s#%s",
		client.UUID, client.ServerAddress, client.Port,
		params.Encode(), url.PathEscape(label))
}

// BuildSubscription encodes the URI as the base64 blob subscription-capable
// apps (Hiddify, Streisand, v2rayN) auto-import.
func BuildSubscription(client panel.ClientInfo, label string) string {
	return base64.StdEncoding.EncodeToString([]byte(BuildURI(client, label)))
}

// UserinfoHeader formats the Subscription-Userinfo header value: traffic
// totals and the expiry as semicolon-delimited key=value pairs. expireUnix is
// in seconds.
func UserinfoHeader(up, down, total, expireUnix int64) string {
	return fmt.Sprintf("upload=%d; download=%d; total=%d; expire=%d", up, down, total, expireUnix)
}
