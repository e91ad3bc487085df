package vless

import "VPN-Connect-API/internal/panel"

// BuildXrayConfig returns the full client config for v2rayN/v2rayNG imports.
// Routing strategy is a whitelist: Meta, YouTube and Telegram go through the
// proxy; Russian banks/government, geoip:ru and geosite:cn stay direct; ads
// and bittorrent are blocked. Unmatched traffic defaults to the first
// outbound (PROXY).
func BuildXrayConfig(client panel.ClientInfo) map[string]any {
	return map[string]any{
		"log": map[string]any{
			"loglevel": "warning",
			"access":   "",
			"error":    "",
		},
		"dns": map[string]any{
			"servers": []any{
				map[string]any{
					"address": "1.1.1.1",
					"domains": []string{
						"geosite:instagram", "geosite:facebook", "geosite:meta",
						"geosite:whatsapp", "geosite:youtube", "geosite:google",
					},
				},
				map[string]any{
					"address": "223.5.5.5",
					"domains": []string{"geosite:cn", "geosite:ru"},
				},
				"8.8.8.8",
			},
			"queryStrategy": "UseIPv4",
		},
		"inbounds": []any{
			map[string]any{
				"tag":      "socks-in",
				"port":     10808,
				"protocol": "socks",
				"settings": map[string]any{"auth": "noauth", "udp": true, "ip": "127.0.0.1"},
				"sniffing": sniffing(),
			},
			map[string]any{
				"tag":      "http-in",
				"port":     10809,
				"protocol": "http",
				"settings": map[string]any{},
				"sniffing": sniffing(),
			},
		},
		"outbounds": []any{
			map[string]any{
				"tag":      "PROXY",
				"protocol": "vless",
				"settings": map[string]any{
					"vnext": []any{map[string]any{
						"address": client.ServerAddress,
						"port":    client.Port,
						"users": []any{map[string]any{
							"id":         client.UUID,
							"flow":       flow,
							"encryption": "none",
							"level":      0,
						}},
					}},
				},
				"streamSettings": map[string]any{
					"network":  "tcp",
					"security": "reality",
					"realitySettings": map[string]any{
						"show":        false,
						"fingerprint": fingerprint,
						"serverName":  client.ServerName,
						"publicKey":   client.PublicKey,
						"shortId":     client.ShortID,
						"spiderX":     "/",
					},
					"tcpSettings": map[string]any{"header": map[string]any{"type": "none"}},
				},
				"mux": map[string]any{"enabled": false},
			},
			map[string]any{
				"tag":      "DIRECT",
				"protocol": "freedom",
				"settings": map[string]any{"domainStrategy": "UseIP"},
			},
			map[string]any{
				"tag":      "BLOCK",
				"protocol": "blackhole",
				"settings": map[string]any{"response": map[string]any{"type": "http"}},
			},
		},
		"routing": map[string]any{
			"domainStrategy": "IPIfNonMatch",
			"rules": []any{
				rule("domain", []string{"geosite:category-ads-all"}, "BLOCK"),
				rule("ip", []string{"geoip:private"}, "DIRECT"),
				rule("domain", []string{
					"domain:sberbank.ru", "domain:online.sberbank.ru", "domain:gosuslugi.ru",
					"domain:nalog.ru", "domain:mos.ru", "domain:tinkoff.ru", "domain:vtb.ru",
					"domain:alfabank.ru", "domain:raiffeisen.ru", "domain:gazprombank.ru",
				}, "DIRECT"),
				rule("domain", []string{
					"geosite:instagram", "geosite:facebook", "geosite:meta", "geosite:whatsapp",
					"domain:cdninstagram.com", "domain:fbcdn.net", "domain:fb.com",
					"domain:facebook.net", "domain:instagram.com", "domain:facebook.com",
					"domain:whatsapp.com", "domain:whatsapp.net",
				}, "PROXY"),
				rule("ip", []string{
					"31.13.24.0/21", "31.13.64.0/18", "66.220.144.0/20", "69.63.176.0/20",
					"69.171.224.0/19", "74.119.76.0/22", "103.4.96.0/22", "157.240.0.0/17",
					"173.252.64.0/18", "179.60.192.0/22", "185.60.216.0/22", "204.15.20.0/22",
				}, "PROXY"),
				rule("domain", []string{
					"geosite:youtube", "domain:youtube.com", "domain:youtu.be", "domain:ytimg.com",
					"domain:googlevideo.com", "domain:ggpht.com", "domain:youtube-nocookie.com",
				}, "PROXY"),
				rule("ip", []string{
					"74.125.0.0/16", "172.217.0.0/16", "142.250.0.0/15",
					"216.58.192.0/19", "209.85.128.0/17",
				}, "PROXY"),
				rule("domain", []string{"geosite:telegram"}, "PROXY"),
				map[string]any{"type": "field", "protocol": []string{"bittorrent"}, "outboundTag": "BLOCK"},
				rule("ip", []string{"geoip:ru"}, "DIRECT"),
				rule("domain", []string{"geosite:cn"}, "DIRECT"),
			},
		},
	}
}

func sniffing() map[string]any {
	return map[string]any{
		"enabled":      true,
		"destOverride": []string{"http", "tls", "quic"},
		"routeOnly":    false,
	}
}

func rule(kind string, values []string, outbound string) map[string]any {
	return map[string]any{"type": "field", kind: values, "outboundTag": outbound}
}
