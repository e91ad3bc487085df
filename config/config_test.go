package config

import "testing"

func TestPaymentsEnabled(t *testing.T) {
	saved := AppCfg
	defer func() { AppCfg = saved }()

	AppCfg.YooKassaShopID, AppCfg.YooKassaSecret = "", ""
	if PaymentsEnabled() {
		t.Error("payments must be off without credentials")
	}
	AppCfg.YooKassaShopID = "shop-1"
	if PaymentsEnabled() {
		t.Error("shop id alone must not enable payments")
	}
	AppCfg.YooKassaSecret = "sk-test"
	if !PaymentsEnabled() {
		t.Error("payments must be on with both credentials set")
	}
}
