package config

import "testing"

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StoreDriver != "file" {
		t.Errorf("StoreDriver = %q, want file", cfg.StoreDriver)
	}
	if cfg.TransferFee != "0" || cfg.ExchangeFee != "0" || cfg.WithdrawalFee != "0" {
		t.Errorf("default fees = %s/%s/%s, want 0/0/0", cfg.TransferFee, cfg.ExchangeFee, cfg.WithdrawalFee)
	}
	if cfg.SMTPHost != "" {
		t.Errorf("SMTPHost = %q, want disabled by default", cfg.SMTPHost)
	}
}

func TestNewConfigFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("TRANSFER_FEE", "500")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.Port != "9090" || cfg.StoreDriver != "memory" || cfg.RedisDB != 3 || cfg.TransferFee != "500" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestNewConfigRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "cassandra")
	if _, err := NewConfig(); err == nil {
		t.Error("unknown STORE_DRIVER accepted")
	}

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("REDIS_DB", "not-a-number")
	if _, err := NewConfig(); err == nil {
		t.Error("non-numeric REDIS_DB accepted")
	}
}
