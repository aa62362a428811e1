package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		cfg, err := Parse([]byte("bot:\n  token: abc\ndatabase:\n  url: postgres://x\n"), true)
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if cfg.Wizard.HoldInvoiceExpiration != 15*time.Minute {
			t.Errorf("expected 15m window, got %s", cfg.Wizard.HoldInvoiceExpiration)
		}
		if cfg.Wizard.PaymentAttempts != 3 || cfg.Wizard.SessionBackend != "memory" || cfg.Lightning.Network != "mainnet" {
			t.Errorf("unexpected defaults: %+v", cfg.Wizard)
		}
		if !cfg.Runtime.Dev {
			t.Errorf("expected dev mode")
		}
	})

	t.Run("should read durations", func(t *testing.T) {
		doc := "bot:\n  token: abc\ndatabase:\n  url: postgres://x\nwizard:\n  hold_invoice_expiration_window: 30m\n  session_ttl: 2h\n"
		cfg, err := Parse([]byte(doc), false)
		if err != nil {
			t.Fatalf("Parse() failed: %v", err)
		}
		if cfg.Wizard.HoldInvoiceExpiration != 30*time.Minute || cfg.Wizard.SessionTTL != 2*time.Hour {
			t.Errorf("unexpected durations: %+v", cfg.Wizard)
		}
	})

	cases := map[string]string{
		"missing token":        "database:\n  url: postgres://x\n",
		"redis backend no url": "bot:\n  token: a\ndatabase:\n  url: x\nwizard:\n  session_backend: redis\n",
		"unknown backend":      "bot:\n  token: a\ndatabase:\n  url: x\nwizard:\n  session_backend: disk\n",
		"unknown network":      "bot:\n  token: a\ndatabase:\n  url: x\nlightning:\n  network: litecoin\n",
		"malformed yaml":       "bot: [",
		"short secret key":     "bot:\n  token: a\ndatabase:\n  url: x\nsecurity:\n  secret_key: short\n",
	}
	for name, doc := range cases {
		t.Run("should reject "+name, func(t *testing.T) {
			if _, err := Parse([]byte(doc), false); err == nil {
				t.Fatalf("expected an error for %q", strings.TrimSpace(doc))
			}
		})
	}
}
