//go:build !integration

package i18n

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestTranslator(t *testing.T) {
	// 1. Arrange
	contentBytes := []byte("greeting: Hola\nwelcome_user: Hola %s\norder_line: \"%[1]s then %[1]s, %[2]d sats\"")
	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	// 2. Assert
	t.Run("should translate a simple key", func(t *testing.T) {
		if got := translator.T("greeting"); got != "Hola" {
			t.Errorf("wanted 'Hola', got '%s'", got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		if got := translator.T("nonexistent_key"); got != "nonexistent_key" {
			t.Errorf("wanted 'nonexistent_key', got '%s'", got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		if got := translator.T("welcome_user", "Ana"); got != "Hola Ana" {
			t.Errorf("wanted 'Hola Ana', got '%s'", got)
		}
	})

	t.Run("should support indexed arguments", func(t *testing.T) {
		if got := translator.T("order_line", "o1", 50); got != "o1 then o1, 50 sats" {
			t.Errorf("unexpected rendering: '%s'", got)
		}
	})
}

// requiredKeys are rendered by the wizards and the bot shell.
var requiredKeys = []string{
	"generic_error", "generic_not_found", "wizard_exit",
	"start_welcome", "help", "unknown_command", "rate_limited", "command_usage", "no_active_wizard",
	"invoice_request", "invoice_expiration_window", "wizard_add_invoice_exit",
	"invoice_invalid", "invoice_expired", "invoice_wrong_network", "invoice_amount_mismatch",
	"order_expired", "cant_add_invoice",
	"send_me_lninvoice", "invoice_already_updated", "invoice_updated_payment_will_be_sent",
	"community_name_prompt", "community_name_too_long", "community_name_taken",
	"community_currencies_prompt", "currencies_too_many", "currency_invalid",
	"community_group_prompt", "chat_ref_invalid", "not_chat_admin",
	"community_channels_prompt", "channels_count",
	"community_solvers_prompt", "solvers_too_many", "solvers_not_found",
	"community_dispute_channel_prompt", "community_created", "community_updated",
	"fiat_amount_prompt_buy", "fiat_amount_prompt_sell", "fiat_amount_out_of_range", "fiat_amount_chosen",
	"order_active", "waiting_seller_payment", "pay_hold_invoice",
}

func TestEmbeddedLocales(t *testing.T) {
	for _, lang := range []string{"en", "es"} {
		lang := lang
		t.Run("should render every required key in "+lang, func(t *testing.T) {
			tr, err := NewTranslator(LocalesFS, lang)
			if err != nil {
				t.Fatalf("NewTranslator(%s) failed: %v", lang, err)
			}
			for _, key := range requiredKeys {
				if got := tr.T(key); got == key {
					t.Errorf("%s: key %q is not translated", lang, key)
				}
			}
		})
	}

	t.Run("should translate every english key in spanish", func(t *testing.T) {
		en, err := readLocale(LocalesFS, "en")
		if err != nil {
			t.Fatalf("readLocale(en) failed: %v", err)
		}
		es, err := readLocale(LocalesFS, "es")
		if err != nil {
			t.Fatalf("readLocale(es) failed: %v", err)
		}
		for key := range en {
			if _, ok := es[key]; !ok {
				t.Errorf("es: key %q is missing", key)
			}
		}
	})

	t.Run("should fall back to english for missing keys", func(t *testing.T) {
		fsys := fstest.MapFS{
			"locales/en.yaml": {Data: []byte("help: english help\ngreeting: Hello")},
			"locales/xx.yaml": {Data: []byte("greeting: Ahoj")},
		}
		tr, err := NewTranslator(fsys, "xx")
		if err != nil {
			t.Fatalf("NewTranslator failed: %v", err)
		}
		if got := tr.T("help"); got != "english help" {
			t.Errorf("expected english help text, got %q", got)
		}
		if got := tr.T("greeting"); got != "Ahoj" {
			t.Errorf("expected the primary locale to win, got %q", got)
		}
	})

	t.Run("should render the exit notice with repeated order id", func(t *testing.T) {
		tr, err := NewTranslator(LocalesFS, "en")
		if err != nil {
			t.Fatalf("NewTranslator failed: %v", err)
		}
		got := tr.T("wizard_add_invoice_exit", "ord-9", int64(1500))
		if strings.Count(got, "ord-9") != 2 || !strings.Contains(got, "1500 sats") || strings.Contains(got, "%!") {
			t.Errorf("unexpected rendering: %q", got)
		}
	})

	t.Run("should fail for unknown languages", func(t *testing.T) {
		if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
			t.Error("expected an error for a missing locale")
		}
	})
}
