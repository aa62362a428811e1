package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-p2p-trading/internal/application"
	"telegram-p2p-trading/internal/usecase"
	"telegram-p2p-trading/internal/wizard"
)

type cbHandler func(ctx context.Context, trig wizard.Trigger, c application.Caller, ref string) (*application.Reply, error)

type cbRoute struct {
	Prefix string
	// Match validates the rest of the data. Nil accepts any non-empty ref.
	Match func(ref string) bool
	Fn    cbHandler
}

// Prefix-match callbacks. The rest of the data is the order or community id.
func (b *Bot) cbPrefixRoutes() []cbRoute {
	return []cbRoute{
		{Prefix: "addinvoice:", Fn: b.facade.HandleAddInvoice},
		{Prefix: "updateinvoice:", Fn: b.facade.HandleUpdateInvoice},
		{Prefix: "fiatamount:", Fn: b.facade.HandleFiatAmount},
		{
			// community:<FIELD>:<community id>
			Prefix: "community:",
			Match: func(ref string) bool {
				field, id, ok := strings.Cut(ref, ":")
				return ok && id != "" && knownField(usecase.CommunityField(field))
			},
			Fn: func(ctx context.Context, trig wizard.Trigger, c application.Caller, ref string) (*application.Reply, error) {
				field, id, _ := strings.Cut(ref, ":")
				return b.facade.HandleCommunityUpdate(ctx, trig, c, usecase.CommunityField(field), id)
			},
		},
	}
}

func knownField(f usecase.CommunityField) bool {
	for _, k := range usecase.CommunityFields {
		if k == f {
			return true
		}
	}
	return false
}

func (b *Bot) handleQuery(ctx context.Context, c application.Caller, q *tgbotapi.CallbackQuery) error {
	// Stop the client's loading spinner first.
	if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		b.log.Debug().Err(err).Msg("answer callback failed")
	}
	for _, r := range b.cbPrefixRoutes() {
		ref, ok := strings.CutPrefix(q.Data, r.Prefix)
		if !ok || ref == "" || (r.Match != nil && !r.Match(ref)) {
			continue
		}
		trig := wizard.Trigger{Source: wizard.TriggerCallback, Ref: q.Data}
		reply, err := r.Fn(ctx, trig, c, ref)
		return b.reply(ctx, c, reply, err)
	}
	// Any other button press is a non-text event for a running wizard.
	b.log.Debug().Str("data", q.Data).Msg("unrouted callback")
	reply, err := b.facade.HandleMessage(ctx, c, wizard.Message{})
	return b.reply(ctx, c, reply, err)
}
