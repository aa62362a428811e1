package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-p2p-trading/internal/application"
	"telegram-p2p-trading/internal/infra/metrics"
	"telegram-p2p-trading/internal/usecase"
	"telegram-p2p-trading/internal/wizard"
)

type commandHandler func(ctx context.Context, trig wizard.Trigger, c application.Caller, args []string) (*application.Reply, error)

// commandRoutes maps bot commands to their handlers.
func (b *Bot) commandRoutes() map[string]commandHandler {
	routes := map[string]commandHandler{
		"start":         b.handleStartCommand,
		"help":          b.handleHelpCommand,
		"cancel":        b.handleCancelCommand,
		"community":     b.handleCommunityCommand,
		"fiatamount":    withArg("/fiatamount <order id>", b.facade.HandleFiatAmount),
		"addinvoice":    withArg("/addinvoice <order id>", b.facade.HandleAddInvoice),
		"updateinvoice": withArg("/updateinvoice <order id>", b.facade.HandleUpdateInvoice),
	}
	for cmd, field := range communityCommands {
		field := field // per-iteration copy; go.mod targets go 1.21 loop semantics
		routes[cmd] = withArg("/"+cmd+" <community id>", func(ctx context.Context, trig wizard.Trigger, c application.Caller, id string) (*application.Reply, error) {
			return b.facade.HandleCommunityUpdate(ctx, trig, c, field, id)
		})
	}
	return routes
}

// communityCommands open the update wizard of one community field.
var communityCommands = map[string]usecase.CommunityField{
	"setname":           usecase.FieldName,
	"setgroup":          usecase.FieldGroup,
	"setcurrencies":     usecase.FieldCurrencies,
	"setchannels":       usecase.FieldChannels,
	"setsolvers":        usecase.FieldSolvers,
	"setdisputechannel": usecase.FieldDisputeChannel,
}

// withArg adapts a handler that needs exactly one id argument.
func withArg(usage string, next func(context.Context, wizard.Trigger, application.Caller, string) (*application.Reply, error)) commandHandler {
	return func(ctx context.Context, trig wizard.Trigger, c application.Caller, args []string) (*application.Reply, error) {
		if len(args) != 1 {
			return &application.Reply{Key: "command_usage", Args: []any{usage}}, nil
		}
		return next(ctx, trig, c, args[0])
	}
}

func (b *Bot) handleCommand(ctx context.Context, c application.Caller, msg *tgbotapi.Message) error {
	name := strings.ToLower(msg.Command())
	handler, ok := b.commandRoutes()[name]
	if !ok {
		return b.out.Send(ctx, c.TgID, "unknown_command")
	}
	trig := wizard.Trigger{Source: wizard.TriggerCommand, Ref: "/" + name}
	reply, err := handler(ctx, trig, c, strings.Fields(msg.CommandArguments()))
	return b.reply(ctx, c, reply, err)
}

func (b *Bot) handleStartCommand(ctx context.Context, _ wizard.Trigger, c application.Caller, _ []string) (*application.Reply, error) {
	reply, created, err := b.facade.HandleStart(ctx, c)
	if err != nil {
		return nil, err
	}
	if created {
		metrics.IncUsersRegistered()
	}
	return reply, nil
}

func (b *Bot) handleHelpCommand(context.Context, wizard.Trigger, application.Caller, []string) (*application.Reply, error) {
	return b.facade.HandleHelp(), nil
}

func (b *Bot) handleCancelCommand(ctx context.Context, _ wizard.Trigger, c application.Caller, _ []string) (*application.Reply, error) {
	return b.facade.HandleCancel(ctx, c)
}

func (b *Bot) handleCommunityCommand(ctx context.Context, trig wizard.Trigger, c application.Caller, _ []string) (*application.Reply, error) {
	return b.facade.HandleCommunity(ctx, trig, c)
}
