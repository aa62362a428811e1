package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-p2p-trading/internal/domain/ports/adapter"
	"telegram-p2p-trading/internal/infra/i18n"
)

// botAPI is the part of *tgbotapi.BotAPI the adapter uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChatMember(cfg tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
	GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

var _ botAPI = (*tgbotapi.BotAPI)(nil)

var (
	_ adapter.Sender           = (*Messenger)(nil)
	_ adapter.ChatAdminChecker = (*Messenger)(nil)
)

// Messenger renders locale keys and talks to the Bot API on behalf of the
// use cases.
type Messenger struct {
	bot botAPI
	tr  *i18n.Translator
	log *zerolog.Logger
}

func NewMessenger(bot botAPI, tr *i18n.Translator, logger *zerolog.Logger) *Messenger {
	l := logger.With().Str("component", "TelegramMessenger").Logger()
	return &Messenger{bot: bot, tr: tr, log: &l}
}

func (m *Messenger) Send(ctx context.Context, telegramID int64, key string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(telegramID, m.tr.T(key, args...))
	msg.DisableWebPagePreview = true
	_, err := m.bot.Send(msg)
	return err
}

// IsChatAdmin asks Telegram for the user's membership in chatRef. Unknown
// chats, unknown users and chats the bot cannot see are reported as false.
func (m *Messenger) IsChatAdmin(ctx context.Context, chatRef string, telegramID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, ok := chatTarget(chatRef)
	if !ok {
		return false, nil
	}
	target.UserID = telegramID

	member, err := m.bot.GetChatMember(tgbotapi.GetChatMemberConfig{ChatConfigWithUser: target})
	if err != nil {
		if isDenied(err) {
			m.log.Debug().Err(err).Str("chat", chatRef).Int64("tg_id", telegramID).Msg("chat membership denied")
			return false, nil
		}
		return false, err
	}
	return member.IsCreator() || member.IsAdministrator(), nil
}

// chatTarget accepts "@handle" or a numeric chat id.
func chatTarget(ref string) (tgbotapi.ChatConfigWithUser, bool) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, "@") && len(ref) > 1 {
		return tgbotapi.ChatConfigWithUser{SuperGroupUsername: ref}, true
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id == 0 {
		return tgbotapi.ChatConfigWithUser{}, false
	}
	return tgbotapi.ChatConfigWithUser{ChatID: id}, true
}

func isDenied(err error) bool {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusBadRequest || apiErr.Code == http.StatusForbidden
	}
	return false
}
