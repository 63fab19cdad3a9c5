package operator

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/domain"
)

const menuText = "*Shop manager*\n" +
	"Run your Telegram storefronts from one place:\n" +
	"register a bot token, fill the catalog, add stock, invite staff."

func menuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🏪 My shops", Unique: "shops"},
		{Text: "➕ Connect a shop", Unique: "shop_add"},
	})
}

func backToMenuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🏠 Main menu", Unique: "menu"},
	})
}

func (h *Handlers) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	sender := c.Sender()
	if sender != nil {
		name := sender.FirstName
		if sender.LastName != "" {
			name += " " + sender.LastName
		}
		_ = h.users.Upsert(ctx, domain.User{TelegramID: sender.ID, FullName: name})
		h.sessions.Clear(sender.ID)
	}
	return tghelpers.SendMD(c, menuText, menuMarkup())
}

func (h *Handlers) showMenu(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	return tghelpers.EditOrSendMD(c, menuText, menuMarkup())
}
