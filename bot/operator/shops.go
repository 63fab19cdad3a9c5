package operator

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/domain"
	shopssvc "github.com/m3rciful/shopbot/service/shops"
)

func i64(v int64) string { return strconv.FormatInt(v, 10) }

// shopTitle resolves a display name for a shop: the bot's own name when it
// is running, a neutral fallback otherwise.
func (h *Handlers) shopTitle(ctx context.Context, shop domain.Shop) string {
	if id, err := h.shops.Identity(ctx, shop); err == nil && id.DisplayName != "" {
		return id.DisplayName
	}
	return fmt.Sprintf("Shop #%d", shop.ID)
}

func statusEmoji(running bool) string {
	if running {
		return "🟢"
	}
	return "🔴"
}

func (h *Handlers) showShops(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	ctx := tghelpers.BuildContext(c)
	owned, administered, err := h.shops.Accessible(ctx, c.Sender().ID)
	if err != nil {
		return replyErr(c, err)
	}

	if len(owned) == 0 && len(administered) == 0 {
		return tghelpers.EditOrSendMD(c,
			"You have no shops yet. Connect a bot token from @BotFather to open one.",
			keyboard.InlineButtons([]keyboard.InlineBtn{
				{Text: "➕ Connect a shop", Unique: "shop_add"},
				{Text: "🏠 Main menu", Unique: "menu"},
			}))
	}

	var btns []keyboard.InlineBtn
	for _, shop := range owned {
		running := h.shops.IsRunning(ctx, shop)
		btns = append(btns, keyboard.InlineBtn{
			Text:   statusEmoji(running) + " " + h.shopTitle(ctx, shop),
			Unique: "shop",
			Data:   i64(shop.ID),
		})
	}
	for _, shop := range administered {
		running := h.shops.IsRunning(ctx, shop)
		btns = append(btns, keyboard.InlineBtn{
			Text:   statusEmoji(running) + " " + h.shopTitle(ctx, shop) + " (staff)",
			Unique: "shop",
			Data:   i64(shop.ID),
		})
	}
	btns = append(btns,
		keyboard.InlineBtn{Text: "➕ Connect a shop", Unique: "shop_add"},
		keyboard.InlineBtn{Text: "🏠 Main menu", Unique: "menu"},
	)
	return tghelpers.EditOrSendMD(c, "*Your shops*", keyboard.InlineButtons(btns))
}

func (h *Handlers) startAddShop(c tele.Context) error {
	h.sessions.SetStep(c.Sender().ID, stepTokenInput{})
	return tghelpers.EditOrSendMD(c,
		"Send the bot token from @BotFather.\n"+
			"It looks like `123456789:AA...`. The token is stored encrypted.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepToken(c tele.Context, _ state.Step) error {
	ctx := tghelpers.BuildContext(c)
	token := c.Text()

	if !shopssvc.ValidToken(token) {
		// Keep the wizard open: a typo should not force a menu round trip.
		h.sessions.SetStep(c.Sender().ID, stepTokenInput{})
		return tghelpers.SendMD(c,
			"That doesn't look like a bot token. Check it and send again.",
			keyboard.SingleCancelMarkup("wizard_cancel"))
	}

	shop, err := h.shops.Register(ctx, c.Sender().ID, token)
	if err != nil {
		return replyErr(c, err)
	}

	return tghelpers.SendMD(c,
		fmt.Sprintf("✅ *%s* is connected and running.", md(h.shopTitle(ctx, shop))),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "⚙️ Open the shop", Unique: "shop", Data: i64(shop.ID)},
			{Text: "🏠 Main menu", Unique: "menu"},
		}))
}

func (h *Handlers) showShop(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	shop, err := h.shops.Get(ctx, shopID)
	if err != nil {
		return replyErr(c, err)
	}

	running := h.shops.IsRunning(ctx, shop)
	isOwner := shop.OwnerID == c.Sender().ID

	text := fmt.Sprintf("*%s* %s\n", md(h.shopTitle(ctx, shop)), statusEmoji(running))
	if running {
		text += "The storefront bot is online."
	} else {
		text += "The storefront bot is stopped."
	}

	btns := []keyboard.InlineBtn{
		{Text: "🗂 Catalog", Unique: "categories", Data: i64(shop.ID)},
		{Text: "👥 Administrators", Unique: "admins", Data: i64(shop.ID)},
	}
	if isOwner {
		if running {
			btns = append(btns, keyboard.InlineBtn{Text: "⏸ Stop the bot", Unique: "shop_off", Data: i64(shop.ID)})
		} else {
			btns = append(btns, keyboard.InlineBtn{Text: "▶️ Start the bot", Unique: "shop_on", Data: i64(shop.ID)})
		}
		btns = append(btns,
			keyboard.InlineBtn{Text: "🔑 Show token", Unique: "shop_token", Data: i64(shop.ID)},
			keyboard.InlineBtn{Text: "🗑 Delete the shop", Unique: "shop_delete", Data: i64(shop.ID)},
		)
	}
	btns = append(btns, keyboard.InlineBtn{Text: "🏠 Main menu", Unique: "menu"})
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons(btns))
}

func (h *Handlers) turnShopOn(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.shops.Activate(ctx, shopID, c.Sender().ID); err != nil {
		return replyErr(c, err)
	}
	return h.showShop(c)
}

func (h *Handlers) turnShopOff(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.shops.Deactivate(ctx, shopID, c.Sender().ID); err != nil {
		return replyErr(c, err)
	}
	return h.showShop(c)
}

func (h *Handlers) showShopToken(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	token, err := h.shops.RevealToken(ctx, shopID, c.Sender().ID)
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c,
		"🔑 Bot token:\n`"+token+"`\nKeep it secret.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back to the shop", Unique: "shop", Data: i64(shopID)},
		}))
}

func (h *Handlers) confirmDeleteShop(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	return tghelpers.EditOrSendMD(c,
		"Delete the shop with its whole catalog, stock and purchase history?\nThis cannot be undone.",
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "🗑 Yes, delete", Unique: "shop_delete_yes", Data: i64(shopID)},
				{Text: "🔙 Keep it", Unique: "shop", Data: i64(shopID)},
			},
		))
}

func (h *Handlers) deleteShop(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.shops.Delete(ctx, shopID, c.Sender().ID); err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c, "🗑 The shop is gone.", backToMenuMarkup())
}
