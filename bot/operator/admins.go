package operator

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/domain"
)

// grantDraft is a pending administrator grant carried statelessly in
// callback payloads while the inviter toggles capability flags.
type grantDraft struct {
	ShopID   int64
	UserID   int64
	Roles    bool
	Chat     bool
	Products bool
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func encodeGrant(d grantDraft) string {
	return strings.Join([]string{
		i64(d.ShopID), i64(d.UserID), bit(d.Roles), bit(d.Chat), bit(d.Products),
	}, "|")
}

func decodeGrant(payload string) (grantDraft, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 5 {
		return grantDraft{}, fmt.Errorf("grant payload: want 5 parts, got %d", len(parts))
	}
	shopID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return grantDraft{}, err
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return grantDraft{}, err
	}
	return grantDraft{
		ShopID:   shopID,
		UserID:   userID,
		Roles:    parts[2] == "1",
		Chat:     parts[3] == "1",
		Products: parts[4] == "1",
	}, nil
}

func checkbox(b bool) string {
	if b {
		return "✅"
	}
	return "◻️"
}

func capabilityLine(a domain.Administrator) string {
	var caps []string
	if a.CanManageRoles {
		caps = append(caps, "roles")
	}
	if a.CanChatClients {
		caps = append(caps, "chats")
	}
	if a.CanManageProducts {
		caps = append(caps, "products")
	}
	if len(caps) == 0 {
		return "no capabilities"
	}
	return strings.Join(caps, ", ")
}

func (h *Handlers) showAdmins(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	list, err := h.admins.List(ctx, c.Sender().ID, shopID)
	if err != nil {
		return replyErr(c, err)
	}

	var btns []keyboard.InlineBtn
	for _, a := range list {
		title := a.FullName
		if title == "" {
			title = "id " + i64(a.TelegramID)
		}
		btns = append(btns, keyboard.InlineBtn{
			Text:   fmt.Sprintf("👤 %s (%s)", title, capabilityLine(a)),
			Unique: "admin",
			Data:   pair(shopID, a.ID),
		})
	}
	btns = append(btns,
		keyboard.InlineBtn{Text: "➕ Add an administrator", Unique: "admin_add", Data: i64(shopID)},
		keyboard.InlineBtn{Text: "🔙 Back to the shop", Unique: "shop", Data: i64(shopID)},
	)

	text := "*Administrators*"
	if len(list) == 0 {
		text = "*Administrators*\nNobody here yet. You can delegate shop chores to staff."
	}
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons(btns))
}

func (h *Handlers) startAddAdmin(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageRoles); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepAdminID{ShopID: shopID})
	return tghelpers.EditOrSendMD(c,
		"Send the Telegram user id of the person to invite.\n"+
			"They must have talked to this bot at least once.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepAdminID(c tele.Context, st state.Step) error {
	step, ok := st.(stepAdminID)
	if !ok {
		return h.showMenu(c)
	}
	userID, ok := tghelpers.ParseTelegramID(c.Text())
	if !ok {
		h.sessions.SetStep(c.Sender().ID, step)
		return tghelpers.SendMD(c, "That's not a user id. Send a number like `123456789`.",
			keyboard.SingleCancelMarkup("wizard_cancel"))
	}

	ctx := tghelpers.BuildContext(c)
	if _, err := tghelpers.CurrentUser[domain.User](ctx, h.users, userID); err != nil {
		h.sessions.SetStep(c.Sender().ID, step)
		return tghelpers.SendMD(c,
			"That user hasn't talked to this bot yet. Ask them to press /start first, then send the id again.",
			keyboard.SingleCancelMarkup("wizard_cancel"))
	}
	return h.sendGrantScreen(c, grantDraft{ShopID: step.ShopID, UserID: userID}, false)
}

// sendGrantScreen renders the capability picker. The draft lives entirely in
// the button payloads, so the flow survives restarts and parallel sessions.
func (h *Handlers) sendGrantScreen(c tele.Context, d grantDraft, edit bool) error {
	data := encodeGrant(d)
	text := fmt.Sprintf("*New administrator* (id %d)\nPick the capabilities, then confirm.", d.UserID)
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: checkbox(d.Roles) + " Manage staff", Unique: "admin_rights", Data: data + "|r"},
		{Text: checkbox(d.Chat) + " Chat with buyers", Unique: "admin_rights", Data: data + "|c"},
		{Text: checkbox(d.Products) + " Manage the catalog", Unique: "admin_rights", Data: data + "|p"},
		{Text: "✅ Confirm", Unique: "admin_rights_ok", Data: data},
		{Text: "🔙 Cancel", Unique: "admins", Data: i64(d.ShopID)},
	})
	if edit {
		return tghelpers.EditOrSendMD(c, text, markup)
	}
	return tghelpers.SendMD(c, text, markup)
}

func (h *Handlers) toggleGrantRights(c tele.Context) error {
	payload := callbacks.CallbackPayload(c)
	idx := strings.LastIndex(payload, "|")
	if idx < 0 {
		return h.showShops(c)
	}
	d, err := decodeGrant(payload[:idx])
	if err != nil {
		return h.showShops(c)
	}
	switch payload[idx+1:] {
	case "r":
		d.Roles = !d.Roles
	case "c":
		d.Chat = !d.Chat
	case "p":
		d.Products = !d.Products
	}
	return h.sendGrantScreen(c, d, true)
}

func (h *Handlers) confirmGrant(c tele.Context) error {
	d, err := decodeGrant(callbacks.CallbackPayload(c))
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	_, err = h.admins.Grant(ctx, c.Sender().ID, domain.Administrator{
		ShopID:            d.ShopID,
		TelegramID:        d.UserID,
		CanManageRoles:    d.Roles,
		CanChatClients:    d.Chat,
		CanManageProducts: d.Products,
	})
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c, "✅ Administrator added.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "👥 Back to administrators", Unique: "admins", Data: i64(d.ShopID)},
		}))
}

// showAdmin tolerates a trailing toggle suffix in the payload so capability
// toggles can re-render the same screen.
func (h *Handlers) showAdmin(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) < 2 {
		return h.showShops(c)
	}
	shopID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	grantID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	a, err := h.admins.Get(ctx, c.Sender().ID, grantID)
	if err != nil {
		return replyErr(c, err)
	}
	if a.ShopID != shopID {
		return replyErr(c, domain.ErrNotFound)
	}

	title := a.FullName
	if title == "" {
		title = "id " + i64(a.TelegramID)
	}
	text := fmt.Sprintf("*%s*\nCapabilities: %s", md(title), capabilityLine(a))
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: checkbox(a.CanManageRoles) + " Manage staff", Unique: "admin_toggle", Data: pair(shopID, grantID) + "|r"},
		{Text: checkbox(a.CanChatClients) + " Chat with buyers", Unique: "admin_toggle", Data: pair(shopID, grantID) + "|c"},
		{Text: checkbox(a.CanManageProducts) + " Manage the catalog", Unique: "admin_toggle", Data: pair(shopID, grantID) + "|p"},
		{Text: "🗑 Revoke access", Unique: "admin_revoke", Data: pair(shopID, grantID)},
		{Text: "👥 Back to administrators", Unique: "admins", Data: i64(shopID)},
	}))
}

func (h *Handlers) toggleAdminCapability(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 3 {
		return h.showShops(c)
	}
	shopID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	grantID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return h.showShops(c)
	}

	ctx := tghelpers.BuildContext(c)
	a, err := h.admins.Get(ctx, c.Sender().ID, grantID)
	if err != nil {
		return replyErr(c, err)
	}
	if a.ShopID != shopID {
		return replyErr(c, domain.ErrNotFound)
	}
	roles, chat, products := a.CanManageRoles, a.CanChatClients, a.CanManageProducts
	switch parts[2] {
	case "r":
		roles = !roles
	case "c":
		chat = !chat
	case "p":
		products = !products
	}
	if err := h.admins.Update(ctx, c.Sender().ID, grantID, roles, chat, products); err != nil {
		return replyErr(c, err)
	}
	return h.showAdmin(c)
}

func (h *Handlers) confirmRevokeAdmin(c tele.Context) error {
	shopID, grantID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	return tghelpers.EditOrSendMD(c,
		"Revoke this administrator's access?",
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "🗑 Yes, revoke", Unique: "admin_revoke_yes", Data: pair(shopID, grantID)},
				{Text: "🔙 Keep access", Unique: "admin", Data: pair(shopID, grantID)},
			},
		))
}

func (h *Handlers) revokeAdmin(c tele.Context) error {
	shopID, grantID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Revoke(ctx, c.Sender().ID, grantID); err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c, "🗑 Access revoked.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "👥 Back to administrators", Unique: "admins", Data: i64(shopID)},
		}))
}
