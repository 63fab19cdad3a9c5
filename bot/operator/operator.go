// Package operator implements the management bot: the single bot where
// sellers register shops, edit catalogs and stock, and manage staff. Buyers
// never talk to this bot; each shop's storefront bot is run by the fleet.
package operator

import (
	"context"
	"errors"
	"fmt"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/m3rciful/shopbot/core/telegram/format"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/core/telegram/ui"
	"github.com/m3rciful/shopbot/domain"
	adminssvc "github.com/m3rciful/shopbot/service/admins"
	catalogsvc "github.com/m3rciful/shopbot/service/catalog"
	shopssvc "github.com/m3rciful/shopbot/service/shops"
	suggestsvc "github.com/m3rciful/shopbot/service/suggest"
)

// UserStore records everyone who talks to the operator bot and resolves
// them back by Telegram id.
type UserStore interface {
	Upsert(ctx context.Context, u domain.User) error
	GetUserByTelegramID(ctx context.Context, tgID int64) (domain.User, error)
}

// FleetStatus reports the state of the storefront fleet to the platform
// operator.
type FleetStatus interface {
	Size() int
	Degraded() map[string]error
}

// Handlers wires the operator bot's commands, callbacks and wizard steps.
type Handlers struct {
	sessions state.Manager
	users    UserStore
	shops    *shopssvc.Service
	catalog  *catalogsvc.Service
	admins   *adminssvc.Service
	suggest  *suggestsvc.Client
	fleet    FleetStatus
}

// New builds the operator handler set. suggest may be nil when no agent is
// configured; the related buttons are hidden then.
func New(
	sessions state.Manager,
	users UserStore,
	shops *shopssvc.Service,
	catalog *catalogsvc.Service,
	admins *adminssvc.Service,
	suggest *suggestsvc.Client,
	fleet FleetStatus,
) *Handlers {
	return &Handlers{
		sessions: sessions,
		users:    users,
		shops:    shops,
		catalog:  catalog,
		admins:   admins,
		suggest:  suggest,
		fleet:    fleet,
	}
}

// Register binds every operator handler into the registry and the wizard
// step table.
func (h *Handlers) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.handleStart,
		Description: "Open the main menu",
	})
	reg.RegisterCommand("/fleet", commands.Command{
		Handler:     h.handleFleetStatus,
		Description: "Storefront fleet status",
		AdminOnly:   true,
		Hidden:      true,
	})

	cbs := map[string]tele.HandlerFunc{
		"menu": h.showMenu,

		"shops":           h.showShops,
		"shop_add":        h.startAddShop,
		"shop":            h.showShop,
		"shop_on":         h.turnShopOn,
		"shop_off":        h.turnShopOff,
		"shop_token":      h.showShopToken,
		"shop_delete":     h.confirmDeleteShop,
		"shop_delete_yes": h.deleteShop,

		"categories":          h.showCategories,
		"category_add":        h.startAddCategory,
		"category":            h.showCategory,
		"subcategory_add":     h.startAddSubcategory,
		"category_rename":     h.startRenameCategory,
		"category_delete":     h.confirmDeleteCategory,
		"category_delete_yes": h.deleteCategory,

		"product_add":        h.startAddProduct,
		"product":            h.showProduct,
		"product_delete":     h.confirmDeleteProduct,
		"product_delete_yes": h.deleteProduct,
		"unit_add":           h.startAddUnit,

		"admins":           h.showAdmins,
		"admin_add":        h.startAddAdmin,
		"admin_rights":     h.toggleGrantRights,
		"admin_rights_ok":  h.confirmGrant,
		"admin":            h.showAdmin,
		"admin_toggle":     h.toggleAdminCapability,
		"admin_revoke":     h.confirmRevokeAdmin,
		"admin_revoke_yes": h.revokeAdmin,

		"suggest_category":    h.suggestCategory,
		"suggest_category_ok": h.acceptSuggestedCategory,
		"suggest_subcat":      h.suggestSubcategory,
		"suggest_subcat_ok":   h.acceptSuggestedSubcategory,

		"wizard_cancel": h.cancelWizard,
	}
	for key, handler := range cbs {
		_ = reg.RegisterCallback(key, handler)
	}

	state.RegisterHandler(kindTokenInput, h.stepToken)
	state.RegisterHandler(kindCategoryName, h.stepCategoryName)
	state.RegisterHandler(kindCategoryRename, h.stepCategoryRename)
	state.RegisterHandler(kindSubcatName, h.stepSubcategoryName)
	state.RegisterHandler(kindProductName, h.stepProductName)
	state.RegisterHandler(kindProductPrice, h.stepProductPrice)
	state.RegisterHandler(kindUnitPayload, h.stepUnitPayload)
	state.RegisterHandler(kindAdminID, h.stepAdminID)
	state.SetFallback(h.unknownText)

	reg.SetTextFallback(h.unknownText)
	reg.SetCallbackNotFound(h.unknownCallback)
}

// Sessions exposes the wizard manager for text routing.
func (h *Handlers) Sessions() state.Manager { return h.sessions }

// md escapes user-provided names before they are interpolated into
// Markdown message bodies.
func md(s string) string {
	esc, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return esc
}

// handleFleetStatus is a platform-operator command, not visible to sellers.
func (h *Handlers) handleFleetStatus(c tele.Context) error {
	if h.fleet == nil {
		return nil
	}
	degraded := h.fleet.Degraded()
	text := fmt.Sprintf("Storefront bots online: %d\nDegraded: %d", h.fleet.Size(), len(degraded))
	for digest, err := range degraded {
		short := digest
		if len(short) > 12 {
			short = short[:12]
		}
		text += fmt.Sprintf("\n`%s…`: %s", short, err)
	}
	return tghelpers.SendMD(c, text)
}

func (h *Handlers) cancelWizard(c tele.Context) error {
	h.sessions.Clear(c.Sender().ID)
	return h.showMenu(c)
}

func (h *Handlers) unknownText(c tele.Context) error {
	return tghelpers.SendMD(c, "I didn't understand that. Use the menu below.", menuMarkup())
}

func (h *Handlers) unknownDocument(c tele.Context) error {
	return tghelpers.SendMD(c, "I can't do anything with files. Use the menu below.", menuMarkup())
}

func (h *Handlers) unknownCallback(c tele.Context) error {
	_ = c.Respond(&tele.CallbackResponse{Text: "This button is no longer active"})
	return h.showMenu(c)
}

var _ ui.FallbackProvider = (*Handlers)(nil)

// UnknownText handles text the router could not map to a command or wizard.
func (h *Handlers) UnknownText() tele.HandlerFunc { return h.unknownText }

// UnknownDocument handles documents sent outside any wizard.
func (h *Handlers) UnknownDocument() tele.HandlerFunc { return h.unknownDocument }

// UnknownCallback handles presses on buttons no handler is bound to.
func (h *Handlers) UnknownCallback() tele.HandlerFunc { return h.unknownCallback }

// replyErr renders a service error as a user-facing screen. Validation and
// permission problems get precise wording; anything else gets a generic
// failure screen so internals never leak into chat.
func replyErr(c tele.Context, err error) error {
	var v *domain.ValidationError
	switch {
	case errors.As(err, &v):
		return tghelpers.EditOrSendMD(c, "⚠️ "+v.Reason, backToMenuMarkup())
	case errors.Is(err, domain.ErrForbidden):
		return tghelpers.EditOrSendMD(c, "🚫 You don't have permission to do that.", backToMenuMarkup())
	case errors.Is(err, domain.ErrNotFound):
		return tghelpers.EditOrSendMD(c, "❌ Not found. It may have been removed.", backToMenuMarkup())
	case errors.Is(err, domain.ErrConflict):
		return tghelpers.EditOrSendMD(c, "⚠️ This already exists.", backToMenuMarkup())
	case errors.Is(err, domain.ErrOutOfStock):
		return tghelpers.EditOrSendMD(c, "📦 Out of stock.", backToMenuMarkup())
	default:
		return tghelpers.EditOrSendMD(c, "❌ Something went wrong. Try again later.", backToMenuMarkup())
	}
}
