package operator

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/domain"
)

// Suggested names travel inside callback payloads, which cannot carry
// spaces next to the separator safely, so spaces become underscores in
// transit. Telegram caps callback data at 64 bytes; longer names are
// truncated before encoding.
const maxSuggestionPayload = 40

func encodeSuggestion(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if len(name) > maxSuggestionPayload {
		name = name[:maxSuggestionPayload]
	}
	return name
}

func decodeSuggestion(payload string) string {
	return strings.ReplaceAll(payload, "_", " ")
}

func (h *Handlers) suggestCategory(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	if h.suggest == nil {
		return h.showCategories(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}

	shop, err := h.shops.Get(ctx, shopID)
	if err != nil {
		return replyErr(c, err)
	}
	cats, err := h.catalog.TopCategories(ctx, shopID)
	if err != nil {
		return replyErr(c, err)
	}
	taken := make([]string, 0, len(cats))
	for _, cat := range cats {
		taken = append(taken, cat.Name)
	}

	name, err := h.suggest.CategoryName(ctx, h.shopTitle(ctx, shop), taken)
	if err != nil {
		return replyErr(c, err)
	}

	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("✨ Suggested category: *%s*\nAdd it to the catalog?", md(name)),
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "✅ Add it", Unique: "suggest_category_ok", Data: i64(shopID) + "|" + encodeSuggestion(name)},
				{Text: "🔄 Another one", Unique: "suggest_category", Data: i64(shopID)},
			},
			[]keyboard.InlineBtn{
				{Text: "🗂 Back to the catalog", Unique: "categories", Data: i64(shopID)},
			},
		))
}

func (h *Handlers) acceptSuggestedCategory(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 2 {
		return h.showShops(c)
	}
	shopID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	cat, err := h.catalog.AddCategory(ctx, shopID, decodeSuggestion(parts[1]))
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("✅ Category *%s* added.", md(cat.Name)),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🗂 Back to the catalog", Unique: "categories", Data: i64(shopID)},
		}))
}

func (h *Handlers) suggestSubcategory(c tele.Context) error {
	shopID, parentID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	if h.suggest == nil {
		return h.showCategories(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}

	shop, err := h.shops.Get(ctx, shopID)
	if err != nil {
		return replyErr(c, err)
	}
	parent, err := h.catalog.Category(ctx, parentID)
	if err != nil {
		return replyErr(c, err)
	}
	if parent.ShopID != shopID {
		return replyErr(c, domain.ErrNotFound)
	}
	subs, err := h.catalog.Subcategories(ctx, parentID)
	if err != nil {
		return replyErr(c, err)
	}
	taken := make([]string, 0, len(subs))
	for _, sub := range subs {
		taken = append(taken, sub.Name)
	}

	name, err := h.suggest.SubcategoryName(ctx, h.shopTitle(ctx, shop), parent.Name, taken)
	if err != nil {
		return replyErr(c, err)
	}

	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("✨ Suggested subcategory for *%s*: *%s*\nAdd it?", md(parent.Name), md(name)),
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "✅ Add it", Unique: "suggest_subcat_ok", Data: pair(shopID, parentID) + "|" + encodeSuggestion(name)},
				{Text: "🔄 Another one", Unique: "suggest_subcat", Data: pair(shopID, parentID)},
			},
			[]keyboard.InlineBtn{
				{Text: "🔙 Back", Unique: "category", Data: pair(shopID, parentID)},
			},
		))
}

func (h *Handlers) acceptSuggestedSubcategory(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, "|")
	if err != nil || len(parts) != 3 {
		return h.showShops(c)
	}
	shopID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	parentID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	sub, err := h.catalog.AddSubcategory(ctx, shopID, parentID, decodeSuggestion(parts[2]))
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("✅ Subcategory *%s* added.", md(sub.Name)),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back", Unique: "category", Data: pair(shopID, parentID)},
		}))
}
