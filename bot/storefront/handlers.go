package storefront

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/m3rciful/shopbot/core/telegram/format"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/domain"
)

// Catalog is the read-only slice of the catalog a storefront needs.
type Catalog interface {
	TopCategories(ctx context.Context, shopID int64) ([]domain.Category, error)
	Category(ctx context.Context, id int64) (domain.Category, error)
	HasSubcategories(ctx context.Context, id int64) (bool, error)
	Subcategories(ctx context.Context, parentID int64) ([]domain.Category, error)
	Products(ctx context.Context, categoryID int64) ([]domain.Product, error)
	Product(ctx context.Context, id int64) (domain.Product, error)
	Stock(ctx context.Context, productID int64) (int, error)
}

// Allocator reserves stock for buyers.
type Allocator interface {
	Buy(ctx context.Context, shopID, productID, buyerID int64) (domain.InventoryUnit, domain.Purchase, error)
}

// PurchaseLister lets buyers re-read what they bought. Purchase records
// carry their own payload copy, so history works even after the product
// was deleted from the catalog.
type PurchaseLister interface {
	ListByBuyer(ctx context.Context, shopID, buyerID int64) ([]domain.Purchase, error)
}

// handlers serves buyers of one shop. Every handler double-checks that the
// requested category or product belongs to this shop, so a crafted callback
// cannot reach another tenant's catalog.
type handlers struct {
	shopID    int64
	catalog   Catalog
	allocator Allocator
	purchases PurchaseLister
}

func newHandlers(shopID int64, catalog Catalog, allocator Allocator, purchases PurchaseLister) *handlers {
	return &handlers{shopID: shopID, catalog: catalog, allocator: allocator, purchases: purchases}
}

func (h *handlers) register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.handleStart,
		Description: "Browse the shop",
	})

	_ = reg.RegisterCallback("cats", h.showCatalog)
	_ = reg.RegisterCallback("cat", h.showCategory)
	_ = reg.RegisterCallback("prod", h.showProduct)
	_ = reg.RegisterCallback("buy", h.buy)
	_ = reg.RegisterCallback("mine", h.showPurchases)

	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendMD(c, "Use the buttons to browse the shop.", homeMarkup())
	})
}

func i64(v int64) string { return strconv.FormatInt(v, 10) }

// md escapes seller-provided names before they go into Markdown bodies.
func md(s string) string {
	esc, err := format.EscapeMarkdown(s, format.MarkdownV1, "")
	if err != nil {
		return s
	}
	return esc
}

func homeMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "🛍 Catalog", Unique: "cats"},
		{Text: "📦 My purchases", Unique: "mine"},
	})
}

func buyerErr(c tele.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		return tghelpers.EditOrSendMD(c, "😔 Sold out. Check back later.", homeMarkup())
	case errors.Is(err, domain.ErrNotFound):
		return tghelpers.EditOrSendMD(c, "This item is no longer available.", homeMarkup())
	default:
		return tghelpers.EditOrSendMD(c, "Something went wrong. Try again in a minute.", homeMarkup())
	}
}

func (h *handlers) handleStart(c tele.Context) error {
	return tghelpers.SendMD(c, "*Welcome!*\nPick a category to browse.", homeMarkup())
}

func (h *handlers) showCatalog(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	cats, err := h.catalog.TopCategories(ctx, h.shopID)
	if err != nil {
		return buyerErr(c, err)
	}
	if len(cats) == 0 {
		return tghelpers.EditOrSendMD(c, "The shop is being stocked. Check back soon!", homeMarkup())
	}

	var btns []keyboard.InlineBtn
	for _, cat := range cats {
		btns = append(btns, keyboard.InlineBtn{Text: cat.Name, Unique: "cat", Data: i64(cat.ID)})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "📦 My purchases", Unique: "mine"})
	return tghelpers.EditOrSendMD(c, "*Catalog*", keyboard.InlineButtons(btns))
}

// showCategory descends grouping nodes and lists products of leaves.
func (h *handlers) showCategory(c tele.Context) error {
	catID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showCatalog(c)
	}
	ctx := tghelpers.BuildContext(c)
	cat, err := h.catalog.Category(ctx, catID)
	if err != nil || cat.ShopID != h.shopID {
		return h.showCatalog(c)
	}

	grouping, err := h.catalog.HasSubcategories(ctx, catID)
	if err != nil {
		return buyerErr(c, err)
	}

	var btns []keyboard.InlineBtn
	if grouping {
		subs, err := h.catalog.Subcategories(ctx, catID)
		if err != nil {
			return buyerErr(c, err)
		}
		for _, sub := range subs {
			btns = append(btns, keyboard.InlineBtn{Text: sub.Name, Unique: "cat", Data: i64(sub.ID)})
		}
	} else {
		products, err := h.catalog.Products(ctx, catID)
		if err != nil {
			return buyerErr(c, err)
		}
		if len(products) == 0 {
			btns = append(btns, keyboard.InlineBtn{Text: "🛍 Back to the catalog", Unique: "cats"})
			return tghelpers.EditOrSendMD(c, "*"+md(cat.Name)+"*\nNothing here yet.", keyboard.InlineButtons(btns))
		}
		for _, p := range products {
			btns = append(btns, keyboard.InlineBtn{
				Text:   fmt.Sprintf("%s — %s", p.Name, tghelpers.FormatPrice(p.Price)),
				Unique: "prod",
				Data:   i64(p.ID),
			})
		}
	}

	parentBtn := keyboard.InlineBtn{Text: "🛍 Back to the catalog", Unique: "cats"}
	if parentID := format.DerefInt64(cat.ParentID, 0); parentID != 0 {
		parentBtn = keyboard.InlineBtn{Text: "🔙 Back", Unique: "cat", Data: i64(parentID)}
	}
	btns = append(btns, parentBtn)
	return tghelpers.EditOrSendMD(c, "*"+md(cat.Name)+"*", keyboard.InlineButtons(btns))
}

// product loads a product and verifies it belongs to this shop.
func (h *handlers) product(ctx context.Context, productID int64) (domain.Product, error) {
	p, err := h.catalog.Product(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	cat, err := h.catalog.Category(ctx, p.CategoryID)
	if err != nil {
		return domain.Product{}, err
	}
	if cat.ShopID != h.shopID {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, nil
}

func (h *handlers) showProduct(c tele.Context) error {
	productID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showCatalog(c)
	}
	ctx := tghelpers.BuildContext(c)
	p, err := h.product(ctx, productID)
	if err != nil {
		return buyerErr(c, err)
	}
	stock, err := h.catalog.Stock(ctx, productID)
	if err != nil {
		return buyerErr(c, err)
	}

	text := fmt.Sprintf("*%s*\nPrice: %s", md(p.Name), tghelpers.FormatPrice(p.Price))
	var btns []keyboard.InlineBtn
	if stock > 0 {
		btns = append(btns, keyboard.InlineBtn{Text: "💳 Buy", Unique: "buy", Data: i64(p.ID)})
	} else {
		text += "\n😔 Sold out right now."
	}
	btns = append(btns, keyboard.InlineBtn{Text: "🔙 Back", Unique: "cat", Data: i64(p.CategoryID)})
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons(btns))
}

func (h *handlers) buy(c tele.Context) error {
	productID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showCatalog(c)
	}
	ctx := tghelpers.BuildContext(c)
	p, err := h.product(ctx, productID)
	if err != nil {
		return buyerErr(c, err)
	}

	unit, _, err := h.allocator.Buy(ctx, h.shopID, p.ID, c.Sender().ID)
	if err != nil {
		return buyerErr(c, err)
	}

	return tghelpers.EditOrSendMD(c,
		fmt.Sprintf("✅ *%s* is yours!\nHere is your purchase:\n`%s`", md(p.Name), unit.Payload),
		homeMarkup())
}

func (h *handlers) showPurchases(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	list, err := h.purchases.ListByBuyer(ctx, h.shopID, c.Sender().ID)
	if err != nil {
		return buyerErr(c, err)
	}
	if len(list) == 0 {
		return tghelpers.EditOrSendMD(c, "You haven't bought anything here yet.", homeMarkup())
	}

	text := "*Your purchases*\n"
	for _, purchase := range list {
		text += fmt.Sprintf("• %s — `%s`\n",
			purchase.CreatedAt.Format("02 Jan 2006"), purchase.Payload)
	}
	return tghelpers.EditOrSendMD(c, text, homeMarkup())
}
