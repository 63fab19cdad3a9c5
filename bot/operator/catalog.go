package operator

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/domain"
)

func pair(a, b int64) string { return i64(a) + "|" + i64(b) }

func (h *Handlers) showCategories(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	cats, err := h.catalog.TopCategories(ctx, shopID)
	if err != nil {
		return replyErr(c, err)
	}

	var btns []keyboard.InlineBtn
	for _, cat := range cats {
		btns = append(btns, keyboard.InlineBtn{
			Text:   "📁 " + cat.Name,
			Unique: "category",
			Data:   pair(shopID, cat.ID),
		})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "➕ Add a category", Unique: "category_add", Data: i64(shopID)})
	if h.suggest != nil {
		btns = append(btns, keyboard.InlineBtn{Text: "✨ Suggest a category", Unique: "suggest_category", Data: i64(shopID)})
	}
	btns = append(btns, keyboard.InlineBtn{Text: "🔙 Back to the shop", Unique: "shop", Data: i64(shopID)})

	text := "*Catalog*"
	if len(cats) == 0 {
		text = "*Catalog*\nNo categories yet. Add the first one."
	}
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons(btns))
}

func (h *Handlers) startAddCategory(c tele.Context) error {
	shopID, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepCategoryName{ShopID: shopID})
	return tghelpers.EditOrSendMD(c, "Send the category name.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepCategoryName(c tele.Context, st state.Step) error {
	step, ok := st.(stepCategoryName)
	if !ok {
		return h.showMenu(c)
	}
	ctx := tghelpers.BuildContext(c)
	cat, err := h.catalog.AddCategory(ctx, step.ShopID, c.Text())
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.SendMD(c,
		fmt.Sprintf("✅ Category *%s* added.", md(cat.Name)),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🗂 Back to the catalog", Unique: "categories", Data: i64(step.ShopID)},
		}))
}

// showCategory renders a grouping node as its subcategory list and a leaf as
// its product list.
func (h *Handlers) showCategory(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	cat, err := h.catalog.Category(ctx, catID)
	if err != nil {
		return replyErr(c, err)
	}

	grouping, err := h.catalog.HasSubcategories(ctx, catID)
	if err != nil {
		return replyErr(c, err)
	}

	var btns []keyboard.InlineBtn
	text := "*" + md(cat.Name) + "*"

	if grouping {
		subs, err := h.catalog.Subcategories(ctx, catID)
		if err != nil {
			return replyErr(c, err)
		}
		for _, sub := range subs {
			btns = append(btns, keyboard.InlineBtn{
				Text:   "📁 " + sub.Name,
				Unique: "category",
				Data:   pair(shopID, sub.ID),
			})
		}
		btns = append(btns, keyboard.InlineBtn{Text: "➕ Add a subcategory", Unique: "subcategory_add", Data: pair(shopID, catID)})
		if h.suggest != nil {
			btns = append(btns, keyboard.InlineBtn{Text: "✨ Suggest a subcategory", Unique: "suggest_subcat", Data: pair(shopID, catID)})
		}
	} else {
		products, err := h.catalog.Products(ctx, catID)
		if err != nil {
			return replyErr(c, err)
		}
		for _, p := range products {
			stock, _ := h.catalog.Stock(ctx, p.ID)
			btns = append(btns, keyboard.InlineBtn{
				Text:   fmt.Sprintf("%s — %s (%d in stock)", p.Name, tghelpers.FormatPrice(p.Price), stock),
				Unique: "product",
				Data:   pair(shopID, p.ID),
			})
		}
		btns = append(btns, keyboard.InlineBtn{Text: "➕ Add a product", Unique: "product_add", Data: pair(shopID, catID)})
		if len(products) == 0 {
			// An empty leaf may still become a grouping node.
			btns = append(btns, keyboard.InlineBtn{Text: "➕ Add a subcategory", Unique: "subcategory_add", Data: pair(shopID, catID)})
			if h.suggest != nil {
				btns = append(btns, keyboard.InlineBtn{Text: "✨ Suggest a subcategory", Unique: "suggest_subcat", Data: pair(shopID, catID)})
			}
		}
	}

	btns = append(btns,
		keyboard.InlineBtn{Text: "✏️ Rename", Unique: "category_rename", Data: pair(shopID, catID)},
		keyboard.InlineBtn{Text: "🗑 Delete", Unique: "category_delete", Data: pair(shopID, catID)},
		keyboard.InlineBtn{Text: "🗂 Back to the catalog", Unique: "categories", Data: i64(shopID)},
	)
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons(btns))
}

func (h *Handlers) startAddSubcategory(c tele.Context) error {
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepSubcategoryName{ShopID: shopID, ParentID: catID})
	return tghelpers.EditOrSendMD(c, "Send the subcategory name.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepSubcategoryName(c tele.Context, st state.Step) error {
	step, ok := st.(stepSubcategoryName)
	if !ok {
		return h.showMenu(c)
	}
	ctx := tghelpers.BuildContext(c)
	sub, err := h.catalog.AddSubcategory(ctx, step.ShopID, step.ParentID, c.Text())
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.SendMD(c,
		fmt.Sprintf("✅ Subcategory *%s* added.", md(sub.Name)),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back", Unique: "category", Data: pair(step.ShopID, step.ParentID)},
		}))
}

func (h *Handlers) startRenameCategory(c tele.Context) error {
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepCategoryRename{ShopID: shopID, CategoryID: catID})
	return tghelpers.EditOrSendMD(c, "Send the new name.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepCategoryRename(c tele.Context, st state.Step) error {
	step, ok := st.(stepCategoryRename)
	if !ok {
		return h.showMenu(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.catalog.RenameCategory(ctx, step.ShopID, step.CategoryID, c.Text()); err != nil {
		return replyErr(c, err)
	}
	return tghelpers.SendMD(c, "✅ Renamed.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back", Unique: "category", Data: pair(step.ShopID, step.CategoryID)},
		}))
}

func (h *Handlers) confirmDeleteCategory(c tele.Context) error {
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	return tghelpers.EditOrSendMD(c,
		"Delete this category with everything inside it?",
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "🗑 Yes, delete", Unique: "category_delete_yes", Data: pair(shopID, catID)},
				{Text: "🔙 Keep it", Unique: "category", Data: pair(shopID, catID)},
			},
		))
}

func (h *Handlers) deleteCategory(c tele.Context) error {
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	if err := h.catalog.DeleteCategory(ctx, shopID, catID); err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c, "🗑 Category deleted.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🗂 Back to the catalog", Unique: "categories", Data: i64(shopID)},
		}))
}

func (h *Handlers) startAddProduct(c tele.Context) error {
	shopID, catID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepProductName{ShopID: shopID, CategoryID: catID})
	return tghelpers.EditOrSendMD(c, "Send the product name.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepProductName(c tele.Context, st state.Step) error {
	step, ok := st.(stepProductName)
	if !ok {
		return h.showMenu(c)
	}
	h.sessions.SetStep(c.Sender().ID, stepProductPrice{
		ShopID:     step.ShopID,
		CategoryID: step.CategoryID,
		Name:       c.Text(),
	})
	return tghelpers.SendMD(c, "Now send the price, e.g. `150` or `149.99`.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepProductPrice(c tele.Context, st state.Step) error {
	step, ok := st.(stepProductPrice)
	if !ok {
		return h.showMenu(c)
	}
	price, ok := tghelpers.ParsePrice(c.Text())
	if !ok {
		h.sessions.SetStep(c.Sender().ID, step)
		return tghelpers.SendMD(c, "That's not a valid price. Send a number like `150` or `149.99`.",
			keyboard.SingleCancelMarkup("wizard_cancel"))
	}

	ctx := tghelpers.BuildContext(c)
	p, err := h.catalog.AddProduct(ctx, step.ShopID, step.CategoryID, step.Name, price)
	if err != nil {
		return replyErr(c, err)
	}
	return tghelpers.SendMD(c,
		fmt.Sprintf("✅ *%s* added for %s. Now add stock so buyers can purchase it.",
			md(p.Name), tghelpers.FormatPrice(p.Price)),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "📦 Add stock", Unique: "unit_add", Data: pair(step.ShopID, p.ID)},
			{Text: "🔙 Back", Unique: "category", Data: pair(step.ShopID, step.CategoryID)},
		}))
}

func (h *Handlers) showProduct(c tele.Context) error {
	h.sessions.ClearStep(c.Sender().ID)
	shopID, productID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	p, err := h.catalog.Product(ctx, productID)
	if err != nil {
		return replyErr(c, err)
	}
	stock, err := h.catalog.Stock(ctx, productID)
	if err != nil {
		return replyErr(c, err)
	}

	text := fmt.Sprintf("*%s*\nPrice: %s\nIn stock: %d",
		md(p.Name), tghelpers.FormatPrice(p.Price), stock)
	return tghelpers.EditOrSendMD(c, text, keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "📦 Add stock", Unique: "unit_add", Data: pair(shopID, productID)},
		{Text: "🗑 Delete the product", Unique: "product_delete", Data: pair(shopID, productID)},
		{Text: "🔙 Back", Unique: "category", Data: pair(shopID, p.CategoryID)},
	}))
}

func (h *Handlers) confirmDeleteProduct(c tele.Context) error {
	shopID, productID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	return tghelpers.EditOrSendMD(c,
		"Delete this product and its remaining stock?",
		keyboard.InlineButtonsRows(
			[]keyboard.InlineBtn{
				{Text: "🗑 Yes, delete", Unique: "product_delete_yes", Data: pair(shopID, productID)},
				{Text: "🔙 Keep it", Unique: "product", Data: pair(shopID, productID)},
			},
		))
}

func (h *Handlers) deleteProduct(c tele.Context) error {
	shopID, productID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	p, err := h.catalog.Product(ctx, productID)
	if err != nil {
		return replyErr(c, err)
	}
	if err := h.catalog.DeleteProduct(ctx, shopID, productID); err != nil {
		return replyErr(c, err)
	}
	return tghelpers.EditOrSendMD(c, "🗑 Product deleted.",
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back", Unique: "category", Data: pair(shopID, p.CategoryID)},
		}))
}

func (h *Handlers) startAddUnit(c tele.Context) error {
	shopID, productID, err := callbacks.PayloadTwoInt64(c, "|")
	if err != nil {
		return h.showShops(c)
	}
	ctx := tghelpers.BuildContext(c)
	if err := h.admins.Authorize(ctx, shopID, c.Sender().ID, domain.CapManageProducts); err != nil {
		return replyErr(c, err)
	}
	h.sessions.SetStep(c.Sender().ID, stepUnitPayload{ShopID: shopID, ProductID: productID})
	return tghelpers.EditOrSendMD(c,
		"Send the unit content: the code, key or text a buyer receives.",
		keyboard.SingleCancelMarkup("wizard_cancel"))
}

func (h *Handlers) stepUnitPayload(c tele.Context, st state.Step) error {
	step, ok := st.(stepUnitPayload)
	if !ok {
		return h.showMenu(c)
	}
	ctx := tghelpers.BuildContext(c)
	if _, err := h.catalog.AddUnit(ctx, step.ShopID, step.ProductID, c.Text()); err != nil {
		return replyErr(c, err)
	}
	stock, _ := h.catalog.Stock(ctx, step.ProductID)

	// Stay in the step: sellers usually paste several codes in a row.
	h.sessions.SetStep(c.Sender().ID, step)
	return tghelpers.SendMD(c,
		fmt.Sprintf("✅ Added. In stock now: %d.\nSend another unit or go back.", stock),
		keyboard.InlineButtons([]keyboard.InlineBtn{
			{Text: "🔙 Back to the product", Unique: "product", Data: pair(step.ShopID, step.ProductID)},
		}))
}
