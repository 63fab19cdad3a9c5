package domain

import "time"

// User is anyone who ever talked to the operator bot.
type User struct {
	TelegramID int64     `db:"telegram_id"`
	FullName   string    `db:"full_name"`
	CreatedAt  time.Time `db:"created_at"`
}

// Shop is one managed tenant: an independent storefront bot bound to a
// Telegram bot token. The token is stored only in its encoded form, which
// doubles as the fleet registry key.
type Shop struct {
	ID          int64     `db:"id"`
	TokenDigest string    `db:"bot_token_digest"`
	OwnerID     int64     `db:"owner_tg_id"`
	Active      bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

// Administrator grants a Telegram user scoped capabilities inside one shop.
type Administrator struct {
	ID                int64  `db:"id"`
	ShopID            int64  `db:"shop_id"`
	TelegramID        int64  `db:"tg_user_id"`
	CanManageRoles    bool   `db:"can_manage_roles"`
	CanChatClients    bool   `db:"can_chat_clients"`
	CanManageProducts bool   `db:"can_manage_products"`
	FullName          string `db:"full_name"`
}

// Capability names a single administrator permission flag.
type Capability string

const (
	CapManageRoles    Capability = "manage_roles"
	CapChatClients    Capability = "chat_clients"
	CapManageProducts Capability = "manage_products"
)

// Category is a tree node inside one shop. A node is either a grouping node
// (has child categories) or a leaf (has products), never both.
type Category struct {
	ID       int64  `db:"id"`
	ShopID   int64  `db:"shop_id"`
	ParentID *int64 `db:"parent_id"`
	Name     string `db:"name"`
}

// IsSubcategory reports whether the node has a parent.
func (c Category) IsSubcategory() bool { return c.ParentID != nil }

// Product is a sellable item inside a leaf category. Price is in minor
// currency units.
type Product struct {
	ID         int64  `db:"id"`
	CategoryID int64  `db:"category_id"`
	Name       string `db:"name"`
	Price      int64  `db:"price"`
}

// InventoryUnit is one discrete sellable instance of a product, e.g. a
// single redeemable code. ReservedBy is a one-way transition: once set it is
// never reassigned.
type InventoryUnit struct {
	ID         int64  `db:"id"`
	ProductID  int64  `db:"product_id"`
	Payload    string `db:"payload"`
	ReservedBy *int64 `db:"reserved_by"`
}

// Purchase immutably records what a buyer received. The delivered payload
// is copied onto the record at buy time, so history outlives later catalog
// deletes; UnitID detaches (becomes nil) when the unit's product tree is
// removed.
type Purchase struct {
	ID        int64     `db:"id"`
	BuyerID   int64     `db:"buyer_tg_id"`
	UnitID    *int64    `db:"unit_id"`
	ShopID    int64     `db:"shop_id"`
	Payload   string    `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}

// BotIdentity is the chat-platform identity of a storefront bot.
type BotIdentity struct {
	DisplayName string
	Handle      string
}
