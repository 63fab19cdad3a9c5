package operator

import "github.com/m3rciful/shopbot/core/telegram/state"

// Step kinds routed through the wizard manager. Each kind has exactly one
// registered handler; the step value carries the ids the handler needs.
const (
	kindTokenInput     = "shop.token"
	kindCategoryName   = "category.name"
	kindCategoryRename = "category.rename"
	kindSubcatName     = "subcategory.name"
	kindProductName    = "product.name"
	kindProductPrice   = "product.price"
	kindUnitPayload    = "unit.payload"
	kindAdminID        = "admin.id"
)

type stepTokenInput struct{}

func (stepTokenInput) Kind() string { return kindTokenInput }

type stepCategoryName struct {
	ShopID int64
}

func (stepCategoryName) Kind() string { return kindCategoryName }

type stepCategoryRename struct {
	ShopID     int64
	CategoryID int64
}

func (stepCategoryRename) Kind() string { return kindCategoryRename }

type stepSubcategoryName struct {
	ShopID   int64
	ParentID int64
}

func (stepSubcategoryName) Kind() string { return kindSubcatName }

type stepProductName struct {
	ShopID     int64
	CategoryID int64
}

func (stepProductName) Kind() string { return kindProductName }

type stepProductPrice struct {
	ShopID     int64
	CategoryID int64
	Name       string
}

func (stepProductPrice) Kind() string { return kindProductPrice }

type stepUnitPayload struct {
	ShopID    int64
	ProductID int64
}

func (stepUnitPayload) Kind() string { return kindUnitPayload }

type stepAdminID struct {
	ShopID int64
}

func (stepAdminID) Kind() string { return kindAdminID }

var _ = []state.Step{
	stepTokenInput{},
	stepCategoryName{},
	stepCategoryRename{},
	stepSubcategoryName{},
	stepProductName{},
	stepProductPrice{},
	stepUnitPayload{},
	stepAdminID{},
}
