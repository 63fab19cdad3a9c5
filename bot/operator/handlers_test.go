package operator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/domain"
	adminssvc "github.com/m3rciful/shopbot/service/admins"
	catalogsvc "github.com/m3rciful/shopbot/service/catalog"
	shopssvc "github.com/m3rciful/shopbot/service/shops"
	suggestsvc "github.com/m3rciful/shopbot/service/suggest"
)

// botContext implements the tele.Context surface the handlers touch and
// records what they send back.
type botContext struct {
	tele.Context
	sender *tele.User
	text   string
	data   string
	store  map[string]interface{}
	sent   []string
}

func newBotContext(userID int64) *botContext {
	return &botContext{sender: &tele.User{ID: userID}, store: map[string]interface{}{}}
}

func (f *botContext) Sender() *tele.User { return f.sender }
func (f *botContext) Chat() *tele.Chat   { return nil }
func (f *botContext) Update() tele.Update {
	return tele.Update{}
}

func (f *botContext) Text() string { return f.text }

func (f *botContext) Callback() *tele.Callback {
	if f.data == "" {
		return nil
	}
	return &tele.Callback{Data: f.data}
}

func (f *botContext) Get(key string) interface{}      { return f.store[key] }
func (f *botContext) Set(key string, val interface{}) { f.store[key] = val }

func (f *botContext) Respond(_ ...*tele.CallbackResponse) error { return nil }

func (f *botContext) record(what interface{}) {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
}

func (f *botContext) Send(what interface{}, _ ...interface{}) error {
	f.record(what)
	return nil
}

func (f *botContext) EditOrSend(what interface{}, _ ...interface{}) error {
	f.record(what)
	return nil
}

func (f *botContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type memUsers struct{ users map[int64]domain.User }

func (s *memUsers) Upsert(_ context.Context, u domain.User) error {
	if s.users == nil {
		s.users = map[int64]domain.User{}
	}
	s.users[u.TelegramID] = u
	return nil
}

func (s *memUsers) GetUserByTelegramID(_ context.Context, tgID int64) (domain.User, error) {
	u, ok := s.users[tgID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

type memShops struct {
	shops  map[int64]domain.Shop
	nextID int64
}

func (s *memShops) Create(_ context.Context, digest string, ownerID int64) (domain.Shop, error) {
	s.nextID++
	shop := domain.Shop{ID: s.nextID, OwnerID: ownerID, TokenDigest: digest}
	s.shops[shop.ID] = shop
	return shop, nil
}

func (s *memShops) GetByID(_ context.Context, id int64) (domain.Shop, error) {
	shop, ok := s.shops[id]
	if !ok {
		return domain.Shop{}, domain.ErrNotFound
	}
	return shop, nil
}

func (s *memShops) ListByOwner(_ context.Context, ownerID int64) ([]domain.Shop, error) {
	var out []domain.Shop
	for _, shop := range s.shops {
		if shop.OwnerID == ownerID {
			out = append(out, shop)
		}
	}
	return out, nil
}

func (s *memShops) ListAdministered(_ context.Context, _ int64) ([]domain.Shop, error) {
	return nil, nil
}

func (s *memShops) Delete(_ context.Context, id int64) error {
	delete(s.shops, id)
	return nil
}

type plainCreds struct{}

func (plainCreds) Digest(token string) (string, error)  { return "d:" + token, nil }
func (plainCreds) Reveal(digest string) (string, error) { return digest[2:], nil }

type noopFleet struct{}

func (noopFleet) Start(_ context.Context, _ string) error        { return nil }
func (noopFleet) StopByDigest(_ context.Context, _ string) error { return nil }
func (noopFleet) IsRunningDigest(_ string) bool                  { return false }

func (noopFleet) Identity(_ context.Context, _ string) (domain.BotIdentity, error) {
	return domain.BotIdentity{}, domain.ErrNotRunning
}

type memCategories struct{ cats map[int64]domain.Category }

func (s *memCategories) Create(_ context.Context, shopID int64, parentID *int64, name string) (domain.Category, error) {
	id := int64(len(s.cats) + 1)
	cat := domain.Category{ID: id, ShopID: shopID, ParentID: parentID, Name: name}
	s.cats[id] = cat
	return cat, nil
}

func (s *memCategories) GetByID(_ context.Context, id int64) (domain.Category, error) {
	cat, ok := s.cats[id]
	if !ok {
		return domain.Category{}, domain.ErrNotFound
	}
	return cat, nil
}

func (s *memCategories) ListTopLevel(_ context.Context, shopID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, cat := range s.cats {
		if cat.ShopID == shopID && cat.ParentID == nil {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (s *memCategories) ListChildren(_ context.Context, parentID int64) ([]domain.Category, error) {
	var out []domain.Category
	for _, cat := range s.cats {
		if cat.ParentID != nil && *cat.ParentID == parentID {
			out = append(out, cat)
		}
	}
	return out, nil
}

func (s *memCategories) HasChildren(ctx context.Context, id int64) (bool, error) {
	children, _ := s.ListChildren(ctx, id)
	return len(children) > 0, nil
}

func (s *memCategories) Rename(_ context.Context, id int64, name string) error {
	cat, ok := s.cats[id]
	if !ok {
		return domain.ErrNotFound
	}
	cat.Name = name
	s.cats[id] = cat
	return nil
}

func (s *memCategories) Delete(_ context.Context, id int64) error {
	delete(s.cats, id)
	return nil
}

type memProducts struct{}

func (memProducts) Create(_ context.Context, categoryID int64, name string, price int64) (domain.Product, error) {
	return domain.Product{CategoryID: categoryID, Name: name, Price: price}, nil
}

func (memProducts) GetByID(_ context.Context, _ int64) (domain.Product, error) {
	return domain.Product{}, domain.ErrNotFound
}

func (memProducts) ListByCategory(_ context.Context, _ int64) ([]domain.Product, error) {
	return nil, nil
}

func (memProducts) CountByCategory(_ context.Context, _ int64) (int, error) { return 0, nil }

func (memProducts) Delete(_ context.Context, _ int64) error { return domain.ErrNotFound }

func (memProducts) ShopID(_ context.Context, _ int64) (int64, error) {
	return 0, domain.ErrNotFound
}

type memUnits struct{}

func (memUnits) Add(_ context.Context, productID int64, payload string) (domain.InventoryUnit, error) {
	return domain.InventoryUnit{ProductID: productID, Payload: payload}, nil
}

func (memUnits) CountFree(_ context.Context, _ int64) (int, error) { return 0, nil }

type memGrants struct {
	grants map[int64]domain.Administrator
	nextID int64
}

func (s *memGrants) Create(_ context.Context, a domain.Administrator) (domain.Administrator, error) {
	s.nextID++
	a.ID = s.nextID
	s.grants[a.ID] = a
	return a, nil
}

func (s *memGrants) GetByID(_ context.Context, id int64) (domain.Administrator, error) {
	g, ok := s.grants[id]
	if !ok {
		return domain.Administrator{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *memGrants) Get(_ context.Context, shopID, tgID int64) (domain.Administrator, error) {
	for _, g := range s.grants {
		if g.ShopID == shopID && g.TelegramID == tgID {
			return g, nil
		}
	}
	return domain.Administrator{}, domain.ErrNotFound
}

func (s *memGrants) ListByShop(_ context.Context, shopID int64) ([]domain.Administrator, error) {
	var out []domain.Administrator
	for _, g := range s.grants {
		if g.ShopID == shopID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *memGrants) SetCapabilities(_ context.Context, id int64, roles, chat, products bool) error {
	g, ok := s.grants[id]
	if !ok {
		return domain.ErrNotFound
	}
	g.CanManageRoles, g.CanChatClients, g.CanManageProducts = roles, chat, products
	s.grants[id] = g
	return nil
}

func (s *memGrants) Delete(_ context.Context, id int64) error {
	delete(s.grants, id)
	return nil
}

type fixture struct {
	handlers *Handlers
	sessions state.Manager
	shops    *memShops
	cats     *memCategories
	grants   *memGrants
}

func newFixture() *fixture {
	sessions := state.NewMemoryManager()
	shopStore := &memShops{shops: map[int64]domain.Shop{}}
	cats := &memCategories{cats: map[int64]domain.Category{}}
	grants := &memGrants{grants: map[int64]domain.Administrator{}}

	shops := shopssvc.New(shopStore, plainCreds{}, noopFleet{})
	catalog := catalogsvc.New(cats, memProducts{}, memUnits{})
	admins := adminssvc.New(grants, shopStore)
	suggest := suggestsvc.New(suggestsvc.Config{APIKey: "k"}, nil)

	return &fixture{
		handlers: New(sessions, &memUsers{}, shops, catalog, admins, suggest, nil),
		sessions: sessions,
		shops:    shopStore,
		cats:     cats,
		grants:   grants,
	}
}

func TestStartToleratesMissingSender(t *testing.T) {
	f := newFixture()

	// Channel posts and some service updates carry no sender.
	c := newBotContext(0)
	c.sender = nil

	assert.NoError(t, f.handlers.handleStart(c))
	assert.NotEmpty(t, c.sent)
}

func TestTokenWizardStaysOpenOnBadToken(t *testing.T) {
	f := newFixture()
	c := newBotContext(10)
	c.text = "definitely-not-a-token"

	require.NoError(t, f.handlers.stepToken(c, stepTokenInput{}))

	// A typo re-arms the same step instead of dumping the user to the menu.
	st, ok := f.sessions.Step(10)
	require.True(t, ok)
	_, ok = st.(stepTokenInput)
	assert.True(t, ok)
	assert.Contains(t, c.lastSent(), "doesn't look like a bot token")
}

func TestSuggestSubcategoryRejectsForeignParent(t *testing.T) {
	f := newFixture()
	f.shops.shops[1] = domain.Shop{ID: 1, OwnerID: 10}
	f.shops.shops[2] = domain.Shop{ID: 2, OwnerID: 20}
	f.cats.cats[99] = domain.Category{ID: 99, ShopID: 2, Name: "Gift cards"}

	// Owner of shop 1 crafts a payload naming another tenant's category.
	c := newBotContext(10)
	c.data = "suggest_subcat|1|99"

	require.NoError(t, f.handlers.suggestSubcategory(c))
	assert.Contains(t, c.lastSent(), "Not found")
	assert.NotContains(t, c.lastSent(), "Gift cards")
}

func TestShowAdminHidesForeignGrants(t *testing.T) {
	f := newFixture()
	f.shops.shops[1] = domain.Shop{ID: 1, OwnerID: 10}
	f.shops.shops[2] = domain.Shop{ID: 2, OwnerID: 20}
	grant, err := f.grants.Create(context.Background(), domain.Administrator{
		ShopID: 2, TelegramID: 30, FullName: "Rival Staffer",
	})
	require.NoError(t, err)

	// Owner of shop 1 guesses the grant id and pairs it with their own shop id.
	c := newBotContext(10)
	c.data = "admin|1|" + i64(grant.ID)

	require.NoError(t, f.handlers.showAdmin(c))
	assert.Contains(t, c.lastSent(), "permission")
	assert.NotContains(t, c.lastSent(), "Rival Staffer")
}
