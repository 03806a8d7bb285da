// 文件路径: internal/repository/interfaces.go
// 模块说明: 仓储接口。Store.InTx 在同一事务内提供全部仓储。
package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store 暴露每个聚合根对应的仓储接口。
type Store interface {
	Settings() SettingRepository
	Users() UserRepository
	Profiles() ProfileRepository
	RefreshTokens() RefreshTokenRepository
	Addresses() AddressRepository
	Products() ProductRepository
	ProductImages() ProductImageRepository
	Home() HomeRepository
	Content() ContentRepository
	Carts() CartRepository
	Wishlists() WishlistRepository
	PriceAlerts() PriceAlertRepository
	Orders() OrderRepository
	Sequences() SequenceRepository
	Loyalty() LoyaltyRepository
	Reviews() ReviewRepository
	Questions() QuestionRepository
	Returns() ReturnRepository
	Notifications() NotificationRepository
	EmailLogs() EmailLogRepository
	AdminEmail() AdminEmailRepository
	Outbox() OutboxRepository
	Reports() ReportRepository
	Chats() ChatRepository

	// InTx runs fn inside one transaction; fn must only use the Store it receives.
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// SettingRepository 读写 settings 表。
type SettingRepository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	Upsert(ctx context.Context, setting *Setting) error
	List(ctx context.Context) ([]Setting, error)
}

// UserRepository 定义用户相关数据访问方法。
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLogin(ctx context.Context, id int64, at int64) error
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]Customer, int64, error)
	Count(ctx context.Context) (int64, error)
}

// ProfileRepository 维护 user_profiles。
type ProfileRepository interface {
	Create(ctx context.Context, profile *UserProfile) error
	FindByUserID(ctx context.Context, userID int64) (*UserProfile, error)
	Update(ctx context.Context, profile *UserProfile) error
	SetBlocked(ctx context.Context, userID int64, blocked bool) error
	AddTotalSpent(ctx context.Context, userID int64, amount decimal.Decimal) error
	TouchActivity(ctx context.Context, userID int64, at int64) error
	MarkStaffAsAdmin(ctx context.Context) (int64, error)
	RefreshSegments(ctx context.Context, vipSpent decimal.Decimal, vipDelivered int64) (int64, error)
}

// RefreshTokenRepository 保存刷新令牌。
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	Revoke(ctx context.Context, hash string, at int64) error
	RevokeAllForUser(ctx context.Context, userID int64, at int64) error
	DeleteExpired(ctx context.Context, before int64) (int64, error)
}

// AddressRepository 维护收货地址。
type AddressRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]Address, error)
	FindByID(ctx context.Context, id int64) (*Address, error)
	Create(ctx context.Context, addr *Address) (*Address, error)
	Update(ctx context.Context, addr *Address) error
	Delete(ctx context.Context, id int64) error
	ClearDefault(ctx context.Context, userID int64, exceptID int64) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
}

// ProductRepository 维护商品目录。
type ProductRepository interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*Product, error)
	FindBySlug(ctx context.Context, slug string) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	SlugExists(ctx context.Context, slug string, excludeID int64) (bool, error)
	Search(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	TopByDiscount(ctx context.Context, limit int) ([]Product, error)
	TopSelling(ctx context.Context, limit int) ([]Product, error)
	TopDeals(ctx context.Context, limit int) ([]Product, error)
	LowStock(ctx context.Context, threshold int64, limit int) ([]Product, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
	Count(ctx context.Context) (int64, error)
	// DecrementStock fails with ErrInsufficientStock when stock < qty.
	DecrementStock(ctx context.Context, id int64, qty int64) error
	RestoreStock(ctx context.Context, id int64, qty int64) error
	UpdateRating(ctx context.Context, id int64, rating float64, count int64) error
}

// ProductImageRepository 维护商品图片。
type ProductImageRepository interface {
	ListByProduct(ctx context.Context, productID int64) ([]ProductImage, error)
	Replace(ctx context.Context, productID int64, images []ProductImage) error
}

// HomeRepository 维护首页推荐位与倒计时。
type HomeRepository interface {
	ActiveCountdown(ctx context.Context, now int64) (*DealCountdown, error)
	SaveCountdown(ctx context.Context, c *DealCountdown) (*DealCountdown, error)
	ListMainPage(ctx context.Context) ([]MainPageProduct, error)
	SetSection(ctx context.Context, section string, productIDs []int64) error
}

// ContentRepository 维护首页轮播、卖点、横幅与分类图标。
type ContentRepository interface {
	ListSliders(ctx context.Context, activeOnly bool) ([]Slider, error)
	FindSlider(ctx context.Context, id int64) (*Slider, error)
	SaveSlider(ctx context.Context, s *Slider) (*Slider, error)
	DeleteSlider(ctx context.Context, id int64) error

	ListFeatures(ctx context.Context, activeOnly bool) ([]Feature, error)
	FindFeature(ctx context.Context, id int64) (*Feature, error)
	SaveFeature(ctx context.Context, f *Feature) (*Feature, error)
	DeleteFeature(ctx context.Context, id int64) error

	ListBanners(ctx context.Context, filter BannerFilter) ([]Banner, error)
	FindBanner(ctx context.Context, id int64) (*Banner, error)
	SaveBanner(ctx context.Context, b *Banner) (*Banner, error)
	DeleteBanner(ctx context.Context, id int64) error

	ListCategoryIcons(ctx context.Context, activeOnly bool) ([]CategoryIcon, error)
	FindCategoryIcon(ctx context.Context, id int64) (*CategoryIcon, error)
	SaveCategoryIcon(ctx context.Context, c *CategoryIcon) (*CategoryIcon, error)
	DeleteCategoryIcon(ctx context.Context, id int64) error
}

// CartRepository 维护购物车。
type CartRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]CartItem, error)
	FindByID(ctx context.Context, id int64) (*CartItem, error)
	FindByUserProduct(ctx context.Context, userID, productID int64) (*CartItem, error)
	// AddQuantity creates the line or increments an existing one.
	AddQuantity(ctx context.Context, item *CartItem) (*CartItem, error)
	SetQuantity(ctx context.Context, id int64, qty int64) error
	Delete(ctx context.Context, id int64) error
	ClearUser(ctx context.Context, userID int64) error
}

// WishlistRepository 维护心愿单。
type WishlistRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]WishlistItem, error)
	FindByID(ctx context.Context, id int64) (*WishlistItem, error)
	// Add reports created=false when the product is already present.
	Add(ctx context.Context, userID, productID int64) (*WishlistItem, bool, error)
	Delete(ctx context.Context, id int64) error
	DeleteByUserProduct(ctx context.Context, userID, productID int64) error
	Exists(ctx context.Context, userID, productID int64) (bool, error)
}

// PriceAlertRepository 维护降价提醒。
type PriceAlertRepository interface {
	Upsert(ctx context.Context, alert *PriceAlert) (*PriceAlert, error)
	FindByUserProduct(ctx context.Context, userID, productID int64) (*PriceAlert, error)
	ListTriggered(ctx context.Context, afterID int64, limit int) ([]PriceAlertCandidate, error)
	MarkNotified(ctx context.Context, id int64, at int64) error
}

// OrderRepository 维护订单、明细与状态历史。
type OrderRepository interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	AddItems(ctx context.Context, orderID int64, items []OrderItem) ([]OrderItem, error)
	FindByID(ctx context.Context, id int64) (*Order, error)
	FindByNumber(ctx context.Context, number string) (*Order, error)
	FindByGatewayOrderID(ctx context.Context, ref string) (*Order, error)
	ListItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	FindItem(ctx context.Context, itemID int64) (*OrderItem, error)
	List(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	Update(ctx context.Context, order *Order) error
	AddHistory(ctx context.Context, h *OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID int64) ([]OrderStatusHistory, error)
	CustomerStats(ctx context.Context, userID int64, since int64) (CustomerOrderStats, error)
	HasDeliveredProduct(ctx context.Context, userID, productID int64) (bool, error)
	ReconcileDeliveredPayments(ctx context.Context, at int64) (int64, error)
}

// SequenceRepository 生成按天递增的编号。
type SequenceRepository interface {
	Next(ctx context.Context, scope, day string) (int64, error)
}

// LoyaltyRepository 维护积分账户与流水。
type LoyaltyRepository interface {
	FindAccount(ctx context.Context, userID int64) (*LoyaltyAccount, error)
	// Apply adds the deltas to the account, creating it when missing.
	Apply(ctx context.Context, userID int64, totalDelta, usedDelta int64, at int64) (*LoyaltyAccount, error)
	AddTransaction(ctx context.Context, tx *PointsTransaction) error
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]PointsTransaction, int64, error)
	RedeemedForOrder(ctx context.Context, orderID int64) (int64, error)
}

// ReviewRepository 维护商品评价与投票。
type ReviewRepository interface {
	Create(ctx context.Context, r *Review) (*Review, error)
	FindByID(ctx context.Context, id int64) (*Review, error)
	List(ctx context.Context, filter ReviewFilter) ([]Review, int64, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
	UpsertVote(ctx context.Context, reviewID, userID int64, helpful bool, at int64) error
	RecountVotes(ctx context.Context, reviewID int64) error
	Summary(ctx context.Context, productID int64) (RatingSummary, error)
	AddImages(ctx context.Context, reviewID int64, urls []string, at int64) ([]ReviewImage, error)
	DeleteImage(ctx context.Context, reviewID, imageID int64) error
}

// QuestionRepository 维护商品问答。
type QuestionRepository interface {
	Create(ctx context.Context, q *Question) (*Question, error)
	FindByID(ctx context.Context, id int64) (*Question, error)
	List(ctx context.Context, filter QuestionFilter) ([]Question, int64, error)
	Answer(ctx context.Context, id int64, answer string, by int64, at int64) error
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
}

// ReturnRepository 维护退货申请。
type ReturnRepository interface {
	Create(ctx context.Context, r *ReturnRequest) (*ReturnRequest, error)
	FindByID(ctx context.Context, id int64) (*ReturnRequest, error)
	List(ctx context.Context, filter ReturnFilter) ([]ReturnRequest, int64, error)
	Update(ctx context.Context, r *ReturnRequest) error
	HasOpenForItem(ctx context.Context, itemID int64) (bool, error)
	CountRefundedItems(ctx context.Context, orderID int64) (int64, error)
}

// NotificationRepository 维护站内通知。
type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id int64) error
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	UnreadCount(ctx context.Context, userID int64) (int64, error)
}

// EmailLogRepository 记录发信结果。
type EmailLogRepository interface {
	Create(ctx context.Context, log *EmailLog) error
	List(ctx context.Context, limit, offset int) ([]EmailLog, int64, error)
}

// AdminEmailRepository 读写后台提醒邮箱。
type AdminEmailRepository interface {
	Get(ctx context.Context) (*AdminEmailSettings, error)
	Save(ctx context.Context, s *AdminEmailSettings) error
}

// OutboxRepository 维护待投递事件。
type OutboxRepository interface {
	Insert(ctx context.Context, msg *OutboxMessage) error
	ListDue(ctx context.Context, now int64, limit int) ([]OutboxMessage, error)
	MarkPublished(ctx context.Context, id int64, at int64) error
	MarkFailed(ctx context.Context, id int64, attempts int, nextAttemptAt int64, lastErr string) error
	CountPending(ctx context.Context) (int64, error)
}

// ReportRepository 提供看板聚合查询。
type ReportRepository interface {
	Totals(ctx context.Context) (DashboardTotals, error)
	CountByStatus(ctx context.Context) (map[string]int64, error)
	CountByApproval(ctx context.Context) (map[string]int64, error)
	CountSuspicious(ctx context.Context) (int64, error)
	RevenueBetween(ctx context.Context, from, to int64) (decimal.Decimal, error)
	DailyRevenue(ctx context.Context, from, to int64) ([]DailyRevenue, error)
}

// ChatRepository 维护客服会话与消息。
type ChatRepository interface {
	CreateThread(ctx context.Context, t *ChatThread) (*ChatThread, error)
	FindThread(ctx context.Context, id int64) (*ChatThread, error)
	FindThreadByKey(ctx context.Context, key string) (*ChatThread, error)
	FindOpenThreadForUser(ctx context.Context, userID int64) (*ChatThread, error)
	ListThreads(ctx context.Context, filter ChatThreadFilter) ([]ChatThread, int64, error)
	SetStatus(ctx context.Context, id int64, status string, at int64) error
	AddMessage(ctx context.Context, m *ChatMessage) (*ChatMessage, error)
	ListMessages(ctx context.Context, threadID, afterID int64, limit int) ([]ChatMessage, error)
	// MarkRead 把会话中 sender 发出的未读消息标记为已读，返回条数。
	MarkRead(ctx context.Context, threadID int64, sender string) (int64, error)
}
