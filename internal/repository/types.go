// 文件路径: internal/repository/types.go
// 模块说明: 商城各聚合的持久化结构。金额统一使用 decimal，时间为 unix 秒。
package repository

import (
	"github.com/shopspring/decimal"
)

// Setting 是 settings 表中的一条键值配置。
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	Category  string `json:"category"`
	UpdatedAt int64  `json:"updated_at"`
}

// User 对应 users 表。
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	IsStaff      bool   `json:"is_staff"`
	IsActive     bool   `json:"is_active"`
	LastLoginAt  *int64 `json:"last_login_at"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// FullName returns "first last", falling back to the username.
func (u User) FullName() string {
	name := u.FirstName
	if u.LastName != "" {
		if name != "" {
			name += " "
		}
		name += u.LastName
	}
	if name == "" {
		return u.Username
	}
	return name
}

// Customer segments.
const (
	SegmentNew     = "NEW"
	SegmentRegular = "REGULAR"
	SegmentVIP     = "VIP"
	SegmentAdmin   = "ADMIN"
)

// UserProfile 保存客户扩展资料与分群信息。
type UserProfile struct {
	UserID          int64           `json:"user_id"`
	Phone           string          `json:"phone"`
	CountryCode     string          `json:"country_code"`
	MobileNumber    string          `json:"mobile_number"`
	IsBlocked       bool            `json:"is_blocked"`
	TotalSpent      decimal.Decimal `json:"total_spent"`
	CustomerSegment string          `json:"customer_segment"`
	LastActivity    *int64          `json:"last_activity"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
}

// Customer 是后台客户列表的一行。
type Customer struct {
	User
	Profile        UserProfile `json:"profile"`
	OrderCount     int64       `json:"order_count"`
	DeliveredCount int64       `json:"delivered_count"`
}

// RefreshToken 保存刷新令牌的哈希。
type RefreshToken struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	TokenHash string `json:"-"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	ExpiresAt int64  `json:"expires_at"`
	RevokedAt *int64 `json:"revoked_at"`
	CreatedAt int64  `json:"created_at"`
}

// Address types.
const (
	AddressHome   = "HOME"
	AddressOffice = "OFFICE"
	AddressOther  = "OTHER"
)

// Address 是用户保存的收货地址。
type Address struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	FullName  string `json:"full_name"`
	Mobile    string `json:"mobile"`
	Line1     string `json:"line1"`
	Line2     string `json:"line2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Pincode   string `json:"pincode"`
	Country   string `json:"country"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Product categories.
const (
	CategoryTopDeals    = "TOP_DEALS"
	CategoryTopSelling  = "TOP_SELLING"
	CategoryTopFeatured = "TOP_FEATURED"
	CategoryRecommended = "RECOMMENDED"
	CategoryMobiles     = "MOBILES"
	CategoryFoodHealth  = "FOOD_HEALTH"
	CategoryHomeKitchen = "HOME_KITCHEN"
	CategoryAutoAcc     = "AUTO_ACC"
	CategoryFurniture   = "FURNITURE"
	CategorySports      = "SPORTS"
	CategoryGenZTrends  = "GENZ_TRENDS"
	CategoryNextGen     = "NEXT_GEN"
)

// CategoryChoice 是分类代码与展示名称。
type CategoryChoice struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Categories 按展示顺序列出全部分类。
var Categories = []CategoryChoice{
	{CategoryTopDeals, "Top Deals"},
	{CategoryTopSelling, "Top Selling"},
	{CategoryTopFeatured, "Top Featured"},
	{CategoryRecommended, "Recommended"},
	{CategoryMobiles, "Mobiles & Tablets"},
	{CategoryFoodHealth, "Food & Health"},
	{CategoryHomeKitchen, "Home & Kitchen"},
	{CategoryAutoAcc, "Auto Accessories"},
	{CategoryFurniture, "Furniture"},
	{CategorySports, "Sports & Fitness"},
	{CategoryGenZTrends, "GenZ Trends"},
	{CategoryNextGen, "Next Gen"},
}

// ValidCategory reports whether code is a known category.
func ValidCategory(code string) bool {
	for _, c := range Categories {
		if c.Code == code {
			return true
		}
	}
	return false
}

// Product 对应 products 表。
type Product struct {
	ID              int64               `json:"id"`
	Name            string              `json:"name"`
	Slug            string              `json:"slug"`
	SKU             string              `json:"sku"`
	Description     string              `json:"description"`
	Price           decimal.Decimal     `json:"price"`
	OldPrice        decimal.NullDecimal `json:"old_price"`
	DiscountPercent int                 `json:"discount_percent"`
	Sold            int64               `json:"sold"`
	Stock           int64               `json:"stock"`
	Category        string              `json:"category"`
	Brand           string              `json:"brand"`
	Color           string              `json:"color"`
	Size            string              `json:"size"`
	Weight          string              `json:"weight"`
	Dimensions      string              `json:"dimensions"`
	ShippingInfo    string              `json:"shipping_info"`
	CareInfo        string              `json:"care_info"`
	Tags            []string            `json:"tags"`
	ImageURL        string              `json:"image_url"`
	IsTopDeal       bool                `json:"is_top_deal"`
	IsActive        bool                `json:"is_active"`
	Rating          float64             `json:"rating"`
	ReviewCount     int64               `json:"review_count"`
	CreatedAt       int64               `json:"created_at"`
	UpdatedAt       int64               `json:"updated_at"`
}

// ProgressPercent = sold / stock × 100, 0 when there is no stock.
func (p Product) ProgressPercent() float64 {
	if p.Stock <= 0 {
		return 0
	}
	return float64(p.Sold) / float64(p.Stock) * 100
}

// ProductImage 是商品的附加图片。
type ProductImage struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	Sort      int    `json:"sort"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
}

// DealCountdown 是首页限时活动倒计时。
type DealCountdown struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	EndTime   int64  `json:"end_time"`
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
}

// Main page sections.
const (
	SectionTopDeals1 = "TOP_DEALS_1"
	SectionTopDeals2 = "TOP_DEALS_2"
	SectionTopDeals3 = "TOP_DEALS_3"
	SectionTopDeals4 = "TOP_DEALS_4"
)

// MainPageSections 列出首页推荐位。
var MainPageSections = []string{SectionTopDeals1, SectionTopDeals2, SectionTopDeals3, SectionTopDeals4}

// MainPageProduct 是首页推荐位上的商品。
type MainPageProduct struct {
	ID        int64    `json:"id"`
	ProductID int64    `json:"product_id"`
	Section   string   `json:"section"`
	Sort      int      `json:"sort"`
	CreatedAt int64    `json:"created_at"`
	Product   *Product `json:"product,omitempty"`
}

// Slider 是首页轮播图。
type Slider struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Subtitle      string `json:"subtitle"`
	Description   string `json:"description"`
	ImageURL      string `json:"image_url"`
	TopButtonText string `json:"top_button_text"`
	TopButtonURL  string `json:"top_button_url"`
	Sort          int    `json:"order"`
	IsActive      bool   `json:"is_active"`
}

// Feature 是首页服务卖点（包邮、退换等）。
type Feature struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IconClass   string `json:"icon_class"`
	Sort        int    `json:"order"`
	IsActive    bool   `json:"is_active"`
}

// Banner types, pages and button styles.
const (
	BannerSmall  = "SMALL"
	BannerMedium = "MEDIUM"
	BannerLarge  = "LARGE"

	BannerPageHome = "HOME"
	BannerPageShop = "SHOP"
	BannerPageBoth = "BOTH"

	ButtonStyleHotDeals  = "st-btn"
	ButtonStyleShopDeals = "st-btn-3 b-radius"
	ButtonStyleNone      = "none"
)

// Banner 是首页或商品列表页的横幅。
type Banner struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	BadgeText       string `json:"badge_text"`
	ImageURL        string `json:"image_url"`
	LinkURL         string `json:"link_url"`
	ButtonText      string `json:"button_text"`
	ButtonStyle     string `json:"button_style"`
	BannerType      string `json:"banner_type"`
	PageType        string `json:"page_type"`
	BackgroundColor string `json:"background_color"`
	Sort            int    `json:"order"`
	IsActive        bool   `json:"is_active"`
}

// CategoryIcon 是“按分类选购”区域的图标，CategoryKey 对应商品分类。
type CategoryIcon struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	IconClass          string `json:"icon_class"`
	CategoryKey        string `json:"category_key"`
	BackgroundGradient string `json:"background_gradient"`
	IconColor          string `json:"icon_color"`
	Sort               int    `json:"order"`
	IsActive           bool   `json:"is_active"`
}

// CartItem 对应 cart_items 表，列表查询时附带商品。
type CartItem struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	ProductID int64    `json:"product_id"`
	Quantity  int64    `json:"quantity"`
	Size      string   `json:"size"`
	Color     string   `json:"color"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	Product   *Product `json:"product,omitempty"`
}

// WishlistItem 对应 wishlist_items 表。
type WishlistItem struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"user_id"`
	ProductID int64    `json:"product_id"`
	CreatedAt int64    `json:"created_at"`
	Product   *Product `json:"product,omitempty"`
}

// PriceAlert 是心愿单降价提醒。
type PriceAlert struct {
	ID            int64               `json:"id"`
	UserID        int64               `json:"user_id"`
	ProductID     int64               `json:"product_id"`
	OriginalPrice decimal.Decimal     `json:"original_price"`
	TargetPrice   decimal.NullDecimal `json:"target_price"`
	IsActive      bool                `json:"is_active"`
	Notified      bool                `json:"notified"`
	CreatedAt     int64               `json:"created_at"`
	UpdatedAt     int64               `json:"updated_at"`
}

// PriceAlertCandidate 是待检查的提醒及商品当前价格。
type PriceAlertCandidate struct {
	Alert        PriceAlert      `json:"alert"`
	ProductName  string          `json:"product_name"`
	ProductSlug  string          `json:"product_slug"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Email        string          `json:"email"`
}

// Order statuses.
const (
	OrderPending    = "PENDING"
	OrderProcessing = "PROCESSING"
	OrderPacked     = "PACKED"
	OrderShipped    = "SHIPPED"
	OrderDelivered  = "DELIVERED"
	OrderCancelled  = "CANCELLED"
)

// Payment statuses.
const (
	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

// Payment methods.
const (
	MethodCOD    = "COD"
	MethodOnline = "ONLINE"
	MethodUPI    = "UPI"
	MethodCard   = "CARD"
)

// Approval statuses.
const (
	ApprovalPending      = "PENDING_APPROVAL"
	ApprovalApproved     = "APPROVED"
	ApprovalRejected     = "REJECTED"
	ApprovalAutoApproved = "AUTO_APPROVED"
)

// Order 对应 orders 表。
type Order struct {
	ID               int64           `json:"id"`
	OrderNumber      string          `json:"order_number"`
	UserID           int64           `json:"user_id"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	ShippingCost     decimal.Decimal `json:"shipping_cost"`
	Discount         decimal.Decimal `json:"discount"`
	PointsRedeemed   int64           `json:"points_redeemed"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	OrderStatus      string          `json:"order_status"`
	PaymentStatus    string          `json:"payment_status"`
	PaymentMethod    string          `json:"payment_method"`
	ShippingAddress  string          `json:"shipping_address"`
	BillingAddress   string          `json:"billing_address"`
	CustomerNotes    string          `json:"customer_notes"`
	AdminNotes       string          `json:"admin_notes"`
	TrackingNumber   string          `json:"tracking_number"`
	CourierName      string          `json:"courier_name"`
	InvoiceNumber    string          `json:"invoice_number"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	PaymentID        string          `json:"payment_id"`
	PaymentSignature string          `json:"-"`
	IsResell         bool            `json:"is_resell"`
	ResellSourceID   *int64          `json:"resell_source_id"`
	ResellFromName   string          `json:"resell_from_name"`
	ResellFromPhone  string          `json:"resell_from_phone"`
	ApprovalStatus   string          `json:"approval_status"`
	ApprovalNotes    string          `json:"approval_notes"`
	ApprovedBy       *int64          `json:"approved_by"`
	ApprovedAt       *int64          `json:"approved_at"`
	IsSuspicious     bool            `json:"is_suspicious"`
	SuspiciousReason string          `json:"suspicious_reason"`
	RiskScore        int             `json:"risk_score"`
	OrderDate        int64           `json:"order_date"`
	DeliveryDate     *int64          `json:"delivery_date"`
	CreatedAt        int64           `json:"created_at"`
	UpdatedAt        int64           `json:"updated_at"`

	Items        []OrderItem `json:"items,omitempty"`
	CustomerName string      `json:"customer_name"`
	Email        string      `json:"email"`
}

// IsOnline reports whether the order is paid through the gateway.
func (o Order) IsOnline() bool {
	return o.PaymentMethod != MethodCOD
}

// OrderItem 是下单时的商品快照。
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    *int64          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	ProductPrice decimal.Decimal `json:"product_price"`
	ProductImage string          `json:"product_image"`
	Quantity     int64           `json:"quantity"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
	Subtotal     decimal.Decimal `json:"subtotal"`
}

// OrderStatusHistory 记录一次状态变化。
type OrderStatusHistory struct {
	ID        int64  `json:"id"`
	OrderID   int64  `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy *int64 `json:"changed_by"`
	Notes     string `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// CustomerOrderStats 汇总客户历史订单，用于风控评分。
type CustomerOrderStats struct {
	Delivered           int64 `json:"delivered"`
	CancelledOrRejected int64 `json:"cancelled_or_rejected"`
	RecentOrders        int64 `json:"recent_orders"`
}

// Points transaction types.
const (
	PointsEarned   = "EARNED"
	PointsRedeemed = "REDEEMED"
	PointsRefunded = "REFUNDED"
	PointsAdjusted = "ADJUSTED"
)

// LoyaltyAccount 是用户积分账户。
type LoyaltyAccount struct {
	UserID      int64 `json:"user_id"`
	TotalPoints int64 `json:"total_points"`
	PointsUsed  int64 `json:"points_used"`
	UpdatedAt   int64 `json:"updated_at"`
}

// PointsAvailable = total − used.
func (a LoyaltyAccount) PointsAvailable() int64 {
	return a.TotalPoints - a.PointsUsed
}

// PointsTransaction 是积分流水，Points 带符号。
type PointsTransaction struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Points      int64  `json:"points"`
	Type        string `json:"type"`
	Description string `json:"description"`
	OrderID     *int64 `json:"order_id"`
	CreatedAt   int64  `json:"created_at"`
}

// Review 是商品评价。
type Review struct {
	ID                 int64  `json:"id"`
	ProductID          int64  `json:"product_id"`
	UserID             *int64 `json:"user_id"`
	Rating             int    `json:"rating"`
	Name               string `json:"name"`
	Email              string `json:"email"`
	Comment            string `json:"comment"`
	IsApproved         bool   `json:"is_approved"`
	IsVerifiedPurchase bool   `json:"is_verified_purchase"`
	HelpfulCount       int64  `json:"helpful_count"`
	NotHelpfulCount    int64  `json:"not_helpful_count"`
	CreatedAt          int64  `json:"created_at"`
	UpdatedAt          int64  `json:"updated_at"`
	ProductName        string `json:"product_name"`

	Images []ReviewImage `json:"images"`
}

// ReviewImage 是评价附带的图片。
type ReviewImage struct {
	ID         int64  `json:"id"`
	ReviewID   int64  `json:"review_id"`
	URL        string `json:"url"`
	UploadedAt int64  `json:"uploaded_at"`
}

// HelpfulPercent = helpful / (helpful + not helpful) × 100, 0 without votes.
func (r Review) HelpfulPercent() int {
	total := r.HelpfulCount + r.NotHelpfulCount
	if total == 0 {
		return 0
	}
	return int(r.HelpfulCount * 100 / total)
}

// RatingSummary 是已审核评价的聚合。
type RatingSummary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}

// Question 是商品问答。
type Question struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	UserID      *int64 `json:"user_id"`
	Question    string `json:"question"`
	Answer      string `json:"answer"`
	AnsweredBy  *int64 `json:"answered_by"`
	IsAnswered  bool   `json:"is_answered"`
	IsApproved  bool   `json:"is_approved"`
	AnsweredAt  *int64 `json:"answered_at"`
	CreatedAt   int64  `json:"created_at"`
	AskedBy     string `json:"asked_by"`
	ProductName string `json:"product_name"`
}

// Return statuses.
const (
	ReturnRequested = "REQUESTED"
	ReturnApproved  = "APPROVED"
	ReturnRejected  = "REJECTED"
	ReturnPickedUp  = "PICKED_UP"
	ReturnRefunded  = "REFUNDED"
)

// Return reasons.
const (
	ReasonDefective      = "DEFECTIVE"
	ReasonWrongItem      = "WRONG_ITEM"
	ReasonSizeIssue      = "SIZE_ISSUE"
	ReasonNotAsDescribed = "NOT_AS_DESCRIBED"
	ReasonOther          = "OTHER"
)

// Refund methods.
const (
	RefundOriginal    = "ORIGINAL"
	RefundStoreCredit = "STORE_CREDIT"
	RefundBank        = "BANK"
)

// ReturnRequest 对应 return_requests 表。
type ReturnRequest struct {
	ID           int64               `json:"id"`
	ReturnNumber string              `json:"return_number"`
	OrderID      int64               `json:"order_id"`
	OrderItemID  int64               `json:"order_item_id"`
	UserID       int64               `json:"user_id"`
	Reason       string              `json:"reason"`
	Description  string              `json:"description"`
	Status       string              `json:"status"`
	AdminNotes   string              `json:"admin_notes"`
	PickupDate   *int64              `json:"pickup_date"`
	RefundAmount decimal.NullDecimal `json:"refund_amount"`
	RefundMethod string              `json:"refund_method"`
	RefundDate   *int64              `json:"refund_date"`
	CreatedAt    int64               `json:"created_at"`
	UpdatedAt    int64               `json:"updated_at"`
}

// Notification types.
const (
	NotifyOrderPlaced  = "ORDER_PLACED"
	NotifyOrderStatus  = "ORDER_STATUS"
	NotifyPriceDrop    = "PRICE_DROP"
	NotifyReturnUpdate = "RETURN_UPDATE"
	NotifyPointsEarned = "POINTS_EARNED"
	NotifyChatReply    = "CHAT_REPLY"
)

// Notification 是站内通知。
type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Link      string `json:"link"`
	IsRead    bool   `json:"is_read"`
	CreatedAt int64  `json:"created_at"`
}

// EmailLog 记录一次发信结果。
type EmailLog struct {
	ID               int64  `json:"id"`
	EmailTo          string `json:"email_to"`
	EmailType        string `json:"email_type"`
	Subject          string `json:"subject"`
	OrderID          *int64 `json:"order_id"`
	SentSuccessfully bool   `json:"sent_successfully"`
	ErrorMessage     string `json:"error_message"`
	SentAt           int64  `json:"sent_at"`
}

// AdminEmailSettings 是接收新订单提醒的后台邮箱（单行）。
type AdminEmailSettings struct {
	AdminEmail string `json:"admin_email"`
	IsActive   bool   `json:"is_active"`
	UpdatedAt  int64  `json:"updated_at"`
}

// Outbox statuses.
const (
	OutboxPending   = "PENDING"
	OutboxPublished = "PUBLISHED"
)

// OutboxMessage 是待投递的领域事件。
type OutboxMessage struct {
	ID            int64  `json:"id"`
	MessageID     string `json:"message_id"`
	Topic         string `json:"topic"`
	AggregateID   int64  `json:"aggregate_id"`
	Payload       []byte `json:"payload"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"last_error"`
	NextAttemptAt int64  `json:"next_attempt_at"`
	PublishedAt   *int64 `json:"published_at"`
	CreatedAt     int64  `json:"created_at"`
}

// DashboardTotals 是看板的总量指标。
type DashboardTotals struct {
	Revenue   decimal.Decimal `json:"revenue"`
	Orders    int64           `json:"orders"`
	Customers int64           `json:"customers"`
	Products  int64           `json:"products"`
}

// DailyRevenue 是某一天的营收。
type DailyRevenue struct {
	Day     string          `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
	Orders  int64           `json:"orders"`
}

// Chat thread statuses and sender types.
const (
	ChatOpen   = "OPEN"
	ChatClosed = "CLOSED"

	SenderUser  = "USER"
	SenderAdmin = "ADMIN"
)

// ChatThread 是客服会话。访客会话没有 UserID，凭 AccessKey 访问。
type ChatThread struct {
	ID            int64  `json:"id"`
	UserID        *int64 `json:"user_id"`
	GuestName     string `json:"guest_name"`
	GuestEmail    string `json:"guest_email"`
	AccessKey     string `json:"-"`
	Status        string `json:"status"`
	LastMessageAt *int64 `json:"last_message_at"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`

	Username string `json:"username,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Unread   int64  `json:"unread"`
}

// DisplayName 依次使用姓名、用户名、访客名。
func (t ChatThread) DisplayName() string {
	switch {
	case t.FullName != "":
		return t.FullName
	case t.Username != "":
		return t.Username
	case t.GuestName != "":
		return t.GuestName
	}
	return "Guest"
}

// ChatMessage 是会话中的一条消息。
type ChatMessage struct {
	ID          int64            `json:"id"`
	ThreadID    int64            `json:"thread_id"`
	SenderType  string           `json:"sender_type"`
	Message     string           `json:"message"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   int64            `json:"created_at"`
	Attachments []ChatAttachment `json:"attachments"`
}

// ChatAttachment 是消息附带的文件引用。
type ChatAttachment struct {
	ID           int64  `json:"id"`
	MessageID    int64  `json:"message_id"`
	URL          string `json:"url"`
	OriginalName string `json:"original_name"`
	ContentType  string `json:"content_type"`
	SizeBytes    int64  `json:"size_bytes"`
	CreatedAt    int64  `json:"created_at"`
}
