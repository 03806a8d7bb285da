// 文件路径: internal/repository/sqlite/store.go
// 模块说明: SQLite 仓储集合。普通调用走 *sql.DB，InTx 内走同一个 *sql.Tx。
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// dbtx 是 *sql.DB 与 *sql.Tx 的公共子集。
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wires SQLite-backed repository implementations.
type Store struct {
	db   *sql.DB
	inTx bool

	settings      repository.SettingRepository
	users         repository.UserRepository
	profiles      repository.ProfileRepository
	refreshTokens repository.RefreshTokenRepository
	addresses     repository.AddressRepository
	products      repository.ProductRepository
	productImages repository.ProductImageRepository
	home          repository.HomeRepository
	content       repository.ContentRepository
	carts         repository.CartRepository
	wishlists     repository.WishlistRepository
	priceAlerts   repository.PriceAlertRepository
	orders        repository.OrderRepository
	sequences     repository.SequenceRepository
	loyalty       repository.LoyaltyRepository
	reviews       repository.ReviewRepository
	questions     repository.QuestionRepository
	returns       repository.ReturnRepository
	notifications repository.NotificationRepository
	emailLogs     repository.EmailLogRepository
	adminEmail    repository.AdminEmailRepository
	outbox        repository.OutboxRepository
	reports       repository.ReportRepository
	chats         repository.ChatRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore constructs a SQLite-backed repository store.
func NewStore(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(q dbtx) *Store {
	return &Store{
		settings:      &settingRepo{db: q},
		users:         &userRepo{db: q},
		profiles:      &profileRepo{db: q},
		refreshTokens: &refreshTokenRepo{db: q},
		addresses:     &addressRepo{db: q},
		products:      &productRepo{db: q},
		productImages: &productImageRepo{db: q},
		home:          &homeRepo{db: q},
		content:       &contentRepo{db: q},
		carts:         &cartRepo{db: q},
		wishlists:     &wishlistRepo{db: q},
		priceAlerts:   &priceAlertRepo{db: q},
		orders:        &orderRepo{db: q},
		sequences:     &sequenceRepo{db: q},
		loyalty:       &loyaltyRepo{db: q},
		reviews:       &reviewRepo{db: q},
		questions:     &questionRepo{db: q},
		returns:       &returnRepo{db: q},
		notifications: &notificationRepo{db: q},
		emailLogs:     &emailLogRepo{db: q},
		adminEmail:    &adminEmailRepo{db: q},
		outbox:        &outboxRepo{db: q},
		reports:       &reportRepo{db: q},
		chats:         &chatRepo{db: q},
	}
}

// DB exposes the underlying handle for maintenance commands (backup, migrations).
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx runs fn with a Store bound to a single transaction. Nested calls reuse the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.db == nil {
		return fmt.Errorf("sqlite store not configured / 数据库未配置")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	bound := bind(tx)
	bound.inTx = true
	if err := fn(bound); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) Settings() repository.SettingRepository           { return s.settings }
func (s *Store) Users() repository.UserRepository                 { return s.users }
func (s *Store) Profiles() repository.ProfileRepository           { return s.profiles }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return s.refreshTokens }
func (s *Store) Addresses() repository.AddressRepository          { return s.addresses }
func (s *Store) Products() repository.ProductRepository           { return s.products }
func (s *Store) ProductImages() repository.ProductImageRepository { return s.productImages }
func (s *Store) Home() repository.HomeRepository                  { return s.home }
func (s *Store) Content() repository.ContentRepository            { return s.content }
func (s *Store) Carts() repository.CartRepository                 { return s.carts }
func (s *Store) Wishlists() repository.WishlistRepository         { return s.wishlists }
func (s *Store) PriceAlerts() repository.PriceAlertRepository     { return s.priceAlerts }
func (s *Store) Orders() repository.OrderRepository               { return s.orders }
func (s *Store) Sequences() repository.SequenceRepository         { return s.sequences }
func (s *Store) Loyalty() repository.LoyaltyRepository            { return s.loyalty }
func (s *Store) Reviews() repository.ReviewRepository             { return s.reviews }
func (s *Store) Questions() repository.QuestionRepository         { return s.questions }
func (s *Store) Returns() repository.ReturnRepository             { return s.returns }
func (s *Store) Notifications() repository.NotificationRepository { return s.notifications }
func (s *Store) EmailLogs() repository.EmailLogRepository         { return s.emailLogs }
func (s *Store) AdminEmail() repository.AdminEmailRepository      { return s.adminEmail }
func (s *Store) Outbox() repository.OutboxRepository              { return s.outbox }
func (s *Store) Reports() repository.ReportRepository             { return s.reports }
func (s *Store) Chats() repository.ChatRepository                 { return s.chats }
