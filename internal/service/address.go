package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// AddressService 维护收货地址。默认地址每个用户最多一个。
type AddressService interface {
	List(ctx context.Context, userID int64) ([]repository.Address, error)
	Create(ctx context.Context, userID int64, input AddressInput) (*repository.Address, error)
	Update(ctx context.Context, userID, id int64, input AddressInput) (*repository.Address, error)
	Delete(ctx context.Context, userID, id int64) error
	SetDefault(ctx context.Context, userID, id int64) error
}

// AddressInput 是地址表单。
type AddressInput struct {
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
}

type addressService struct {
	store repository.Store
	now   func() time.Time
}

// NewAddressService 组装地址服务。
func NewAddressService(store repository.Store) AddressService {
	return &addressService{store: store, now: time.Now}
}

func (s *addressService) List(ctx context.Context, userID int64) ([]repository.Address, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("address service not configured / 地址服务未配置")
	}
	list, err := s.store.Addresses().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []repository.Address{}
	}
	return list, nil
}

// Create 保存新地址；用户的第一个地址自动成为默认地址。
func (s *addressService) Create(ctx context.Context, userID int64, input AddressInput) (*repository.Address, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("address service not configured / 地址服务未配置")
	}
	addr, err := buildAddress(input)
	if err != nil {
		return nil, err
	}
	now := s.now().Unix()
	addr.UserID = userID
	addr.CreatedAt = now
	addr.UpdatedAt = now

	var created *repository.Address
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		count, err := tx.Addresses().CountByUser(ctx, userID)
		if err != nil {
			return err
		}
		if count == 0 {
			addr.IsDefault = true
		}
		created, err = tx.Addresses().Create(ctx, addr)
		if err != nil {
			return err
		}
		if created.IsDefault {
			return tx.Addresses().ClearDefault(ctx, userID, created.ID)
		}
		return nil
	})
	return created, err
}

func (s *addressService) Update(ctx context.Context, userID, id int64, input AddressInput) (*repository.Address, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("address service not configured / 地址服务未配置")
	}
	next, err := buildAddress(input)
	if err != nil {
		return nil, err
	}
	var updated *repository.Address
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := ownedAddress(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		next.ID = current.ID
		next.UserID = userID
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = s.now().Unix()
		// 唯一的默认地址不能直接取消
		if current.IsDefault && !next.IsDefault {
			next.IsDefault = true
		}
		if err := tx.Addresses().Update(ctx, next); err != nil {
			return mapNotFound(err)
		}
		if next.IsDefault {
			if err := tx.Addresses().ClearDefault(ctx, userID, next.ID); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	return updated, err
}

// Delete 删除地址；删掉默认地址时把最近的一条设为默认。
func (s *addressService) Delete(ctx context.Context, userID, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("address service not configured / 地址服务未配置")
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := ownedAddress(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if err := tx.Addresses().Delete(ctx, current.ID); err != nil {
			return mapNotFound(err)
		}
		if !current.IsDefault {
			return nil
		}
		rest, err := tx.Addresses().ListByUser(ctx, userID)
		if err != nil || len(rest) == 0 {
			return err
		}
		promoted := rest[0]
		promoted.IsDefault = true
		promoted.UpdatedAt = s.now().Unix()
		return tx.Addresses().Update(ctx, &promoted)
	})
}

func (s *addressService) SetDefault(ctx context.Context, userID, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("address service not configured / 地址服务未配置")
	}
	return s.store.InTx(ctx, func(tx repository.Store) error {
		current, err := ownedAddress(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		current.IsDefault = true
		current.UpdatedAt = s.now().Unix()
		if err := tx.Addresses().Update(ctx, current); err != nil {
			return mapNotFound(err)
		}
		return tx.Addresses().ClearDefault(ctx, userID, current.ID)
	})
}

func ownedAddress(ctx context.Context, store repository.Store, userID, id int64) (*repository.Address, error) {
	addr, err := store.Addresses().FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if addr.UserID != userID {
		return nil, ErrNotFound
	}
	return addr, nil
}

func buildAddress(input AddressInput) (*repository.Address, error) {
	addr := &repository.Address{
		FullName:  strings.TrimSpace(input.FullName),
		Mobile:    strings.TrimSpace(input.Mobile),
		Line1:     strings.TrimSpace(input.Line1),
		Line2:     strings.TrimSpace(input.Line2),
		City:      strings.TrimSpace(input.City),
		State:     strings.TrimSpace(input.State),
		Pincode:   strings.TrimSpace(input.Pincode),
		Country:   strings.TrimSpace(input.Country),
		Type:      strings.ToUpper(strings.TrimSpace(input.Type)),
		IsDefault: input.IsDefault,
	}
	if addr.FullName == "" || addr.Mobile == "" || addr.Line1 == "" || addr.City == "" || addr.State == "" || addr.Pincode == "" {
		return nil, fmt.Errorf("%w: incomplete address / 地址信息不完整", ErrValidation)
	}
	if addr.Country == "" {
		addr.Country = "India"
	}
	switch addr.Type {
	case "":
		addr.Type = repository.AddressHome
	case repository.AddressHome, repository.AddressOffice, repository.AddressOther:
	default:
		return nil, fmt.Errorf("%w: unknown address type / 地址类型无效", ErrValidation)
	}
	return addr, nil
}

// FormatAddress 把地址格式化为订单上保存的多行文本。
func FormatAddress(a repository.Address) string {
	lines := []string{a.FullName, a.Line1}
	if a.Line2 != "" {
		lines = append(lines, a.Line2)
	}
	lines = append(lines, fmt.Sprintf("%s, %s - %s", a.City, a.State, a.Pincode), a.Country, "Phone: "+a.Mobile)
	return strings.Join(lines, "\n")
}
