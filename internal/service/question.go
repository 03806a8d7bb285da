package service

import (
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/vibemall/internal/repository"
)

// QuestionService 管理商品问答。
type QuestionService interface {
	Ask(ctx context.Context, userID, productID int64, text string) (*repository.Question, error)
	Answer(ctx context.Context, actorID, id int64, answer string) (*repository.Question, error)
	SetApproved(ctx context.Context, id int64, approved bool) error
	Delete(ctx context.Context, id int64) error
	ListForProduct(ctx context.Context, productID int64, page int) ([]repository.Question, Page, error)
	ListAdmin(ctx context.Context, answered *bool, page int) ([]repository.Question, Page, error)
}

type questionService struct {
	store repository.Store
	now   func() time.Time
}

// NewQuestionService 组装问答服务。
func NewQuestionService(store repository.Store) QuestionService {
	return &questionService{store: store, now: time.Now}
}

func (s *questionService) Ask(ctx context.Context, userID, productID int64, text string) (*repository.Question, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("question service not configured / 问答服务未配置")
	}
	text = sanitizeText(text)
	if text == "" {
		return nil, fmt.Errorf("%w: question is required / 问题不能为空", ErrValidation)
	}
	product, err := activeProduct(ctx, s.store, productID)
	if err != nil {
		return nil, err
	}
	q := &repository.Question{
		ProductID: product.ID,
		Question:  text,
		CreatedAt: s.now().Unix(),
	}
	if userID > 0 {
		q.UserID = int64Ptr(userID)
	}
	created, err := s.store.Questions().Create(ctx, q)
	if err != nil {
		return nil, err
	}
	created.ProductName = product.Name
	return created, nil
}

// Answer 写入回答并标记已回答。
func (s *questionService) Answer(ctx context.Context, actorID, id int64, answer string) (*repository.Question, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("question service not configured / 问答服务未配置")
	}
	answer = sanitizeText(answer)
	if answer == "" {
		return nil, fmt.Errorf("%w: answer is required / 回答不能为空", ErrValidation)
	}
	if err := s.store.Questions().Answer(ctx, id, answer, actorID, s.now().Unix()); err != nil {
		return nil, mapNotFound(err)
	}
	q, err := s.store.Questions().FindByID(ctx, id)
	return q, mapNotFound(err)
}

func (s *questionService) SetApproved(ctx context.Context, id int64, approved bool) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("question service not configured / 问答服务未配置")
	}
	return mapNotFound(s.store.Questions().SetApproved(ctx, id, approved))
}

func (s *questionService) Delete(ctx context.Context, id int64) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("question service not configured / 问答服务未配置")
	}
	return mapNotFound(s.store.Questions().Delete(ctx, id))
}

// ListForProduct 只返回已审核的问答。
func (s *questionService) ListForProduct(ctx context.Context, productID int64, page int) ([]repository.Question, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("question service not configured / 问答服务未配置")
	}
	approved := true
	return s.list(ctx, repository.QuestionFilter{ProductID: &productID, Approved: &approved}, page)
}

func (s *questionService) ListAdmin(ctx context.Context, answered *bool, page int) ([]repository.Question, Page, error) {
	if s == nil || s.store == nil {
		return nil, Page{}, fmt.Errorf("question service not configured / 问答服务未配置")
	}
	return s.list(ctx, repository.QuestionFilter{Answered: answered}, page)
}

func (s *questionService) list(ctx context.Context, filter repository.QuestionFilter, page int) ([]repository.Question, Page, error) {
	p := newPage(page, 10)
	filter.Limit = p.Size
	filter.Offset = p.Offset()
	list, total, err := s.store.Questions().List(ctx, filter)
	if err != nil {
		return nil, Page{}, err
	}
	if list == nil {
		list = []repository.Question{}
	}
	return list, p.withTotal(total), nil
}
