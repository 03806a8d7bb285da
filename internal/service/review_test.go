package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestReviewSubmitAndModerate(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	buyer := env.seedUser(t, "buyer", 0)
	voter := env.seedUser(t, "voter", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	order := env.placeBuyNow(t, buyer.ID, product.ID, 1, repository.MethodCOD)
	env.deliver(t, admin.ID, order.ID)
	svc := NewReviewService(env.store)

	cases := []struct {
		name  string
		input ReviewInput
		want  error
	}{
		{"rating too low", ReviewInput{ProductID: product.ID, Rating: 0, Name: "a", Email: "a@b.c", Comment: "x"}, ErrInvalidRating},
		{"rating too high", ReviewInput{ProductID: product.ID, Rating: 6, Name: "a", Email: "a@b.c", Comment: "x"}, ErrInvalidRating},
		{"missing comment", ReviewInput{ProductID: product.ID, Rating: 4, Name: "a", Email: "a@b.c", Comment: "<p></p>"}, ErrReviewFieldsRequired},
		{"bad email", ReviewInput{ProductID: product.ID, Rating: 4, Name: "a", Email: "nope", Comment: "fine"}, ErrValidation},
		{"unknown product", ReviewInput{ProductID: 9999, Rating: 4, Name: "a", Email: "a@b.c", Comment: "fine"}, ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Submit(env.ctx, buyer.ID, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	verified, err := svc.Submit(env.ctx, buyer.ID, ReviewInput{ProductID: product.ID, Rating: 5, Name: "Buyer", Email: "buyer@example.com", Comment: "Great <script>x</script>lamp"})
	require.NoError(t, err)
	require.True(t, verified.IsVerifiedPurchase)
	require.False(t, verified.IsApproved)
	require.NotContains(t, verified.Comment, "<script>")

	guest, err := svc.Submit(env.ctx, 0, ReviewInput{ProductID: product.ID, Rating: 2, Name: "Guest", Email: "guest@example.com", Comment: "meh"})
	require.NoError(t, err)
	require.False(t, guest.IsVerifiedPurchase)

	public, _, err := svc.ListForProduct(env.ctx, product.ID, 1)
	require.NoError(t, err)
	require.Empty(t, public)
	pending, _, err := svc.ListPending(env.ctx, 1)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, svc.Approve(env.ctx, verified.ID))
	require.NoError(t, svc.Approve(env.ctx, guest.ID))
	p, err := env.store.Products().FindByID(env.ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 3.5, p.Rating)
	require.Equal(t, int64(2), p.ReviewCount)

	voted, err := svc.Vote(env.ctx, voter.ID, verified.ID, true)
	require.NoError(t, err)
	require.Equal(t, int64(1), voted.HelpfulCount)
	// 改票移动计数，不重复累加
	voted, err = svc.Vote(env.ctx, voter.ID, verified.ID, false)
	require.NoError(t, err)
	require.Equal(t, int64(0), voted.HelpfulCount)
	require.Equal(t, int64(1), voted.NotHelpfulCount)
	_, err = svc.Vote(env.ctx, 0, verified.ID, true)
	require.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.Delete(env.ctx, guest.ID))
	p, err = env.store.Products().FindByID(env.ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 5.0, p.Rating)
	require.Equal(t, int64(1), p.ReviewCount)
}

func TestQuestionsAnswerFlow(t *testing.T) {
	env := newShopEnv(t)
	admin := env.seedUser(t, "admin", 0)
	user := env.seedUser(t, "asha", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	svc := NewQuestionService(env.store)

	_, err := svc.Ask(env.ctx, user.ID, product.ID, "  ")
	require.ErrorIs(t, err, ErrValidation)

	q, err := svc.Ask(env.ctx, user.ID, product.ID, "Does it come with a bulb?")
	require.NoError(t, err)
	require.False(t, q.IsAnswered)

	unanswered := false
	open, _, err := svc.ListAdmin(env.ctx, &unanswered, 1)
	require.NoError(t, err)
	require.Len(t, open, 1)

	answered, err := svc.Answer(env.ctx, admin.ID, q.ID, "Yes, a 9W LED.")
	require.NoError(t, err)
	require.True(t, answered.IsAnswered)
	require.Equal(t, "Yes, a 9W LED.", answered.Answer)

	public, _, err := svc.ListForProduct(env.ctx, product.ID, 1)
	require.NoError(t, err)
	require.Empty(t, public)

	require.NoError(t, svc.SetApproved(env.ctx, q.ID, true))
	public, _, err = svc.ListForProduct(env.ctx, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, public, 1)

	require.NoError(t, svc.Delete(env.ctx, q.ID))
	require.ErrorIs(t, svc.SetApproved(env.ctx, q.ID, true), ErrNotFound)
}

func TestReviewImages(t *testing.T) {
	env := newShopEnv(t)
	buyer := env.seedUser(t, "buyer", 0)
	product := env.seedProduct(t, "lamp", "300", 5)
	svc := NewReviewService(env.store)

	tooMany := []string{"1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"}
	_, err := svc.Submit(env.ctx, buyer.ID, ReviewInput{ProductID: product.ID, Rating: 4, Name: "B", Email: "b@example.com", Comment: "ok", Images: tooMany})
	require.ErrorIs(t, err, ErrValidation)

	review, err := svc.Submit(env.ctx, buyer.ID, ReviewInput{
		ProductID: product.ID, Rating: 4, Name: "B", Email: "b@example.com", Comment: "ok",
		Images: []string{" /media/reviews/a.jpg ", "", "/media/reviews/b.jpg"},
	})
	require.NoError(t, err)
	require.Len(t, review.Images, 2)
	require.Equal(t, "/media/reviews/a.jpg", review.Images[0].URL)

	require.NoError(t, svc.Approve(env.ctx, review.ID))
	list, _, err := svc.ListForProduct(env.ctx, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Images, 2)

	require.NoError(t, svc.DeleteImage(env.ctx, review.ID, review.Images[0].ID))
	require.ErrorIs(t, svc.DeleteImage(env.ctx, review.ID, review.Images[0].ID), ErrNotFound)
	reloaded, err := env.store.Reviews().FindByID(env.ctx, review.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Images, 1)
	require.Equal(t, "/media/reviews/b.jpg", reloaded.Images[0].URL)
}
