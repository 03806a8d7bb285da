package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/vibemall/internal/repository"
)

func TestChatUserThread(t *testing.T) {
	env := newShopEnv(t)
	asha := env.seedUser(t, "asha", 0)
	ravi := env.seedUser(t, "ravi", 0)
	svc := NewChatService(env.store)

	_, err := svc.Open(env.ctx, 0)
	require.ErrorIs(t, err, ErrUnauthorized)

	thread, err := svc.Open(env.ctx, asha.ID)
	require.NoError(t, err)
	require.Equal(t, repository.ChatOpen, thread.Status)
	require.Equal(t, "Test asha", thread.DisplayName())
	again, err := svc.Open(env.ctx, asha.ID)
	require.NoError(t, err)
	require.Equal(t, thread.ID, again.ID)

	user := ChatActor{UserID: asha.ID}
	_, err = svc.Send(env.ctx, user, thread.ID, ChatInput{Message: "  <p></p> "})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Send(env.ctx, ChatActor{UserID: ravi.ID}, thread.ID, ChatInput{Message: "hi"})
	require.ErrorIs(t, err, ErrNotFound)

	msg, err := svc.Send(env.ctx, user, thread.ID, ChatInput{
		Message:     "Where is my <b>order</b>?",
		Attachments: []repository.ChatAttachment{{URL: "/media/chat/receipt.pdf", ContentType: "application/pdf", SizeBytes: 2048}},
	})
	require.NoError(t, err)
	require.Equal(t, repository.SenderUser, msg.SenderType)
	require.NotContains(t, msg.Message, "<b>")
	require.Len(t, msg.Attachments, 1)
	require.Equal(t, "receipt.pdf", msg.Attachments[0].OriginalName)

	threads, page, err := svc.ListThreads(env.ctx, "open", 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	require.Equal(t, int64(1), threads[0].Unread)

	admin := ChatActor{Admin: true}
	list, err := svc.Messages(env.ctx, admin, thread.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Attachments, 1)
	threads, _, err = svc.ListThreads(env.ctx, "", 1)
	require.NoError(t, err)
	require.Zero(t, threads[0].Unread)

	reply, err := svc.Send(env.ctx, admin, thread.ID, ChatInput{Message: "It ships today."})
	require.NoError(t, err)
	require.Equal(t, repository.SenderAdmin, reply.SenderType)
	notes, err := env.store.Notifications().ListByUser(env.ctx, asha.ID, false, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, repository.NotifyChatReply, notes[0].Type)

	newer, err := svc.Messages(env.ctx, user, thread.ID, msg.ID)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	require.Equal(t, reply.ID, newer[0].ID)

	require.NoError(t, svc.SetStatus(env.ctx, thread.ID, "closed"))
	_, err = svc.Send(env.ctx, user, thread.ID, ChatInput{Message: "thanks"})
	require.ErrorIs(t, err, ErrChatClosed)
	require.ErrorIs(t, svc.SetStatus(env.ctx, thread.ID, "archived"), ErrValidation)

	reopened, err := svc.Open(env.ctx, asha.ID)
	require.NoError(t, err)
	require.NotEqual(t, thread.ID, reopened.ID)
}

func TestChatGuestThread(t *testing.T) {
	env := newShopEnv(t)
	svc := NewChatService(env.store)

	_, err := svc.OpenGuest(env.ctx, "Meera", "not-an-email")
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.OpenGuest(env.ctx, "", "meera@example.com")
	require.ErrorIs(t, err, ErrValidation)

	guest, err := svc.OpenGuest(env.ctx, "Meera", " Meera@Example.com ")
	require.NoError(t, err)
	require.NotEmpty(t, guest.AccessKey)
	require.Equal(t, "meera@example.com", guest.Thread.GuestEmail)
	require.Equal(t, "Meera", guest.Thread.DisplayName())

	actor := ChatActor{AccessKey: guest.AccessKey}
	_, err = svc.Send(env.ctx, actor, 0, ChatInput{Message: "Do you ship to Pune?"})
	require.NoError(t, err)
	_, err = svc.Send(env.ctx, ChatActor{AccessKey: "wrong"}, 0, ChatInput{Message: "hi"})
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Send(env.ctx, ChatActor{}, guest.Thread.ID, ChatInput{Message: "hi"})
	require.ErrorIs(t, err, ErrUnauthorized)

	many := make([]repository.ChatAttachment, maxChatAttachments+1)
	for i := range many {
		many[i].URL = "/media/chat/x.png"
	}
	_, err = svc.Send(env.ctx, actor, 0, ChatInput{Attachments: many})
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.Send(env.ctx, actor, 0, ChatInput{Attachments: []repository.ChatAttachment{{URL: "/big.zip", SizeBytes: maxChatAttachmentSize + 1}}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Send(env.ctx, ChatActor{Admin: true}, guest.Thread.ID, ChatInput{Message: "Yes we do."})
	require.NoError(t, err)
	list, err := svc.Messages(env.ctx, actor, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.False(t, list[0].IsRead)
	require.Equal(t, repository.SenderAdmin, list[1].SenderType)
	require.True(t, list[1].IsRead)
}
