package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		SigningKey: []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "vibemall",
		Audience:   "vibemall-client",
		TTL:        time.Hour,
		Now:        now,
	})
	require.NoError(t, err)
	return m
}

func TestIssueAndVerify(t *testing.T) {
	m := newTestManager(t, nil)

	raw, claims, err := m.Issue(Principal{UserID: 42, Username: "asha", IsStaff: true, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)

	p, err := m.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.Equal(t, "asha", p.Username)
	assert.True(t, p.IsStaff)
	assert.Equal(t, "s1", p.SessionID)
}

func TestVerifyExpired(t *testing.T) {
	issuedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issuedAt
	m := newTestManager(t, func() time.Time { return clock })

	raw, _, err := m.Issue(Principal{UserID: 1})
	require.NoError(t, err)

	clock = issuedAt.Add(2 * time.Hour)
	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	m := newTestManager(t, nil)
	other, err := NewManager(Options{SigningKey: []byte("another-key"), Issuer: "vibemall", Audience: "vibemall-client"})
	require.NoError(t, err)

	raw, _, err := other.Issue(Principal{UserID: 1})
	require.NoError(t, err)

	_, err = m.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRequiresUser(t *testing.T) {
	m := newTestManager(t, nil)
	_, _, err := m.Issue(Principal{})
	assert.Error(t, err)
}

func TestNewManagerRejectsEmptyKey(t *testing.T) {
	_, err := NewManager(Options{})
	assert.Error(t, err)
}
