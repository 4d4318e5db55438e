package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadSignerGenerateAndParse(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("user-1", "plan-user-1-2026-08-23.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	userID, filename, parsedExpiry, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", userID)
	require.Equal(t, "plan-user-1-2026-08-23.pdf", filename)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := &DownloadSigner{secret: []byte("secret"), ttl: -time.Hour}
	token, _, err := signer.Generate("user-1", "plan.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expired")
}

func TestDownloadSignerRejectsTampering(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Generate("user-1", "plan.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[0] = "user-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	require.Error(t, err)
	require.Contains(t, err.Error(), "signature")
}

func TestDownloadSignerRequiresSecret(t *testing.T) {
	signer := NewDownloadSigner("", time.Hour)
	_, _, err := signer.Generate("user-1", "plan.pdf")
	require.Error(t, err)
}
