package payment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerificationFailureMessages(t *testing.T) {
	require.Equal(t, "Kartın bankası sisteme kayıtlı değil", VerificationFailureMessage("3"))
	require.Equal(t, "Bilinmeyen kart numarası", VerificationFailureMessage("8"))

	// Unmapped codes fall back to the generic message.
	require.Equal(t, GenericFailureMessage, VerificationFailureMessage("99"))
	require.Equal(t, GenericFailureMessage, VerificationFailureMessage(""))
}

func TestVerificationFailureTableIsComplete(t *testing.T) {
	for _, code := range []string{"0", "2", "3", "4", "5", "6", "7", "8"} {
		require.NotEqual(t, GenericFailureMessage, VerificationFailureMessage(code), "code %s", code)
	}
}

func TestCaptureFailureMessageFallbackChain(t *testing.T) {
	require.Equal(t, "Kart limiti yetersiz, yetersiz bakiye", CaptureFailureMessage("10051", "ignored"))

	// Unknown code: prefer whatever the gateway said.
	require.Equal(t, "gateway said no", CaptureFailureMessage("55555", "gateway said no"))

	// Unknown code and silent gateway: generic.
	require.Equal(t, GenericFailureMessage, CaptureFailureMessage("55555", ""))
}
