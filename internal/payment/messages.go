package payment

// GenericFailureMessage is what the customer sees when nothing more specific
// can be said about why the payment did not go through.
const GenericFailureMessage = "Ödeme işlemi başarısız oldu. Lütfen tekrar deneyin."

// mdStatus codes reported by the bank for the 3-D Secure step. "1" means the
// challenge succeeded and never reaches this table.
var verificationFailureMessages = map[string]string{
	"0": "3-D Secure imzası geçersiz veya doğrulama yapılamadı",
	"2": "Kart sahibi veya bankası sisteme kayıtlı değil",
	"3": "Kartın bankası sisteme kayıtlı değil",
	"4": "Doğrulama denemesi, kart sahibi sisteme kayıt olmayı seçmiş",
	"5": "Doğrulama yapılamıyor",
	"6": "3-D Secure hatası",
	"7": "Sistem hatası",
	"8": "Bilinmeyen kart numarası",
}

var captureFailureMessages = map[string]string{
	"10005": "İşlem bankanız tarafından onaylanmadı",
	"10012": "Geçersiz işlem",
	"10041": "Kayıp kart, lütfen bankanızla iletişime geçin",
	"10043": "Çalıntı kart, lütfen bankanızla iletişime geçin",
	"10051": "Kart limiti yetersiz, yetersiz bakiye",
	"10054": "Vadesi dolmuş kart",
	"10057": "Kart sahibi bu işlemi yapamaz",
	"10058": "Terminalin bu işlemi yapmaya yetkisi yok",
	"10084": "CVC2 bilgisi hatalı",
}

func VerificationFailureMessage(mdStatus string) string {
	if msg, ok := verificationFailureMessages[mdStatus]; ok {
		return msg
	}
	return GenericFailureMessage
}

// CaptureFailureMessage prefers the local translation for a known error code,
// then whatever the gateway itself said, then the generic message.
func CaptureFailureMessage(errorCode, gatewayMessage string) string {
	if msg, ok := captureFailureMessages[errorCode]; ok {
		return msg
	}
	if gatewayMessage != "" {
		return gatewayMessage
	}
	return GenericFailureMessage
}
