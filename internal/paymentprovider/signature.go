package paymentprovider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SignatureHeader - заголовок с подписью webhook-уведомления.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance - допустимое расхождение отметки времени подписи.
const DefaultTolerance = 5 * time.Minute

// Ошибки проверки подписи.
var (
	// ErrSignatureHeaderMalformed - заголовок отсутствует или не разбирается.
	ErrSignatureHeaderMalformed = errors.New("signature header is malformed")
	// ErrSignatureTimestampExpired - отметка времени вне окна допуска (replay).
	ErrSignatureTimestampExpired = errors.New("signature timestamp outside tolerance")
	// ErrSignatureMismatch - ни одна подпись заголовка не совпала.
	ErrSignatureMismatch = errors.New("no matching signature")
)

// parseSignatureHeader разбирает "t=<unix>,v1=<hex>[,v1=<hex>...]".
func parseSignatureHeader(header string) (int64, [][]byte, error) {
	var timestamp int64 = -1
	var signatures [][]byte

	for _, pair := range strings.Split(header, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), "=", 2)
		if len(parts) != 2 {
			return 0, nil, ErrSignatureHeaderMalformed
		}
		switch parts[0] {
		case "t":
			ts, err := strconv.ParseInt(parts[1], 10, 64)
			if err != nil {
				return 0, nil, ErrSignatureHeaderMalformed
			}
			timestamp = ts
		case "v1":
			sig, err := hex.DecodeString(parts[1])
			if err != nil {
				continue
			}
			signatures = append(signatures, sig)
		default:
			// Неизвестные схемы (v0 и пр.) пропускаем.
		}
	}

	if timestamp < 0 || len(signatures) == 0 {
		return 0, nil, ErrSignatureHeaderMalformed
	}
	return timestamp, signatures, nil
}

// computeSignature считает HMAC-SHA256 над "<timestamp>.<raw body>".
// Тело должно передаваться дословно, без пересериализации: любое изменение
// пробелов или порядка полей делает подпись недействительной.
func computeSignature(timestamp int64, payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}

// VerifySignature проверяет подпись сырого тела webhook-запроса.
// Сравнение константное по времени; отметка времени проверяется в обе
// стороны в пределах tolerance.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	const op = "paymentprovider.VerifySignature"

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	signedAt := time.Unix(timestamp, 0)
	diff := now.Sub(signedAt)
	if diff < 0 {
		diff = -diff
	}
	if diff > tolerance {
		return fmt.Errorf("%s: %w", op, ErrSignatureTimestampExpired)
	}

	expected := computeSignature(timestamp, payload, secret)
	for _, sig := range signatures {
		if hmac.Equal(expected, sig) {
			return nil
		}
	}
	return fmt.Errorf("%s: %w", op, ErrSignatureMismatch)
}

// ParseEvent разбирает проверенное тело в конверт события.
func ParseEvent(payload []byte) (*Event, error) {
	const op = "paymentprovider.ParseEvent"

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if event.ID == "" || event.Type == "" {
		return nil, fmt.Errorf("%s: event id or type is empty", op)
	}
	return &event, nil
}
