package pairing

import (
	"encoding/json"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNG кодирует payload в PNG для сканирования мобильным приложением.
func QRPNG(p Payload, size int) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(string(data), qrcode.Medium, size)
}
