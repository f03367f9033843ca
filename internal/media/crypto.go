package media

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// WhatsApp media key derivation constants. The expanded key material is
// IV (16) + cipher key (32) + MAC key (32) + ref key (32); the final 10
// bytes of the ciphertext are a truncated HMAC trailer.
const (
	expandedKeyLen = 112
	macTrailerLen  = 10
)

var mediaKeyInfo = map[string]string{
	"audio":    "WhatsApp Audio Keys",
	"image":    "WhatsApp Image Keys",
	"video":    "WhatsApp Video Keys",
	"document": "WhatsApp Document Keys",
}

// DecryptMedia decrypts an encrypted WhatsApp media payload using the
// base64-encoded media key from the message envelope. The mimetype selects
// the HKDF info string ("audio/ogg; codecs=opus" derives audio keys).
func DecryptMedia(encrypted []byte, mediaKeyB64, mimetype string) ([]byte, error) {
	mediaKey, err := base64.StdEncoding.DecodeString(mediaKeyB64)
	if err != nil {
		return nil, fmt.Errorf("invalid media key encoding: %w", err)
	}

	info, err := keyInfoFor(mimetype)
	if err != nil {
		return nil, err
	}

	expanded := make([]byte, expandedKeyLen)
	kdf := hkdf.New(sha256.New, mediaKey, make([]byte, 32), []byte(info))
	if _, err := io.ReadFull(kdf, expanded); err != nil {
		return nil, fmt.Errorf("media key expansion failed: %w", err)
	}
	iv := expanded[:16]
	cipherKey := expanded[16:48]

	if len(encrypted) < macTrailerLen+aes.BlockSize {
		return nil, fmt.Errorf("encrypted media too short: %d bytes", len(encrypted))
	}
	ciphertext := encrypted[:len(encrypted)-macTrailerLen]
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("encrypted media not block aligned: %d bytes", len(ciphertext))
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init media cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	return unpadPKCS7(plaintext)
}

func keyInfoFor(mimetype string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(mimetype))
	if i := strings.IndexByte(base, '/'); i > 0 {
		base = base[:i]
	}
	info, ok := mediaKeyInfo[base]
	if !ok {
		return "", fmt.Errorf("unsupported media type %q", mimetype)
	}
	return info, nil
}

func unpadPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("decrypted media is empty")
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("invalid media padding")
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("invalid media padding")
		}
	}
	return data[:len(data)-pad], nil
}
