package security

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"

	"github.com/pquerna/otp/totp"
)

// TOTPEnrollment carries a freshly generated TOTP secret and its provisioning data.
type TOTPEnrollment struct {
	Secret     string
	OTPAuthURL string
	QRImage    string // data URL of a PNG QR code, empty if rendering failed.
}

// GenerateTOTP creates a new TOTP secret for the given account name.
func GenerateTOTP(issuer, accountName string) (TOTPEnrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
	})
	if err != nil {
		return TOTPEnrollment{}, err
	}
	out := TOTPEnrollment{Secret: key.Secret(), OTPAuthURL: key.URL()}
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			out.QRImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	return out, nil
}

// ValidateTOTP checks a code against a secret.
func ValidateTOTP(code, secret string) bool {
	code = strings.TrimSpace(code)
	if code == "" || strings.TrimSpace(secret) == "" {
		return false
	}
	return totp.Validate(code, secret)
}
