package mpesa

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/virtucloud/virtucloud-backend/pkg/errors"
)

var digitsOnlyRe = regexp.MustCompile(`^[0-9]+$`)

// NormalizePhone converts user-supplied Kenyan phone numbers to the 2547XXXXXXXX
// form the Daraja API requires. Accepted inputs: 07XXXXXXXX, 01XXXXXXXX,
// 7XXXXXXXX, 1XXXXXXXX, +2547XXXXXXXX, 2547XXXXXXXX.
func NormalizePhone(raw string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")
	phone = strings.ReplaceAll(phone, " ", "")
	phone = strings.ReplaceAll(phone, "-", "")

	if phone == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if !digitsOnlyRe.MatchString(phone) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("phone number %q contains non-digit characters", raw))
	}

	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		phone = "254" + phone[1:]
	}
	if len(phone) == 9 && (strings.HasPrefix(phone, "7") || strings.HasPrefix(phone, "1")) {
		phone = "254" + phone
	}

	if !strings.HasPrefix(phone, "254") || len(phone) != 12 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("phone number %q is not a valid Kenyan mobile number", raw))
	}

	return phone, nil
}
