package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/crypto/bcrypt"
)

var (
	// PasswordHashCost is lowered in tests.
	PasswordHashCost = bcrypt.DefaultCost

	// password policy
	pwdMinLen     = 8
	PwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	PwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	PwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	PwdComplexityTag  = "pwdcplx"
	pwdComplexityText = "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	PwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"

	pwdLower   = "abcdefghijkmnopqrstuvwxyz"
	pwdUpper   = "ABCDEFGHJKLMNPQRSTUVWXYZ"
	pwdDigits  = "23456789"
	pwdSpecial = "!#$%&*+-=?@"
)

// RegisterPasswordTranslations registers the password policy messages.
func RegisterPasswordTranslations(validate *validator.Validate, translator ut.Translator) {
	RegisterCustomTranslation(validate, translator, PwdMinLenTag, pwdMinLenText)
	RegisterCustomTranslation(validate, translator, PwdNoSpaceTag, pwdNoSpaceText)
	RegisterCustomTranslation(validate, translator, PwdNotAllNumTag, pwdNotAllNumText)
	RegisterCustomTranslation(validate, translator, PwdComplexityTag, pwdComplexityText)
	RegisterCustomTranslation(validate, translator, PwdAttrSimTag, pwdAttrSimText)
}

// PasswordPolicyText returns the message of a password policy tag.
func PasswordPolicyText(tag string) string {
	switch tag {
	case PwdMinLenTag:
		return pwdMinLenText
	case PwdNoSpaceTag:
		return pwdNoSpaceText
	case PwdNotAllNumTag:
		return pwdNotAllNumText
	case PwdComplexityTag:
		return pwdComplexityText
	case PwdAttrSimTag:
		return pwdAttrSimText
	}
	return "invalid password"
}

func HashPassword(pwd string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(pwd), PasswordHashCost)
}

func CheckPassword(hash []byte, pwd string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(pwd))
}

// CheckPasswordPolicy applies the password policy to pwd and returns the tag of the first failed rule:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
func CheckPasswordPolicy(pwd string, attrs ...string) (string, bool) {
	var (
		digitCount                             int
		hasUpper, hasLower, hasDig, hasSpecial bool
	)

	pwdLen := len(pwd)
	if pwdLen < pwdMinLen {
		return PwdMinLenTag, false
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			return PwdNoSpaceTag, false
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == pwdLen {
		return PwdNotAllNumTag, false
	}

	hasDig = digitCount > 0
	hasSpecial = specialRegex.MatchString(pwd)
	if !(hasUpper && hasLower && hasDig && hasSpecial) {
		return PwdComplexityTag, false
	}

	getRatio := func(pass, attr string) float64 {
		if attr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if getRatio(lpwd, attr) >= pwdMaxSim {
			return PwdAttrSimTag, false
		}
	}
	return "", true
}

// ReportPasswordPolicy reports a password policy violation on the `field` of the struct being validated.
func ReportPasswordPolicy(sl validator.StructLevel, pwd, field, structField string, attrs ...string) {
	if tag, ok := CheckPasswordPolicy(pwd, attrs...); !ok {
		sl.ReportError(pwd, field, structField, tag, "")
	}
}

// RandomPassword generates a temporary password that satisfies the password policy.
func RandomPassword(length int) (string, error) {
	if length < pwdMinLen {
		length = pwdMinLen + 4
	}
	sets := []string{pwdLower, pwdUpper, pwdDigits, pwdSpecial}
	all := strings.Join(sets, "")

	pick := func(set string) (byte, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
		if err != nil {
			return 0, err
		}
		return set[n.Int64()], nil
	}

	buf := make([]byte, 0, length)
	for _, set := range sets {
		c, err := pick(set)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}
	for len(buf) < length {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		buf = append(buf, c)
	}

	// shuffle so the first chars are not always lower/upper/digit/special
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf), nil
}
