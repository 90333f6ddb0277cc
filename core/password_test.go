package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPasswordPolicy(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: PwdMinLenTag},
		{name: "whitespace", pwd: "Ab1! cdefgh", wantTag: PwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: PwdNotAllNumTag},
		{name: "no special", pwd: "Abcdefgh1", wantTag: PwdComplexityTag},
		{name: "no upper", pwd: "abcdefg1!", wantTag: PwdComplexityTag},
		{name: "too similar", pwd: "Ada.Lovelace1!", attrs: []string{"ada.lovelace@x.io"}, wantTag: PwdAttrSimTag},
		{name: "valid", pwd: "Str0ng!Passw0rd", attrs: []string{"ada@campus.test", "", "Ada"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := CheckPasswordPolicy(tt.pwd, tt.attrs...)
			assert.Equal(t, tt.wantTag, tag)
			assert.Equal(t, tt.wantTag == "", ok)
		})
	}
}

func TestRandomPassword(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		pwd, err := RandomPassword(12)
		if !assert.NoError(t, err) {
			return
		}
		assert.Len(t, pwd, 12)
		_, ok := CheckPasswordPolicy(pwd)
		assert.True(t, ok, pwd)
		seen[pwd] = struct{}{}
	}
	assert.Len(t, seen, 50)

	pwd, err := RandomPassword(3)
	assert.NoError(t, err)
	assert.Len(t, pwd, pwdMinLen+4)
}

func TestHashPassword(t *testing.T) {
	PasswordHashCost = 4
	hash, err := HashPassword("Str0ng!Passw0rd")
	assert.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "Str0ng!Passw0rd"))
	assert.Error(t, CheckPassword(hash, "str0ng!passw0rd"))
}

func TestCategories(t *testing.T) {
	assert.Equal(t,
		[]Category{CategoryNetwork, CategoryOther},
		ParseCategories([]string{" Other", "network", "cafeteria", "OTHER"}),
	)
	set := NewCategorySet(CategoryPassword, CategoryAcademic, CategoryPassword)
	assert.Equal(t, []string{"academic", "password"}, set.Strings())
	assert.True(t, set.Has(CategoryAcademic))
	assert.False(t, set.Has(CategoryFinancial))
	assert.False(t, Category("cafeteria").IsValid())
}

func TestPagination(t *testing.T) {
	tests := []struct {
		in         Pagination
		want       Pagination
		wantOffset int
	}{
		{in: Pagination{}, want: Pagination{Page: 1, Limit: DefaultPageLimit}},
		{in: Pagination{Page: 3, Limit: 10}, want: Pagination{Page: 3, Limit: 10}, wantOffset: 20},
		{in: Pagination{Page: -1, Limit: 1000}, want: Pagination{Page: 1, Limit: MaxPageLimit}},
		{in: Pagination{Page: 922337203685477581, Limit: 20}, want: Pagination{Page: MaxPage, Limit: 20}, wantOffset: (MaxPage - 1) * 20},
	}
	for _, tt := range tests {
		p := tt.in
		p.Clean()
		assert.Equal(t, tt.want, p)
		assert.Equal(t, tt.wantOffset, p.Offset())
	}

	// uncleaned windows never yield a negative offset
	assert.Equal(t, 0, Pagination{Page: 922337203685477581, Limit: 20}.Offset())
	assert.Equal(t, 0, Pagination{Page: 2, Limit: -5}.Offset())
}
