package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFoldSearchText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Widget", "widget"},
		{"Nước Giặt Ariel", "nuoc giat ariel"},
		{"Sữa tắm DOVE", "sua tam dove"},
		{"Đồng hồ", "dong ho"},
		{"  extra   spaces  ", "extra spaces"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FoldSearchText(tc.in), "input %q", tc.in)
	}
}

func TestBuildSearchKeyword(t *testing.T) {
	got := BuildSearchKeyword("SP01", "Nước giặt", "Ariel", "Hàng Việt Nam")
	assert.Equal(t, "sp01 nuoc giat ariel hang viet nam", got)
}

func TestFoldSearchTextAccentAndASCIIMatchSameSet(t *testing.T) {
	keyword := BuildSearchKeyword("SP01", "Nước giặt", "Ariel", "đậm đặc")
	assert.Contains(t, keyword, FoldSearchText("nuoc giat"))
	assert.Contains(t, keyword, FoldSearchText("Nước Giặt"))
	assert.Contains(t, keyword, FoldSearchText("ĐẬM"))
}
