package post

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"猫", "猫"},
		{"  Go 言語　入門 ", "go-言語-入門"},
		{"ＡＩトレンド！", "aiトレンド"},
		{"Kubernetes/Docker 比較", "kubernetesdocker-比較"},
		{"snake_case-and-kebab", "snake_case-and-kebab"},
		{"ラーメン", "ラーメン"},
		{"!!!", ""},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			assert.Equal(t, c.want, Slugify(c.in))
		})
	}
}

func TestSlugify_Idempotent(t *testing.T) {
	inputs := []string{
		"猫",
		"  Go 言語　入門 ",
		"ＡＩトレンド！",
		"Ｈｅｌｌｏ　Ｗｏｒｌｄ",
		"Café au lait",
		"C++ と Rust の違い？",
		"ﾗｰﾒﾝ 2024",
	}
	for _, in := range inputs {
		once := Slugify(in)
		assert.Equal(t, once, Slugify(once), "input %q", in)
	}
}
