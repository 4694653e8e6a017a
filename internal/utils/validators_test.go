package utils

import "testing"

func TestExtractChannelID(t *testing.T) {
	cases := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"@mychannel", "@mychannel", false},
		{"mychannel", "@mychannel", false},
		{"t.me/mychannel", "@mychannel", false},
		{"https://t.me/mychannel", "@mychannel", false},
		{"https://t.me/mychannel?start=abc", "@mychannel", false},
		{"telegram.me/my_channel", "@my_channel", false},
		{"-1001234567890", "-1001234567890", false},
		{"", "", true},
		{"t.me/+AbCdEf", "", true},      // приватная инвайт-ссылка
		{"ab", "", true},                // слишком короткое имя
		{"1channel", "", true},          // числовой префикс, но не число
		{"@канал", "", true},            // не латиница
		{"https://t.me/", "", true},
	}
	for _, tc := range cases {
		got, err := ExtractChannelID(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ExtractChannelID(%q): ожидалась ошибка, получено %q", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ExtractChannelID(%q): неожиданная ошибка: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ExtractChannelID(%q) = %q, ожидалось %q", tc.input, got, tc.want)
		}
	}
}

func TestParsePositiveInt(t *testing.T) {
	if n, err := ParsePositiveInt(" 25 "); err != nil || n != 25 {
		t.Errorf("ParsePositiveInt(\" 25 \") = %d, %v", n, err)
	}
	for _, bad := range []string{"0", "-3", "abc", ""} {
		if _, err := ParsePositiveInt(bad); err == nil {
			t.Errorf("ParsePositiveInt(%q): ожидалась ошибка", bad)
		}
	}
}

func TestPluralRu(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{1, "балл"},
		{2, "балла"},
		{5, "баллов"},
		{11, "баллов"},
		{21, "балл"},
		{104, "балла"},
		{111, "баллов"},
	}
	for _, tc := range cases {
		if got := pluralRu(tc.n, "балл", "балла", "баллов"); got != tc.want {
			t.Errorf("pluralRu(%d) = %q, ожидалось %q", tc.n, got, tc.want)
		}
	}
}
