package keys

import "testing"

func TestCategorizeKey(t *testing.T) {
	tests := []struct {
		key  string
		want KeyCategory
	}{
		{KeyAccount("9xQeWvG816bUx9EP"), CategoryState},
		{KeyReceipt("abcd"), CategoryKV},
		{"v1_meta_height", CategoryKV},
		{"account_without_version", CategoryKV},
	}
	for _, tt := range tests {
		if got := CategorizeKey(tt.key); got != tt.want {
			t.Errorf("CategorizeKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
	if !IsStatefulKey(KeyAccount("x")) {
		t.Error("account key should be stateful")
	}
}

func TestLabel(t *testing.T) {
	if got := Label(KeyAccount("x")); got != "account" {
		t.Errorf("Label(account) = %q", got)
	}
	if got := Label(KeyReceipt("x")); got != "receipt" {
		t.Errorf("Label(receipt) = %q", got)
	}
	if got := Label("v1_other"); got != "meta" {
		t.Errorf("Label(other) = %q", got)
	}
}
