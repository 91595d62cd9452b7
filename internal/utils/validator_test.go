package utils

import (
	"errors"
	"strings"
	"testing"

	"github.com/RecoveryAshes/ProductFinder/internal/models"
)

func TestIdentityValidator_ValidateUserAgent(t *testing.T) {
	iv := NewIdentityValidator()

	tests := []struct {
		name    string
		ua      string
		wantErr bool
	}{
		{"Chrome桌面", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36", false},
		{"简单产品标记", "ProductFinder/1.0", false},
		{"空字符串", "", true},
		{"只有空白", "   ", true},
		{"包含换行", "Mozilla/5.0\r\nX-Injected: 1", true},
		{"包含制表符", "Mozilla/5.0\t(X11)", true},
		{"包含中文", "Mozilla/5.0 浏览器", true},
		{"缺少版本标记", "just a browser", true},
		{"最大长度", "Mozilla/5.0 " + strings.Repeat("a", MaxUserAgentLength-12), false},
		{"超过最大长度", "Mozilla/5.0 " + strings.Repeat("a", MaxUserAgentLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := iv.ValidateUserAgent(1, tt.ua)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserAgent(%q) error = %v, wantErr %v", tt.ua, err, tt.wantErr)
			}
		})
	}
}

func TestIdentityValidator_Validate(t *testing.T) {
	iv := NewIdentityValidator()

	t.Run("合法列表", func(t *testing.T) {
		if err := iv.Validate([]string{"A/1.0", "B/2.0"}); err != nil {
			t.Errorf("期望通过, 实际: %v", err)
		}
	})

	t.Run("空列表", func(t *testing.T) {
		if err := iv.Validate(nil); err != nil {
			t.Errorf("空列表应通过, 实际: %v", err)
		}
	})

	t.Run("错误定位到第二项", func(t *testing.T) {
		err := iv.Validate([]string{"A/1.0", "bad\x00ua/1"})
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("期望 ValidationError, 实际: %v", err)
		}
		if verr.Index != 2 {
			t.Errorf("期望 Index=2, 实际=%d", verr.Index)
		}
		if verr.Suggestion == "" {
			t.Error("应给出修复建议")
		}
	})
}
