package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/docshelf/pkg/rule"
)

// source 模拟扫描目录配置.
type source struct {
	Path    string `mapstructure:"path"    rule:"required"`
	Label   string `mapstructure:"label"   rule:"required,alphanum"`
	Workers int    `mapstructure:"workers" rule:"min=1,max=32"`
}

type nestedConfig struct {
	Sources []source `mapstructure:"sources" rule:"dive"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 ValidateStruct 对有效和无效结构体的验证.
func TestValidateStruct(t *testing.T) {
	cases := []struct {
		name    string
		in      source
		wantErr bool
	}{
		{name: "valid", in: source{Path: "/tmp/docs", Label: "Documents", Workers: 2}},
		{name: "missing path", in: source{Label: "Documents", Workers: 2}, wantErr: true},
		{name: "label with space", in: source{Path: "/tmp", Label: "My Docs", Workers: 2}, wantErr: true},
		{name: "too many workers", in: source{Path: "/tmp", Label: "Cache", Workers: 64}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule.ValidateStruct(tc.in)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar(".pdf", "startswith=."); err != nil {
		t.Errorf("Expected no error for extension, got %v", err)
	}

	if err := rule.ValidateVar("pdf", "startswith=."); err == nil {
		t.Error("Expected error for extension without dot, got nil")
	}

	if err := rule.ValidateVar("gochannel", "oneof=gochannel nats"); err != nil {
		t.Errorf("Expected no error for mq type, got %v", err)
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("lower_ext", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		for _, r := range str {
			if r >= 'A' && r <= 'Z' {
				return false
			}
		}

		return true
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar(".xlsx", "lower_ext"); err != nil {
		t.Errorf("Expected no error for lower case extension, got %v", err)
	}

	if err := rule.ValidateVar(".XLSX", "lower_ext"); err == nil {
		t.Error("Expected error for upper case extension, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("file_ext", "required,startswith=.,min=2")

	if err := rule.ValidateVar(".pdf", "file_ext"); err != nil {
		t.Errorf("Expected no error for valid extension with alias, got %v", err)
	}

	if err := rule.ValidateVar(".", "file_ext"); err == nil {
		t.Error("Expected error for bare dot with alias, got nil")
	}
}

// TestErrors 测试 Errors 使用 mapstructure 名称输出字段.
func TestErrors(t *testing.T) {
	cfg := nestedConfig{Sources: []source{{Path: "", Label: "Cache", Workers: 1}}}

	err := rule.ValidateStruct(cfg)
	if err == nil {
		t.Fatal("Expected error for empty path, got nil")
	}

	errs := rule.Errors(err)
	if _, ok := errs["nestedConfig.sources[0].path"]; !ok {
		t.Errorf("Expected error keyed by mapstructure path, got %v", errs)
	}

	if rule.Errors(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}
