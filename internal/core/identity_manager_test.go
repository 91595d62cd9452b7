package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
)

func writeIdentities(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "identities.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}
	return path
}

func TestIdentityManager_UserAgents(t *testing.T) {
	t.Run("无配置使用默认列表", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "identities.yaml")
		im := NewIdentityManager(path, nil)

		agents, err := im.UserAgents()
		if err != nil {
			t.Fatalf("获取身份失败: %v", err)
		}
		if !reflect.DeepEqual(agents, crawlers.DefaultUserAgents) {
			t.Errorf("期望默认列表, 实际 %v", agents)
		}
		if _, err := os.Stat(path); err != nil {
			t.Error("应自动生成身份配置模板")
		}
	})

	t.Run("配置文件覆盖默认", func(t *testing.T) {
		path := writeIdentities(t, "user_agents:\n  - \"FileBot/1.0\"\n  - \"FileBot/1.0\"\n  - \"FileBot/2.0\"\n")
		im := NewIdentityManager(path, nil)

		agents, err := im.UserAgents()
		if err != nil {
			t.Fatalf("获取身份失败: %v", err)
		}
		want := []string{"FileBot/1.0", "FileBot/2.0"}
		if !reflect.DeepEqual(agents, want) {
			t.Errorf("UserAgents() = %v, want %v", agents, want)
		}
	})

	t.Run("命令行覆盖配置文件", func(t *testing.T) {
		path := writeIdentities(t, "user_agents:\n  - \"FileBot/1.0\"\n")
		im := NewIdentityManager(path, []string{"CliBot/3.0", ""})

		agents, err := im.UserAgents()
		if err != nil {
			t.Fatalf("获取身份失败: %v", err)
		}
		if !reflect.DeepEqual(agents, []string{"CliBot/3.0"}) {
			t.Errorf("UserAgents() = %v, want [CliBot/3.0]", agents)
		}
	})

	t.Run("非法命令行身份", func(t *testing.T) {
		path := writeIdentities(t, "user_agents: []\n")
		im := NewIdentityManager(path, []string{"Bad\nAgent/1.0"})

		_, err := im.UserAgents()
		var verr *models.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("期望 ValidationError, 实际: %v", err)
		}
	})

	t.Run("非法配置文件身份", func(t *testing.T) {
		path := writeIdentities(t, "user_agents:\n  - \"no version here\"\n")
		if _, err := NewIdentityManager(path, nil).UserAgents(); err == nil {
			t.Error("期望验证失败")
		}
	})
}

func TestBuildIdentityPool(t *testing.T) {
	path := writeIdentities(t, "user_agents:\n  - \"PoolBot/1.0\"\n")

	pool, err := BuildIdentityPool(NewIdentityManager(path, nil))
	if err != nil {
		t.Fatalf("构建身份池失败: %v", err)
	}
	if pool.Size() != 1 || pool.Pick() != "PoolBot/1.0" {
		t.Errorf("身份池内容错误: %v", pool.All())
	}
}
