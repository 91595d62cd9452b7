package core

import (
	"github.com/RecoveryAshes/ProductFinder/internal/config"
	"github.com/RecoveryAshes/ProductFinder/internal/crawlers"
	"github.com/RecoveryAshes/ProductFinder/internal/models"
	"github.com/RecoveryAshes/ProductFinder/internal/utils"
)

// IdentityManager 管理浏览器身份池的来源
// 实现 models.IdentityProvider 接口
type IdentityManager struct {
	// defaults 内置默认 User-Agent 列表
	defaults []string

	// config 从配置文件加载的列表
	config []string

	// cli 从命令行 --user-agent 传入的列表
	cli []string

	validator    *utils.IdentityValidator
	configLoader *config.IdentityConfigLoader
	loaded       bool
}

// NewIdentityManager 创建身份管理器
// configFile 为空时使用默认路径 configs/identities.yaml
func NewIdentityManager(configFile string, cliAgents []string) *IdentityManager {
	return &IdentityManager{
		defaults:     crawlers.DefaultUserAgents,
		cli:          models.CliIdentities(cliAgents).Normalize(),
		validator:    utils.NewIdentityValidator(),
		configLoader: config.NewIdentityConfigLoader(configFile),
	}
}

// LoadConfig 加载配置文件, 已加载则跳过
func (im *IdentityManager) LoadConfig() error {
	if im.loaded {
		return nil
	}

	cfg, err := im.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载身份配置失败: %v", err)
		return err
	}

	im.config = models.CliIdentities(cfg.UserAgents).Normalize()
	im.loaded = true

	if len(im.config) > 0 {
		utils.Debugf("从 %s 加载了 %d 个 User-Agent", im.configLoader.Path(), len(im.config))
	}
	return nil
}

// Validate 按 默认 → 配置 → 命令行 的顺序验证
func (im *IdentityManager) Validate() error {
	layers := []struct {
		name   string
		agents []string
	}{
		{"默认", im.defaults},
		{"配置文件", im.config},
		{"命令行", im.cli},
	}

	for _, layer := range layers {
		if err := im.validator.Validate(layer.agents); err != nil {
			utils.Errorf("%s User-Agent 验证失败: %v", layer.name, err)
			return err
		}
	}

	utils.Debugf("所有 User-Agent 验证通过")
	return nil
}

// Merged 按优先级取列表 (default < config < cli)
// 身份池是整体替换的: 最高优先级的非空层生效
func (im *IdentityManager) Merged() []string {
	switch {
	case len(im.cli) > 0:
		return im.cli
	case len(im.config) > 0:
		return im.config
	default:
		return im.defaults
	}
}

// UserAgents 实现 IdentityProvider 接口
func (im *IdentityManager) UserAgents() ([]string, error) {
	if err := im.LoadConfig(); err != nil {
		return nil, err
	}
	if err := im.Validate(); err != nil {
		return nil, err
	}
	return im.Merged(), nil
}

// BuildIdentityPool 从身份来源构建共享的身份池
func BuildIdentityPool(provider models.IdentityProvider) (*crawlers.IdentityPool, error) {
	agents, err := provider.UserAgents()
	if err != nil {
		return nil, err
	}
	pool, err := crawlers.NewIdentityPool(agents, nil)
	if err != nil {
		return nil, err
	}
	utils.Infof("身份池就绪: %d 个 User-Agent", pool.Size())
	return pool, nil
}
