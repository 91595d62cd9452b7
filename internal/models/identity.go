package models

// IdentityConfig 表示 identities.yaml 配置文件的结构
type IdentityConfig struct {
	// UserAgents 浏览器身份池, 每项是一个完整的 User-Agent 字符串
	UserAgents []string `mapstructure:"user_agents" yaml:"user_agents"`
}

// CliIdentities 命令行 --user-agent 传入的身份列表
type CliIdentities []string

// Normalize 去掉空白项与重复项, 保持原有顺序
func (c CliIdentities) Normalize() []string {
	seen := make(map[string]struct{}, len(c))
	out := make([]string, 0, len(c))
	for _, ua := range c {
		if ua == "" {
			continue
		}
		if _, ok := seen[ua]; ok {
			continue
		}
		seen[ua] = struct{}{}
		out = append(out, ua)
	}
	return out
}

// IdentityProvider 身份池提供者
// 返回的列表已按优先级合并(默认 < 配置文件 < 命令行)
type IdentityProvider interface {
	UserAgents() ([]string, error)
}
