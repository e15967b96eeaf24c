package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 支持"250ms"、"5s"等字符串写法的时长配置
type Duration time.Duration

// Std 转换为标准库时长
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalYAML 解析时长配置，支持字符串时长和整数秒
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("解析时长失败: %v", err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds int64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("无效的时长配置: %s", value.Value)
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// MarshalYAML 输出为字符串时长
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}
