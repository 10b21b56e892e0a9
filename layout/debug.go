package layout

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteDebugJSON 将编译结果（场景、元信息与字体资源）写为缩进 JSON。
// 内联图片以 base64 输出。
func WriteDebugJSON(res *Result, path string) error {
	if res == nil || res.Scene == nil {
		return fmt.Errorf("编译结果为空")
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化编译结果失败: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
