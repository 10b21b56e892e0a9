package layout

// BuildOptions 配置编译阶段。
type BuildOptions struct {
	// BaseDir 用于解析相对路径的字体与图片；为空时不允许使用相对路径。
	BaseDir string
	// Creator 写入文档元信息，meta 段中的 creator 会覆盖它。
	Creator string
}
