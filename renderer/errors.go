package renderer

import (
	"errors"
	"fmt"
)

// Stage 标识渲染流水线所处的阶段。
type Stage int

const (
	StageUnstarted Stage = iota
	StageSurface
	StageCompositing
	StageEncoding
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageUnstarted:
		return "unstarted"
	case StageSurface:
		return "surface"
	case StageCompositing:
		return "compositing"
	case StageEncoding:
		return "encoding"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Kind 区分致命错误的类别。
type Kind int

const (
	// KindConfiguration：页面尺寸无效，渲染尚未开始。
	KindConfiguration Kind = iota + 1
	// KindEncoding：栅格到文档的转换或序列化失败。
	KindEncoding
	// KindCanceled：调用方在渲染完成前取消了 context。
	KindCanceled
)

// 可与 errors.Is 搭配使用的哨兵错误。
var (
	ErrConfiguration = errors.New("configuration error")
	ErrEncoding      = errors.New("encoding error")
	ErrCanceled      = errors.New("render canceled")
)

func (k Kind) sentinel() error {
	switch k {
	case KindConfiguration:
		return ErrConfiguration
	case KindEncoding:
		return ErrEncoding
	case KindCanceled:
		return ErrCanceled
	default:
		return nil
	}
}

func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// RenderError 是导致整次渲染失败的错误，携带失败阶段与底层原因。
type RenderError struct {
	Kind  Kind
	Stage Stage
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("渲染失败（%s，阶段 %s）: %v", e.Kind, e.Stage, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Is 使 errors.Is(err, ErrConfiguration) 等判断成立。
func (e *RenderError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// NewError 构造 RenderError。
func NewError(kind Kind, stage Stage, err error) *RenderError {
	return &RenderError{Kind: kind, Stage: stage, Err: err}
}

// ResourceError 记录单个元素的图片解析失败；该元素被跳过，渲染继续。
type ResourceError struct {
	Index  int
	Source string
	Err    error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("元素 %d 的图片 %s 无法解析: %v", e.Index, e.Source, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
