package scene

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidPage 表示页面尺寸不是正数。
var ErrInvalidPage = errors.New("页面尺寸必须为正数")

// ValidatePage 检查页面尺寸。渲染器在分配画布之前调用它。
func ValidatePage(width, height float64) error {
	if !(width > 0) || !(height > 0) || math.IsInf(width, 0) || math.IsInf(height, 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidPage, width, height)
	}
	return nil
}

// Validate 是变更层在边界处执行的结构检查：页面为正数、尺寸非负、图片来源非空。
// 渲染器本身不依赖这些检查，越界的元素只会被裁剪或跳过。
func (s *Scene) Validate() error {
	if s == nil {
		return fmt.Errorf("场景为空")
	}
	if err := ValidatePage(s.Width, s.Height); err != nil {
		return err
	}
	var errs []error
	for i, el := range s.Elements {
		if err := ValidateElement(el); err != nil {
			errs = append(errs, fmt.Errorf("元素 %d (%s): %w", i, kindOf(el), err))
		}
	}
	return errors.Join(errs...)
}

// ValidateElement 检查单个元素的结构约束，供编辑会话在插入前调用。
func ValidateElement(el Element) error {
	switch e := el.(type) {
	case nil:
		return fmt.Errorf("元素为空")
	case *Rectangle:
		if e.Width < 0 || e.Height < 0 {
			return fmt.Errorf("宽高不能为负数")
		}
	case *Circle:
		if e.Radius < 0 {
			return fmt.Errorf("半径不能为负数")
		}
	case *Text:
		if e.FontSize < 0 {
			return fmt.Errorf("字号不能为负数")
		}
		if e.MaxWidth < 0 {
			return fmt.Errorf("文本宽度不能为负数")
		}
		switch e.Align {
		case "", AlignLeft, AlignCenter, AlignRight:
		default:
			return fmt.Errorf("未知的对齐方式 %q", e.Align)
		}
	case *Image:
		if e.Width < 0 || e.Height < 0 {
			return fmt.Errorf("宽高不能为负数")
		}
		switch src := e.Source.(type) {
		case *InlineSource:
			if len(src.Data) == 0 {
				return fmt.Errorf("内联图片数据为空")
			}
		case *RemoteSource:
			if src.URL == "" {
				return fmt.Errorf("图片 URL 为空")
			}
		default:
			return fmt.Errorf("缺少图片来源")
		}
	}
	return nil
}

func kindOf(el Element) Kind {
	if el == nil {
		return "nil"
	}
	return el.Kind()
}
