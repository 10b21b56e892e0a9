package editor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"github.com/ByLCY/easel/scene"
)

var (
	// ErrNotInitialized 表示尚未调用 Init。
	ErrNotInitialized = errors.New("画布尚未初始化")
	// ErrNoElement 表示元素下标越界。
	ErrNoElement = errors.New("元素不存在")
	// ErrWrongKind 表示对不支持该操作的元素类型进行了修改。
	ErrWrongKind = errors.New("元素类型不支持该操作")
)

// Session 持有一个可编辑的场景。所有方法都可以并发调用；渲染方通过 Snapshot
// 取得深拷贝，之后的编辑不会影响已经取出的快照。
type Session struct {
	mu     sync.Mutex
	scene  *scene.Scene
	logger hclog.Logger
}

// NewSession 创建一个未初始化的会话。
func NewSession(logger hclog.Logger) *Session {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Session{logger: logger.Named("editor")}
}

// Init 以给定页面尺寸重置场景，已有元素会被丢弃。
func (s *Session) Init(width, height float64) error {
	if err := scene.ValidatePage(width, height); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scene = &scene.Scene{Width: width, Height: height}
	s.logger.Debug("画布已初始化", "width", width, "height", height)
	return nil
}

// Initialized 报告是否已经调用过 Init。
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene != nil
}

// Add 校验并追加元素的副本，返回其下标。
func (s *Session) Add(el scene.Element) (int, error) {
	if err := scene.ValidateElement(el); err != nil {
		return -1, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return -1, ErrNotInitialized
	}
	s.scene.Elements = append(s.scene.Elements, scene.CloneElement(el))
	index := len(s.scene.Elements) - 1
	s.logger.Debug("添加元素", "kind", el.Kind(), "index", index)
	return index, nil
}

func (s *Session) AddRectangle(r scene.Rectangle) (int, error) { return s.Add(&r) }

func (s *Session) AddCircle(c scene.Circle) (int, error) { return s.Add(&c) }

func (s *Session) AddText(t scene.Text) (int, error) { return s.Add(&t) }

func (s *Session) AddImage(img scene.Image) (int, error) { return s.Add(&img) }

// UpdatePosition 移动元素。圆的 (x, y) 为圆心，其余元素为左上角。
func (s *Session) UpdatePosition(index int, x, y float64) error {
	return s.update(index, func(el scene.Element) error {
		switch e := el.(type) {
		case *scene.Rectangle:
			e.X, e.Y = x, y
		case *scene.Circle:
			e.CX, e.CY = x, y
		case *scene.Text:
			e.X, e.Y = x, y
		case *scene.Image:
			e.X, e.Y = x, y
		}
		return nil
	})
}

// UpdateText 替换文本元素的内容。
func (s *Session) UpdateText(index int, content string) error {
	return s.update(index, func(el scene.Element) error {
		t, ok := el.(*scene.Text)
		if !ok {
			return fmt.Errorf("%w: %s", ErrWrongKind, el.Kind())
		}
		t.Content = content
		return nil
	})
}

// UpdateSize 调整元素尺寸。圆以 width 为直径；文本以 width 为折行宽度，
// height > 0 时同时作为字号。
func (s *Session) UpdateSize(index int, width, height float64) error {
	if width < 0 || height < 0 {
		return fmt.Errorf("宽高不能为负数: %gx%g", width, height)
	}
	return s.update(index, func(el scene.Element) error {
		switch e := el.(type) {
		case *scene.Rectangle:
			e.Width, e.Height = width, height
		case *scene.Circle:
			e.Radius = width / 2
		case *scene.Text:
			e.MaxWidth = width
			if height > 0 {
				e.FontSize = height
			}
		case *scene.Image:
			e.Width, e.Height = width, height
		}
		return nil
	})
}

// update 在锁内对副本执行 fn，成功后才替换原元素。
func (s *Session) update(index int, fn func(scene.Element) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return ErrNotInitialized
	}
	if index < 0 || index >= len(s.scene.Elements) {
		return fmt.Errorf("%w: %d", ErrNoElement, index)
	}
	el := scene.CloneElement(s.scene.Elements[index])
	if err := fn(el); err != nil {
		return err
	}
	if err := scene.ValidateElement(el); err != nil {
		return err
	}
	s.scene.Elements[index] = el
	return nil
}

// Snapshot 返回当前场景的深拷贝。
func (s *Session) Snapshot() (*scene.Scene, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == nil {
		return nil, ErrNotInitialized
	}
	return s.scene.Clone(), nil
}

// Len 返回元素数量，未初始化时为 0。
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene.Len()
}
