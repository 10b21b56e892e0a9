package scene

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// 场景的 JSON 形式：
//
//	{"width": 400, "height": 300, "elements": [{"type": "rectangle", "x": 0, ...}]}
//
// 图片元素使用 imageUrl 指向远程图片，或使用 data 携带 base64 / data URI 形式的内联数据。

type sceneJSON struct {
	Width    float64           `json:"width"`
	Height   float64           `json:"height"`
	Elements []json.RawMessage `json:"elements"`
}

type imageJSON struct {
	Type      Kind    `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Data      string  `json:"data,omitempty"`
	MediaType string  `json:"mediaType,omitempty"`
}

// Decode 从 JSON 读取场景。
func Decode(r io.Reader) (*Scene, error) {
	var s Scene
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("解析场景 JSON 失败: %w", err)
	}
	return &s, nil
}

// MarshalJSON 为每个元素附加 type 字段。
func (s Scene) MarshalJSON() ([]byte, error) {
	out := sceneJSON{Width: s.Width, Height: s.Height, Elements: make([]json.RawMessage, 0, len(s.Elements))}
	for i, el := range s.Elements {
		data, err := MarshalElement(el)
		if err != nil {
			return nil, fmt.Errorf("元素 %d: %w", i, err)
		}
		out.Elements = append(out.Elements, data)
	}
	return json.Marshal(out)
}

// UnmarshalJSON 根据 type 字段还原具体的元素类型。
func (s *Scene) UnmarshalJSON(data []byte) error {
	var in sceneJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Width, s.Height = in.Width, in.Height
	s.Elements = make([]Element, 0, len(in.Elements))
	for i, raw := range in.Elements {
		el, err := UnmarshalElement(raw)
		if err != nil {
			return fmt.Errorf("元素 %d: %w", i, err)
		}
		s.Elements = append(s.Elements, el)
	}
	return nil
}

// MarshalElement 输出带 type 字段的元素 JSON。
func MarshalElement(el Element) ([]byte, error) {
	switch e := el.(type) {
	case *Rectangle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Rectangle
		}{KindRectangle, e})
	case *Circle:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Circle
		}{KindCircle, e})
	case *Text:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*Text
		}{KindText, e})
	case *Image:
		out := imageJSON{Type: KindImage, X: e.X, Y: e.Y, Width: e.Width, Height: e.Height}
		switch src := e.Source.(type) {
		case *RemoteSource:
			out.ImageURL = src.URL
		case *InlineSource:
			out.Data = base64.StdEncoding.EncodeToString(src.Data)
			out.MediaType = src.MediaType
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("未知的元素类型 %T", el)
	}
}

// UnmarshalElement 解析单个带 type 字段的元素。
func UnmarshalElement(data []byte) (Element, error) {
	var head struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch Kind(strings.ToLower(string(head.Type))) {
	case KindRectangle, "rect":
		var r Rectangle
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, err
		}
		return &r, nil
	case KindCircle:
		var c Circle
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, err
		}
		return &c, nil
	case KindText:
		var t Text
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, err
		}
		return &t, nil
	case KindImage:
		var in imageJSON
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, err
		}
		img := &Image{X: in.X, Y: in.Y, Width: in.Width, Height: in.Height}
		switch {
		case in.Data != "":
			src, err := ParseInline(in.Data, in.MediaType)
			if err != nil {
				return nil, err
			}
			img.Source = src
		case in.ImageURL != "":
			img.Source = &RemoteSource{URL: in.ImageURL}
		default:
			return nil, fmt.Errorf("图片元素需要 imageUrl 或 data")
		}
		return img, nil
	case "":
		return nil, fmt.Errorf("缺少 type 字段")
	default:
		return nil, fmt.Errorf("未知的元素类型 %q", head.Type)
	}
}

// ParseInline 将 base64 文本或 data URI 解码为内联图片来源。
// data URI 中声明的媒体类型优先于 mediaType 参数。
func ParseInline(payload, mediaType string) (*InlineSource, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		return parseDataURI(payload)
	}
	raw, err := decodeBase64(payload)
	if err != nil {
		return nil, fmt.Errorf("内联图片 base64 解码失败: %w", err)
	}
	return &InlineSource{Data: raw, MediaType: mediaType}, nil
}

func parseDataURI(uri string) (*InlineSource, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("data URI 缺少逗号分隔符")
	}
	meta := strings.TrimPrefix(uri[:comma], "data:")
	body := uri[comma+1:]
	isBase64 := false
	if strings.HasSuffix(meta, ";base64") {
		isBase64 = true
		meta = strings.TrimSuffix(meta, ";base64")
	}
	mediaType := meta
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	var raw []byte
	if isBase64 {
		b, err := decodeBase64(body)
		if err != nil {
			return nil, fmt.Errorf("data URI base64 解码失败: %w", err)
		}
		raw = b
	} else {
		s, err := url.PathUnescape(body)
		if err != nil {
			return nil, fmt.Errorf("data URI 解码失败: %w", err)
		}
		raw = []byte(s)
	}
	return &InlineSource{Data: raw, MediaType: mediaType}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == ' ' || r == '\t' {
			return -1
		}
		return r
	}, s)
	if b, err := base64.StdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
}
