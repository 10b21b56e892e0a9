package scene

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSceneJSONRoundTrip(t *testing.T) {
	s := sampleScene()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal 失败: %v", err)
	}
	got, err := Decode(strings.NewReader(string(data)))
	if err != nil {
		t.Fatalf("decode 失败: %v", err)
	}
	if diff := cmp.Diff(s, got); diff != "" {
		t.Fatalf("往返结果不一致 (-want +got):\n%s", diff)
	}
}

func TestDecodeAPIPayloadShapes(t *testing.T) {
	payload := `{
  "width": 200, "height": 100,
  "elements": [
    {"type": "rect", "x": 0, "y": 0, "width": 10, "height": 10, "color": "#00ff00"},
    {"type": "text", "x": 1, "y": 2, "text": "hello", "font": "Helvetica-Bold", "fontSize": 18},
    {"type": "image", "x": 5, "y": 5, "imageUrl": "https://example.com/p.jpg"},
    {"type": "image", "x": 5, "y": 5, "width": 20, "data": "data:image/gif;base64,R0lG"}
  ]
}`
	s, err := Decode(strings.NewReader(payload))
	if err != nil {
		t.Fatalf("decode 失败: %v", err)
	}
	want := &Scene{Width: 200, Height: 100, Elements: []Element{
		&Rectangle{Width: 10, Height: 10, Fill: RGB(0, 255, 0)},
		&Text{X: 1, Y: 2, Content: "hello", FontFamily: "Helvetica-Bold", FontSize: 18},
		&Image{X: 5, Y: 5, Source: &RemoteSource{URL: "https://example.com/p.jpg"}},
		&Image{X: 5, Y: 5, Width: 20, Source: &InlineSource{Data: []byte("GIF"), MediaType: "image/gif"}},
	}}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Fatalf("解析结果不一致 (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsBadElements(t *testing.T) {
	for _, payload := range []string{
		`{"width":1,"height":1,"elements":[{"x":1}]}`,
		`{"width":1,"height":1,"elements":[{"type":"triangle"}]}`,
		`{"width":1,"height":1,"elements":[{"type":"image","x":1}]}`,
		`{"width":1,"height":1,"elements":[{"type":"rect","color":"blurple"}]}`,
		`{"width":1,"height":1,"elements":[{"type":"image","data":"!!!"}]}`,
	} {
		if _, err := Decode(strings.NewReader(payload)); err == nil {
			t.Fatalf("期望解析失败: %s", payload)
		}
	}
}

func TestParseInline(t *testing.T) {
	src, err := ParseInline("aGVs\nbG8=", "image/png")
	if err != nil {
		t.Fatalf("ParseInline 失败: %v", err)
	}
	if string(src.Data) != "hello" || src.MediaType != "image/png" {
		t.Fatalf("ParseInline = %+v", src)
	}
	src, err = ParseInline("data:image/svg+xml,%3Csvg%3E", "image/png")
	if err != nil {
		t.Fatalf("ParseInline 失败: %v", err)
	}
	if string(src.Data) != "<svg>" || src.MediaType != "image/svg+xml" {
		t.Fatalf("ParseInline = %+v", src)
	}
	if _, err := ParseInline("data:image/png;base64", ""); err == nil {
		t.Fatalf("缺少逗号应报错")
	}
}
