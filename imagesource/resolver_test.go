package imagesource

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ByLCY/easel/scene"
)

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeInline(t *testing.T) {
	data := pngBytes(t, 3, 2, color.NRGBA{R: 255, A: 255})
	img, err := DecodeInline(&scene.InlineSource{Data: data, MediaType: "image/png"})
	if err != nil {
		t.Fatalf("DecodeInline: %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 3, Y: 2}) {
		t.Fatalf("unexpected size %v", got)
	}
}

func TestDecodeInlineRejectsGarbage(t *testing.T) {
	_, err := DecodeInline(&scene.InlineSource{Data: []byte("not an image")})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
	_, err = DecodeInline(&scene.InlineSource{Data: pngBytes(t, 1, 1, color.Black), MediaType: "application/pdf"})
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected media type rejection, got %v", err)
	}
}

func TestResolveRemote(t *testing.T) {
	data := pngBytes(t, 4, 4, color.NRGBA{B: 255, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ok.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	res := New(Options{Client: srv.Client(), Timeout: time.Second})
	img, err := res.Resolve(context.Background(), &scene.RemoteSource{URL: srv.URL + "/ok.png"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Fatalf("unexpected width %d", img.Bounds().Dx())
	}

	_, err = res.Resolve(context.Background(), &scene.RemoteSource{URL: srv.URL + "/missing.png"})
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch for 404, got %v", err)
	}
}

func TestResolveRemoteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	res := New(Options{Client: srv.Client(), Timeout: 50 * time.Millisecond})
	start := time.Now()
	_, err := res.Resolve(context.Background(), &scene.RemoteSource{URL: srv.URL})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout not bounded: %s", elapsed)
	}
}

func TestResolveRemoteSizeLimit(t *testing.T) {
	data := pngBytes(t, 16, 16, color.White)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	res := New(Options{Client: srv.Client(), MaxBytes: 8})
	if _, err := res.Resolve(context.Background(), &scene.RemoteSource{URL: srv.URL}); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected size limit error, got %v", err)
	}
}

func TestPrefetchBuffersByIndex(t *testing.T) {
	small := pngBytes(t, 1, 1, color.White)
	large := pngBytes(t, 2, 2, color.White)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/slow":
			time.Sleep(50 * time.Millisecond)
			w.Write(large)
		case "/fast":
			w.Write(small)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	elements := []scene.Element{
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/slow"}},
		&scene.Rectangle{Width: 1, Height: 1},
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/fast"}},
		&scene.Image{Source: &scene.InlineSource{Data: small}},
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/gone"}},
	}

	res := New(Options{Client: srv.Client(), Timeout: time.Second})
	batch := res.Prefetch(context.Background(), elements, 2)
	defer batch.Close()

	if batch.Has(1) || batch.Has(3) {
		t.Fatalf("only remote images should be prefetched")
	}
	first, err := batch.Wait(context.Background(), 0)
	if err != nil || first.Bounds().Dx() != 2 {
		t.Fatalf("slot 0: img=%v err=%v", first, err)
	}
	third, err := batch.Wait(context.Background(), 2)
	if err != nil || third.Bounds().Dx() != 1 {
		t.Fatalf("slot 2: img=%v err=%v", third, err)
	}
	if _, err := batch.Wait(context.Background(), 4); !errors.Is(err, ErrFetch) {
		t.Fatalf("slot 4: expected ErrFetch, got %v", err)
	}
	if got := hits.Load(); got != 3 {
		t.Fatalf("expected 3 fetches, got %d", got)
	}
}

func TestPrefetchCloseCancelsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	elements := []scene.Element{
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/a"}},
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/b"}},
		&scene.Image{Source: &scene.RemoteSource{URL: srv.URL + "/c"}},
	}
	res := New(Options{Client: srv.Client(), Timeout: time.Minute})
	batch := res.Prefetch(context.Background(), elements, 1)

	done := make(chan struct{})
	go func() {
		batch.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not release in-flight fetches")
	}
}
