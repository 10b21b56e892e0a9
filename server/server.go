// Package server exposes an editor session over HTTP: elements are added and
// modified through /api/canvas, and /api/export/pdf renders the current
// snapshot as a PDF attachment.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ByLCY/easel/editor"
	"github.com/ByLCY/easel/renderer"
	"github.com/ByLCY/easel/scene"
)

// Defaults applied by New.
const (
	DefaultAddr           = ":5000"
	DefaultMaxUploadBytes = 10 << 20
	canvasID              = "canvas_1"
	exportFilename        = "canvas.pdf"
)

// Options configures a Server.
type Options struct {
	Renderer renderer.Renderer
	Session  *editor.Session
	Logger   hclog.Logger
	// MaxUploadBytes bounds request bodies, including multipart image uploads.
	MaxUploadBytes int64
}

// Server handles HTTP API requests.
type Server struct {
	renderer renderer.Renderer
	session  *editor.Session
	logger   hclog.Logger
	maxBytes int64
	mux      *http.ServeMux
}

// New creates a server and registers its routes.
func New(opts Options) (*Server, error) {
	if opts.Renderer == nil {
		return nil, fmt.Errorf("renderer 不能为空")
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Session == nil {
		opts.Session = editor.NewSession(opts.Logger)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUploadBytes
	}
	s := &Server{
		renderer: opts.Renderer,
		session:  opts.Session,
		logger:   opts.Logger.Named("server"),
		maxBytes: opts.MaxUploadBytes,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("POST /api/canvas/init", s.handleInit)
	s.mux.HandleFunc("POST /api/canvas/rectangle", s.handleAddRectangle)
	s.mux.HandleFunc("POST /api/canvas/circle", s.handleAddCircle)
	s.mux.HandleFunc("POST /api/canvas/text", s.handleAddText)
	s.mux.HandleFunc("POST /api/canvas/image", s.handleAddImage)
	s.mux.HandleFunc("PUT /api/canvas/element/{id}/position", s.handleUpdatePosition)
	s.mux.HandleFunc("PUT /api/canvas/element/{id}/text", s.handleUpdateText)
	s.mux.HandleFunc("PUT /api/canvas/element/{id}/size", s.handleUpdateSize)
	s.mux.HandleFunc("GET /api/export/pdf", s.handleExportPDF)
}

// Handler returns the routed handler wrapped with CORS and request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(cors(s.mux))
}

// ListenAndServe serves the API on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("服务已启动", "addr", addr)
	return srv.ListenAndServe()
}

type response struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	CanvasID string `json:"canvasId,omitempty"`
	Index    *int   `json:"index,omitempty"`
}

type initRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handleInit handles POST /api/canvas/init
func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.session.Init(req.Width, req.Height); err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, CanvasID: canvasID})
}

// handleAddRectangle handles POST /api/canvas/rectangle
func (s *Server) handleAddRectangle(w http.ResponseWriter, r *http.Request) {
	var rect scene.Rectangle
	if !s.decode(w, r, &rect) {
		return
	}
	s.respondAdded(w, &rect)
}

// handleAddCircle handles POST /api/canvas/circle
func (s *Server) handleAddCircle(w http.ResponseWriter, r *http.Request) {
	var c scene.Circle
	if !s.decode(w, r, &c) {
		return
	}
	s.respondAdded(w, &c)
}

// handleAddText handles POST /api/canvas/text
func (s *Server) handleAddText(w http.ResponseWriter, r *http.Request) {
	var t scene.Text
	if !s.decode(w, r, &t) {
		return
	}
	s.respondAdded(w, &t)
}

type imageRequest struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	ImageURL  string  `json:"imageUrl"`
	Data      string  `json:"data"`
	MediaType string  `json:"mediaType"`
}

// handleAddImage handles POST /api/canvas/image. The image is either uploaded
// as the multipart file field "image" or referenced by imageUrl.
func (s *Server) handleAddImage(w http.ResponseWriter, r *http.Request) {
	if !s.session.Initialized() {
		s.respondError(w, editor.ErrNotInitialized)
		return
	}
	var (
		img     *scene.Image
		message string
		err     error
	)
	if isMultipart(r) {
		img, err = s.parseImageUpload(w, r)
	} else {
		var req imageRequest
		if !s.decode(w, r, &req) {
			return
		}
		img, err = req.image()
	}
	if err != nil {
		respondJSON(w, http.StatusBadRequest, response{Message: err.Error()})
		return
	}
	if _, ok := img.Source.(*scene.InlineSource); ok {
		message = "Image uploaded via file"
	} else {
		message = "Image added via URL"
	}
	index, err := s.session.AddImage(*img)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, Message: message, Index: &index})
}

var errNoImage = errors.New("No image provided")

func (req imageRequest) image() (*scene.Image, error) {
	img := &scene.Image{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	switch {
	case req.Data != "":
		src, err := scene.ParseInline(req.Data, req.MediaType)
		if err != nil {
			return nil, err
		}
		img.Source = src
	case req.ImageURL != "":
		img.Source = &scene.RemoteSource{URL: req.ImageURL}
	default:
		return nil, errNoImage
	}
	return img, nil
}

func (s *Server) parseImageUpload(w http.ResponseWriter, r *http.Request) (*scene.Image, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := r.ParseMultipartForm(s.maxBytes); err != nil {
		return nil, fmt.Errorf("解析上传表单失败: %w", err)
	}
	req := imageRequest{ImageURL: strings.TrimSpace(r.FormValue("imageUrl"))}
	for name, dst := range map[string]*float64{"x": &req.X, "y": &req.Y, "width": &req.Width, "height": &req.Height} {
		v := strings.TrimSpace(r.FormValue(name))
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("字段 %s 不是数字: %q", name, v)
		}
		*dst = f
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return req.image()
	}
	if err != nil {
		return nil, fmt.Errorf("读取上传图片失败: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取上传图片失败: %w", err)
	}
	if len(data) == 0 {
		return nil, errNoImage
	}
	mediaType := header.Header.Get("Content-Type")
	if mediaType == "application/octet-stream" {
		mediaType = ""
	}
	return &scene.Image{
		X: req.X, Y: req.Y, Width: req.Width, Height: req.Height,
		Source: &scene.InlineSource{Data: data, MediaType: mediaType},
	}, nil
}

type positionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type textRequest struct {
	Text string `json:"text"`
}

type sizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// handleUpdatePosition handles PUT /api/canvas/element/{id}/position
func (s *Server) handleUpdatePosition(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	var req positionRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondUpdated(w, s.session.UpdatePosition(id, req.X, req.Y))
}

// handleUpdateText handles PUT /api/canvas/element/{id}/text
func (s *Server) handleUpdateText(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondUpdated(w, s.session.UpdateText(id, req.Text))
}

// handleUpdateSize handles PUT /api/canvas/element/{id}/size
func (s *Server) handleUpdateSize(w http.ResponseWriter, r *http.Request) {
	id, ok := elementID(w, r)
	if !ok {
		return
	}
	var req sizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.respondUpdated(w, s.session.UpdateSize(id, req.Width, req.Height))
}

// handleExportPDF handles GET /api/export/pdf
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	snap, err := s.session.Snapshot()
	if err != nil {
		s.respondError(w, err)
		return
	}
	doc, err := s.renderer.Render(r.Context(), snap)
	if err != nil {
		s.respondError(w, err)
		return
	}
	for _, skipped := range doc.Report.Skipped {
		s.logger.Warn("导出时跳过元素", "index", skipped.Index, "source", skipped.Source, "error", skipped.Err)
	}
	w.Header().Set("Content-Type", doc.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exportFilename}))
	w.Header().Set("Content-Length", strconv.Itoa(doc.Len()))
	w.Header().Set("X-Skipped-Elements", strconv.Itoa(doc.Report.SkippedCount()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes); err != nil {
		s.logger.Debug("写出 PDF 失败", "error", err)
	}
}

func (s *Server) respondAdded(w http.ResponseWriter, el scene.Element) {
	index, err := s.session.Add(el)
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true, Index: &index})
}

func (s *Server) respondUpdated(w http.ResponseWriter, err error) {
	if err != nil {
		s.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, response{Success: true})
}

// respondError maps session and render errors onto HTTP statuses.
func (s *Server) respondError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	message := err.Error()
	switch {
	case errors.Is(err, editor.ErrNotInitialized):
		message = "Canvas not initialized"
	case errors.Is(err, editor.ErrNoElement):
		status = http.StatusNotFound
	case errors.Is(err, renderer.ErrCanceled):
		status = http.StatusServiceUnavailable
	case errors.Is(err, renderer.ErrEncoding):
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("请求失败", "error", err)
	}
	respondJSON(w, status, response{Message: message})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, s.maxBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, response{Message: fmt.Sprintf("请求体无效: %v", err)})
		return false
	}
	return true
}

func elementID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, response{Message: fmt.Sprintf("无效的元素 id: %q", r.PathValue("id"))})
		return 0, false
	}
	return id, true
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
