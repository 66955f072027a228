// Package server 通过 HTTP 提供转换服务：上传表单、转换接口、健康检查与指标。
package server

import (
	"context"
	"errors"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ByLCY/boleta58/convert"
	"github.com/ByLCY/boleta58/metrics"
)

const (
	formField      = "pdf_file"
	outputFilename = "boleta_58mm.pdf"
	requestIDKey   = "request_id"
	requestIDHdr   = "X-Request-ID"
	codeRateLimit  = "RATE_001"

	msgNoFile        = "No se encontró el archivo PDF."
	msgEmptyFilename = "No se seleccionó ningún archivo."
	msgTooLarge      = "El archivo supera el tamaño máximo permitido."
	msgRateLimited   = "Demasiadas solicitudes, intente nuevamente en unos segundos."
	msgConvertPrefix = "Error al convertir: "
)

// Converter 为服务端用到的 convert.Converter 方法。
type Converter interface {
	Convert(ctx context.Context, src io.ReaderAt, size int64) convert.Result
}

type Options struct {
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
	MaxUploadBytes int64
	RateLimit      float64 // 每秒转换次数，0 表示不限流
	RateBurst      int
}

type Server struct {
	engine    *gin.Engine
	conv      Converter
	logger    *zap.Logger
	metrics   *metrics.Metrics
	limiter   *rate.Limiter
	maxUpload int64
}

func New(conv Converter, opts Options) *Server {
	s := &Server{
		conv:      conv,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		maxUpload: opts.MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.RateBurst, 1))
	}

	r := gin.New()
	r.Use(s.requestID(), s.accessLog(), gin.Recovery())
	r.SetHTMLTemplate(template.Must(template.New("index").Parse(indexHTML)))

	r.GET("/", s.index)
	r.GET("/healthz", s.health)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
	upload := r.Group("/", s.rateLimit())
	upload.POST("/", s.convertForm)
	upload.POST("/convert", s.convertAPI)

	s.engine = r
	return s
}

// Handler 以 http.Handler 形式返回 gin 引擎。
func (s *Server) Handler() http.Handler { return s.engine }

// Run 在 addr 上提供服务，ctx 取消后优雅关闭。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHdr)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHdr, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			zap.String(requestIDKey, c.GetString(requestIDKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.fail(c, http.StatusTooManyRequests, convert.NewError(convert.PhaseInput, codeRateLimit, msgRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index", gin.H{})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) convertForm(c *gin.Context) { s.handleUpload(c) }

func (s *Server) convertAPI(c *gin.Context) { s.handleUpload(c) }

// handleUpload 先校验上传内容，校验失败时不会调用转换器。
func (s *Server) handleUpload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	fh, err := c.FormFile(formField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.fail(c, http.StatusRequestEntityTooLarge, convert.NewError(convert.PhaseInput, convert.CodeUnreadable, msgTooLarge))
		case errors.Is(err, http.ErrMissingFile) && s.emptyFilePart(c):
			s.fail(c, http.StatusBadRequest, convert.NewError(convert.PhaseInput, convert.CodeEmptyFilename, msgEmptyFilename))
		default:
			s.fail(c, http.StatusBadRequest, convert.NewError(convert.PhaseInput, convert.CodeNoFile, msgNoFile))
		}
		return
	}
	if fh.Filename == "" {
		s.fail(c, http.StatusBadRequest, convert.NewError(convert.PhaseInput, convert.CodeEmptyFilename, msgEmptyFilename))
		return
	}

	f, err := fh.Open()
	if err != nil {
		s.fail(c, http.StatusBadRequest, convert.NewError(convert.PhaseInput, convert.CodeUnreadable, "no se pudo leer el archivo", err))
		return
	}
	defer f.Close()

	res := s.conv.Convert(c.Request.Context(), f, fh.Size)
	if !res.Success() {
		err := res.Err
		if err == nil {
			err = convert.NewError(convert.PhaseRender, convert.CodeRender, "documento vacío")
		}
		s.fail(c, http.StatusUnprocessableEntity, err)
		return
	}

	s.logger.Info("converted",
		zap.String(requestIDKey, c.GetString(requestIDKey)),
		zap.String("filename", fh.Filename),
		zap.Int64("size", fh.Size),
		zap.Int("items", len(res.Receipt.Items)),
	)
	c.Header("Content-Disposition", `attachment; filename="`+outputFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", res.Document)
}

// emptyFilePart 判断表单是否带了文件字段但未选择文件：
// 浏览器此时发送 filename="" 的分段，Go 会把它解析为普通表单值。
func (s *Server) emptyFilePart(c *gin.Context) bool {
	form := c.Request.MultipartForm
	if form == nil {
		return false
	}
	_, ok := form.Value[formField]
	return ok
}

// fail：浏览器提交（"/"）回显表单错误，/convert 返回 JSON。
func (s *Server) fail(c *gin.Context, status int, err error) {
	message := err.Error()
	var ce *convert.Error
	if errors.As(err, &ce) {
		message = ce.Message
		if ce.Phase != convert.PhaseInput {
			message = msgConvertPrefix + ce.Detail()
		}
	}
	s.logger.Warn("upload rejected",
		zap.String(requestIDKey, c.GetString(requestIDKey)),
		zap.Int("status", status),
		zap.String("phase", string(convert.PhaseOf(err))),
		zap.Error(err),
	)
	if c.Request.URL.Path == "/" {
		c.HTML(status, "index", gin.H{"Error": message})
		return
	}
	body := gin.H{"error": message, "request_id": c.GetString(requestIDKey)}
	if ce != nil {
		body["code"] = ce.Code
		body["phase"] = ce.Phase
	}
	c.JSON(status, body)
}

const indexHTML = `<!doctype html>
<html lang="es">
<head>
  <meta charset="utf-8">
  <title>Conversor de Boleta a 58mm</title>
</head>
<body>
  <h1>Conversor de Boleta a 58mm</h1>
  {{if .Error}}<ul style="color:red;"><li>{{.Error}}</li></ul>{{end}}
  <form method="post" action="/" enctype="multipart/form-data">
    <label for="pdf_file">Selecciona el archivo PDF de la boleta:</label><br>
    <input type="file" name="pdf_file" id="pdf_file" accept=".pdf" required><br><br>
    <button type="submit">Convertir</button>
  </form>
</body>
</html>
`
