package main

import (
	"bytes"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/bgcut/bgcut"
	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const maxUploadSize = 32 << 20

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type server struct {
	pipeline *bgcut.Pipeline
	registry *bgcut.Registry
	cfg      bgcut.Config
}

func main() {
	_ = godotenv.Load()

	modelPath := os.Getenv("BGCUT_MODEL")
	if modelPath == "" {
		modelPath = "./models/u2netp.onnx"
	}
	addr := os.Getenv("BGCUT_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	registry := bgcut.NewRegistry()
	cache := bgcut.NewSessionCache()
	engine := bgcut.NewEngine(bgcut.U2NetP(), registry, cache)

	s := &server{
		pipeline: bgcut.NewPipeline(engine),
		registry: registry,
		cfg:      bgcut.DefaultConfig(modelPath),
	}

	r := gin.Default()
	r.MaxMultipartMemory = maxUploadSize

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/v1/providers", s.providers)
	r.POST("/v1/cutout", s.cutout)

	logrus.WithField("addr", addr).Info("bgcut server listening")
	if err := r.Run(addr); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

func (s *server) providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"providers":   s.registry.Describe(),
		"recommended": s.registry.Recommend(),
	})
}

func (s *server) cutout(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "an image file is required",
			Error:   err.Error(),
		})
		return
	}
	if file.Size > maxUploadSize {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "file exceeds the upload size limit",
		})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "could not read the uploaded file",
			Error:   err.Error(),
		})
		return
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "unsupported or corrupt image",
			Error:   err.Error(),
		})
		return
	}

	cfg := s.requestConfig(c)
	out, err := s.pipeline.Process(img, cfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, bgcut.ErrInvalidImage) {
			status = http.StatusBadRequest
		} else if errors.Is(err, bgcut.ErrModelNotFound) {
			status = http.StatusServiceUnavailable
		}
		logrus.WithError(err).Error("cutout failed")
		c.JSON(status, errorResponse{
			Message: "background removal failed",
			Error:   err.Error(),
		})
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{
			Message: "could not encode the result",
			Error:   err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// requestConfig applies per-request overrides on top of the server defaults.
func (s *server) requestConfig(c *gin.Context) bgcut.Config {
	cfg := s.cfg

	switch c.Query("mode") {
	case "blur":
		cfg.Output = bgcut.OutputBlurBackground
	case "white":
		cfg.Output = bgcut.OutputColorBackground
	case "mask":
		cfg.Output = bgcut.OutputMaskGrayscale
	default:
		cfg.Output = bgcut.OutputCutout
	}

	if v := c.Query("threshold"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil && t >= 0 && t <= 1 {
			cfg.Threshold = bgcut.Float32(float32(t))
		}
	}
	if c.Query("crop") == "true" {
		cfg.AutoCrop = true
	}
	if v := c.Query("provider"); v != "" {
		cfg.Provider = bgcut.Provider(v)
	}
	return cfg
}
