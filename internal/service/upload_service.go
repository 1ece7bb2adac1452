package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"city-inspect-be/internal/dto"
	"city-inspect-be/internal/pkg/imaging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// IUploadService stores inspection photos and hands back both a static
// URL and the inline data URI the analyze endpoints accept.
type IUploadService interface {
	SaveImage(filename string, data []byte) (*dto.UploadResponse, error)
}

type uploadService struct {
	uploadDir string
	baseURL   string
}

func NewUploadService(uploadDir string, baseURL string) IUploadService {
	return &uploadService{
		uploadDir: uploadDir,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *uploadService) SaveImage(filename string, data []byte) (*dto.UploadResponse, error) {
	if !imaging.AllowedExtension(filename) {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported image type %q", filepath.Ext(filename)))
	}

	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(s.uploadDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	mime, err := imaging.MimeType(name)
	if err != nil {
		return nil, err
	}

	return &dto.UploadResponse{
		Filename: name,
		URL:      s.baseURL + "/uploads/" + name,
		DataURI:  imaging.EncodeDataURI(mime, data),
	}, nil
}
