package service

import (
	"context"
	"fmt"

	"docchat-be/internal/dto"
)

// ArtifactGenerator renders a generated answer into a downloadable document.
// Rendering backends (pdf, pptx, xlsx) are provided by deployment; the
// pipeline only consumes this contract.
type ArtifactGenerator interface {
	Generate(ctx context.Context, format, fileName, content string) (*dto.DocumentDTO, error)
}

// unconfiguredArtifactGenerator is the default when no renderer is wired.
// Document requests still answer normally and report a document_error event.
type unconfiguredArtifactGenerator struct{}

func NewUnconfiguredArtifactGenerator() ArtifactGenerator {
	return &unconfiguredArtifactGenerator{}
}

func (g *unconfiguredArtifactGenerator) Generate(ctx context.Context, format, fileName, content string) (*dto.DocumentDTO, error) {
	return nil, fmt.Errorf("no artifact renderer configured for format %s", format)
}
