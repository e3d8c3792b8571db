package plaintext

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/mirceapaciu/econ-assistant/internal/core/ports"
)

type Extractor struct {
	files ports.FileStore
}

func NewExtractor(files ports.FileStore) *Extractor {
	return &Extractor{files: files}
}

func (e *Extractor) Extract(ctx context.Context, fileName string) (string, error) {
	reader, err := e.files.Open(ctx, fileName)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}

	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid utf-8 text: %s", fileName)
	}

	return strings.TrimSpace(string(raw)), nil
}
