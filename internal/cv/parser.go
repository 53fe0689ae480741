// Package cv extracts text and structured fields from résumé files.
package cv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
	"github.com/ternarybob/peto/internal/models"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\s\-()]{7,}\d`)
)

// Parser extracts text from PDF, DOCX and TXT résumés and memoises parsed
// records by absolute path for the process lifetime.
type Parser struct {
	config   *common.CVConfig
	provider interfaces.LLMProvider // Optional enrichment; nil disables
	logger   arbor.ILogger

	mu    sync.Mutex
	cache map[string]*models.CVRecord
}

// NewParser creates a parser. provider may be nil.
func NewParser(config *common.CVConfig, provider interfaces.LLMProvider, logger arbor.ILogger) *Parser {
	return &Parser{
		config:   config,
		provider: provider,
		logger:   logger,
		cache:    make(map[string]*models.CVRecord),
	}
}

// PrepareCV resolves the path, parses the file (or returns the cached record)
// and returns both.
func (p *Parser) PrepareCV(ctx context.Context, path string) (string, *models.CVRecord, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("resolving cv path: %w", err)
	}

	p.mu.Lock()
	if cached, ok := p.cache[absPath]; ok {
		p.mu.Unlock()
		p.logger.Debug().Str("path", absPath).Msg("CV served from cache")
		return absPath, cached, nil
	}
	p.mu.Unlock()

	record, err := p.ParseCV(ctx, absPath)
	if err != nil {
		return "", nil, err
	}

	p.mu.Lock()
	p.cache[absPath] = record
	p.mu.Unlock()

	return absPath, record, nil
}

// ParseCV extracts the raw text and derives structured fields. The optional
// LLM step only augments fields and never overrides raw_text or filename.
func (p *Parser) ParseCV(ctx context.Context, path string) (*models.CVRecord, error) {
	text, err := p.ExtractText(ctx, path)
	if err != nil {
		return nil, err
	}

	record := &models.CVRecord{
		RawText:  text,
		Filename: filepath.Base(path),
	}
	if email := emailPattern.FindString(text); email != "" {
		record.Email = email
	}
	if phone := phonePattern.FindString(text); phone != "" {
		record.Phone = strings.TrimSpace(phone)
	}

	if p.provider != nil {
		p.enrich(ctx, record)
	}

	p.logger.Info().
		Str("filename", record.Filename).
		Int("text_length", len(record.RawText)).
		Msg("CV parsed")
	return record, nil
}

// ExtractText reads the file and extracts plain text according to its format.
func (p *Parser) ExtractText(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", common.ErrFileUnreadable, path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !p.accepted(ext) {
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, ext)
	}

	switch ext {
	case ".pdf":
		return p.extractPDF(ctx, path)
	case ".docx":
		return extractDOCX(path)
	case ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, ext)
	}
}

// ValidateForUpload enforces the upload contract: accepted format, existing,
// non-empty, readable, and size at most the configured limit (the boundary
// itself is accepted). PDFs additionally pass a structural check.
func (p *Parser) ValidateForUpload(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", common.ErrFileNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !p.accepted(ext) {
		return fmt.Errorf("%w: %s", common.ErrUnsupportedFormat, ext)
	}

	maxBytes := p.config.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = common.DefaultMaxUploadBytes
	}
	if info.Size() > maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", common.ErrFileTooLarge, info.Size(), maxBytes)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", common.ErrFileUnreadable, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
	}
	f.Close()

	// Content sniffing catches files whose extension lies about the format.
	detected, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
	}
	if ext == ".pdf" {
		if !detected.Is("application/pdf") {
			return fmt.Errorf("%w: %s does not contain PDF data", common.ErrUnsupportedFormat, path)
		}
		if err := validatePDF(path); err != nil {
			return fmt.Errorf("%w: %s: %v", common.ErrUnsupportedFormat, path, err)
		}
	}

	return nil
}

func (p *Parser) accepted(ext string) bool {
	formats := p.config.AcceptedFormats
	if len(formats) == 0 {
		formats = []string{".pdf", ".docx", ".txt"}
	}
	for _, f := range formats {
		if strings.EqualFold(f, ext) {
			return true
		}
	}
	return false
}

// enrich asks the provider for structured fields. Failures are tolerated and
// the record is returned as-is; RawText and Filename are never replaced.
func (p *Parser) enrich(ctx context.Context, record *models.CVRecord) {
	prompt := fmt.Sprintf(
		"Extract the candidate's name and up to ten skills from this résumé text. "+
			"Answer as two lines: 'name: <name>' and 'skills: <comma separated>'.\n\n%s",
		truncate(record.RawText, 6000))

	text, err := p.provider.GenerateContent(ctx, &interfaces.CompletionRequest{
		Messages:  []interfaces.Message{{Role: "user", Content: prompt}},
		MaxTokens: 256,
	})
	if err != nil {
		p.logger.Warn().Err(err).Msg("CV enrichment unavailable")
		return
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(strings.ToLower(line), "name:") && record.Name == "":
			record.Name = strings.TrimSpace(line[len("name:"):])
		case strings.HasPrefix(strings.ToLower(line), "skills:") && len(record.Skills) == 0:
			for _, skill := range strings.Split(line[len("skills:"):], ",") {
				if s := strings.TrimSpace(skill); s != "" {
					record.Skills = append(record.Skills, s)
				}
			}
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
