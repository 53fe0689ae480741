package cv

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

func newTestParser(t *testing.T, provider interfaces.LLMProvider) *Parser {
	t.Helper()
	config := &common.CVConfig{
		AcceptedFormats: []string{".pdf", ".docx", ".txt"},
		MaxUploadBytes:  1024,
	}
	return NewParser(config, provider, common.GetLogger())
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeTempDOCX(t *testing.T, documentXML string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resume.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entry, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestExtractText_PlainText(t *testing.T) {
	parser := newTestParser(t, nil)
	path := writeTempFile(t, "resume.txt", "Jane Doe\njane@example.com\n+61 400 123 456")

	text, err := parser.ExtractText(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
}

func TestExtractText_MissingFile(t *testing.T) {
	parser := newTestParser(t, nil)
	_, err := parser.ExtractText(context.Background(), filepath.Join(t.TempDir(), "nope.txt"))
	assert.ErrorIs(t, err, common.ErrFileNotFound)
}

func TestExtractText_RejectsUnknownExtension(t *testing.T) {
	parser := newTestParser(t, nil)
	path := writeTempFile(t, "resume.odt", "irrelevant")
	_, err := parser.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestExtractText_DOCXParagraphs(t *testing.T) {
	parser := newTestParser(t, nil)
	path := writeTempDOCX(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t>Senior Engineer at </w:t></w:r><w:r><w:t>Example Corp</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := parser.ExtractText(context.Background(), path)
	require.NoError(t, err)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Jane Doe", lines[0])
	assert.Equal(t, "Senior Engineer at Example Corp", lines[1])
}

func TestExtractText_DOCXWithoutDocumentXML(t *testing.T) {
	parser := newTestParser(t, nil)
	path := filepath.Join(t.TempDir(), "resume.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	entry, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	_, err = parser.ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
}

func TestParseCV_DerivesContactFields(t *testing.T) {
	parser := newTestParser(t, nil)
	path := writeTempFile(t, "resume.txt", "Jane Doe\njane.doe@example.com\nPhone: +61 400 123 456")

	record, err := parser.ParseCV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "resume.txt", record.Filename)
	assert.Equal(t, "jane.doe@example.com", record.Email)
	assert.Contains(t, record.Phone, "400 123 456")
	assert.Contains(t, record.RawText, "Jane Doe")
}

type fixedProvider struct {
	response string
}

func (p *fixedProvider) GenerateContent(ctx context.Context, req *interfaces.CompletionRequest) (string, error) {
	return p.response, nil
}
func (p *fixedProvider) Name() string { return "fixed" }
func (p *fixedProvider) Close() error { return nil }

func TestParseCV_EnrichmentOnlyAugments(t *testing.T) {
	provider := &fixedProvider{response: "name: Jane Doe\nskills: Go, SQL, Kubernetes"}
	parser := newTestParser(t, provider)
	path := writeTempFile(t, "resume.txt", "Jane Doe\njane@example.com")

	record, err := parser.ParseCV(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", record.Name)
	assert.Equal(t, []string{"Go", "SQL", "Kubernetes"}, record.Skills)
	// Raw extraction stays authoritative regardless of the model output.
	assert.Equal(t, "resume.txt", record.Filename)
	assert.Equal(t, "jane@example.com", record.Email)
	assert.Contains(t, record.RawText, "Jane Doe")
}

func TestPrepareCV_MemoisesByAbsolutePath(t *testing.T) {
	parser := newTestParser(t, nil)
	path := writeTempFile(t, "resume.txt", "original content with jane@example.com")

	absPath, first, err := parser.PrepareCV(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(absPath))

	// Rewriting the file must not invalidate the cached record.
	require.NoError(t, os.WriteFile(path, []byte("changed"), 0644))

	_, second, err := parser.PrepareCV(context.Background(), path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Contains(t, second.RawText, "original content")
}

func TestValidateForUpload_SizeBoundaryInclusive(t *testing.T) {
	parser := newTestParser(t, nil)

	atLimit := writeTempFile(t, "at-limit.txt", strings.Repeat("a", 1024))
	assert.NoError(t, parser.ValidateForUpload(atLimit))

	overLimit := writeTempFile(t, "over-limit.txt", strings.Repeat("a", 1025))
	assert.ErrorIs(t, parser.ValidateForUpload(overLimit), common.ErrFileTooLarge)
}

func TestValidateForUpload_RejectsEmptyAndMissing(t *testing.T) {
	parser := newTestParser(t, nil)

	empty := writeTempFile(t, "empty.txt", "")
	assert.ErrorIs(t, parser.ValidateForUpload(empty), common.ErrFileUnreadable)

	missing := filepath.Join(t.TempDir(), "missing.txt")
	assert.ErrorIs(t, parser.ValidateForUpload(missing), common.ErrFileNotFound)
}

func TestValidateForUpload_RejectsMislabelledPDF(t *testing.T) {
	parser := newTestParser(t, nil)
	fake := writeTempFile(t, "resume.pdf", "this is not a pdf")
	assert.ErrorIs(t, parser.ValidateForUpload(fake), common.ErrUnsupportedFormat)
}
