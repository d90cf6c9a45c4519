package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func docxBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func wordBody(inner string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + inner + `</w:body></w:document>`
}

func TestSupported(t *testing.T) {
	for _, ext := range []string{".txt", "md", ".PDF", ".docx", "xlsx"} {
		assert.True(t, Supported(ext), ext)
	}
	for _, ext := range []string{".exe", "", ".pptx"} {
		assert.False(t, Supported(ext), ext)
	}
}

func TestFromBytes_plain(t *testing.T) {
	got, err := FromBytes([]byte("  call the dentist tomorrow\n"), ".txt")
	require.NoError(t, err)
	assert.Equal(t, "call the dentist tomorrow", got)
}

func TestFromBytes_plainInvalidUTF8(t *testing.T) {
	got, err := FromBytes([]byte("hello\x80world"), ".md")
	require.NoError(t, err)
	assert.Equal(t, "hello\uFFFDworld", got)
}

func TestFromBytes_unsupported(t *testing.T) {
	_, err := FromBytes([]byte("x"), ".bin")
	assert.True(t, errors.Is(err, ErrUnsupported))
}

func TestFromBytes_docxParagraphs(t *testing.T) {
	content := docxBytes(t, map[string]string{
		"word/document.xml": wordBody(`<w:p w:rsidR="00A1"><w:r><w:t>Plan the</w:t></w:r><w:r><w:t xml:space="preserve"> garden</w:t></w:r></w:p><w:p><w:r><w:t>Buy seeds</w:t></w:r></w:p>`),
	})
	got, err := FromBytes(content, ".docx")
	require.NoError(t, err)
	assert.Equal(t, "Plan the garden\nBuy seeds", got)
}

func TestFromBytes_docxContentTypesOverride(t *testing.T) {
	content := docxBytes(t, map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document2.xml"/>
</Types>`,
		"word/document2.xml": wordBody(`<w:p><w:r><w:t>from document2</w:t></w:r></w:p>`),
	})
	got, err := FromBytes(content, ".docx")
	require.NoError(t, err)
	assert.Equal(t, "from document2", got)
}

func TestFromBytes_docxNotZip(t *testing.T) {
	_, err := FromBytes([]byte("plain"), ".docx")
	assert.Error(t, err)
}

func TestFromBytes_docxMissingBody(t *testing.T) {
	content := docxBytes(t, map[string]string{"other.xml": "<x/>"})
	_, err := FromBytes(content, ".docx")
	assert.Error(t, err)
}

func TestFromBytes_sheet(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Reading list"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "Dune"))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", "Herbert"))
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)

	got, err := FromBytes(buf.Bytes(), ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, "Reading list\nDune Herbert", got)
}

func TestFromBytes_pdfInvalid(t *testing.T) {
	_, err := FromBytes([]byte("not a pdf"), ".pdf")
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte("# idea\nwhat if notes grouped themselves"), 0o644))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# idea\nwhat if notes grouped themselves", got)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
