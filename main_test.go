package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/boleta58/convert"
	"github.com/ByLCY/boleta58/pdftext"
	"github.com/ByLCY/boleta58/receipt"
)

const sampleText = `Panadería El Trigo
Av. Los Olivos 123 - Lima
RUC: 20123456789
EB01 - 45
Cantidad Unidad Medida Código Descripción Valor Unitario
2.00 UND E001 Pan francés 0.50
Sub Total Ventas: 1.00
Importe Total: 1.00`

func TestRunTextModeWritesAllOutputs(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "boleta.txt")
	require.NoError(t, os.WriteFile(in, []byte(sampleText), 0o644))

	opts := runOptions{
		input:       in,
		output:      filepath.Join(dir, "out", "boleta_58mm.pdf"),
		debugPath:   filepath.Join(dir, "debug", "layout.json"),
		receiptPath: filepath.Join(dir, "debug", "receipt.json"),
		textMode:    true,
	}
	conv := convert.New(pdftext.New(nil))
	require.NoError(t, run(context.Background(), conv, opts))

	pdfBytes, err := os.ReadFile(opts.output)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdfBytes, []byte("%PDF")))

	raw, err := os.ReadFile(opts.receiptPath)
	require.NoError(t, err)
	var rec receipt.Receipt
	require.NoError(t, json.Unmarshal(raw, &rec))
	assert.Equal(t, "20123456789", rec.TaxID)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "0.50", rec.Items[0].UnitPrice)

	_, err = os.Stat(opts.debugPath)
	assert.NoError(t, err)
}

func TestRunReportsExtractionFailure(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "not.pdf")
	require.NoError(t, os.WriteFile(in, []byte("plain bytes"), 0o644))

	err := run(context.Background(), convert.New(pdftext.New(nil)), runOptions{
		input:  in,
		output: filepath.Join(dir, "out.pdf"),
	})
	require.Error(t, err)
	assert.Equal(t, convert.PhaseExtraction, convert.PhaseOf(err))
	_, statErr := os.Stat(filepath.Join(dir, "out.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingInput(t *testing.T) {
	err := run(context.Background(), convert.New(pdftext.New(nil)), runOptions{
		input:  filepath.Join(t.TempDir(), "missing.pdf"),
		output: "unused.pdf",
	})
	assert.Error(t, err)
}
