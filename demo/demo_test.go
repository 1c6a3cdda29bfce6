package demo

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/bradleyjkemp/cupaloy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clientsdb/report"
	"clientsdb/storage"
	"clientsdb/storage/memory"
)

func TestRunDemo(t *testing.T) {
	var out bytes.Buffer
	registry := memory.New()

	require.NoError(t, Run(context.Background(), registry, report.NewPrinter(&out, report.FormatTuple)))

	cupaloy.SnapshotT(t, out.String())
}

func TestRunDemoTwiceFailsOnDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	registry := memory.New()
	printer := report.NewPrinter(&bytes.Buffer{}, report.FormatTuple)

	require.NoError(t, Run(ctx, registry, printer))

	err := Run(ctx, registry, printer)
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
}

type failingPrinter struct{}

func (failingPrinter) PrintBlock([]storage.ClientPhone) error {
	return errors.New("stdout closed")
}

func TestRunDemoStopsOnPrintError(t *testing.T) {
	err := Run(context.Background(), memory.New(), failingPrinter{})
	assert.EqualError(t, err, "stdout closed")
}
