package main

import (
	"os"
	"path/filepath"
	"testing"

	"orderdesk/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterFrom(t *testing.T) {
	testCases := []struct {
		desc    string
		status  string
		query   string
		want    entity.OrderFilter
		wantErr error
	}{
		{desc: "Empty", want: entity.OrderFilter{}},
		{desc: "All", status: "ALL", query: " ducky ", want: entity.OrderFilter{Query: "ducky"}},
		{desc: "Shipped", status: "Shipped", want: entity.OrderFilter{Status: entity.StatusShipped}},
		{desc: "Unknown", status: "lost", wantErr: entity.ErrInvalidStatus},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := filterFrom(tc.status, tc.query)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	const name = "isopod_orders_2025-03-14.xlsx"

	assert.Equal(t, name, outputPath("", name))
	assert.Equal(t, filepath.Join(dir, name), outputPath(dir, name))

	file := filepath.Join(dir, "orders.xlsx")
	assert.Equal(t, file, outputPath(file, name))

	_, err := os.Stat(file)
	assert.True(t, os.IsNotExist(err))
}
