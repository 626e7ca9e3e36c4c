package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSVQuotesEveryField(t *testing.T) {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	updated := time.Date(2025, 4, 1, 17, 45, 12, 0, time.UTC)
	products := []ProductView{
		{
			ID: 3, Code: "P3", Name: `Widget "Pro"`, BrandName: "Acme",
			PriceVnd: 15000, Stock: 7, Status: 1, Description: "mô tả, có dấu phẩy",
			CreatedAt: created, UpdatedAt: updated,
		},
	}

	var b strings.Builder
	require.NoError(t, WriteCSV(&b, products))

	lines := strings.Split(strings.TrimRight(b.String(), "\r\n"), "\r\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"Id","Code","Name","Brand","PriceVnd","Stock","Status","Description","CreateDate","LastUpdate"`, lines[0])
	assert.Equal(t, `"3","P3","Widget ""Pro""","Acme","15000","7","1","mô tả, có dấu phẩy","2025-03-14 09:30:00","2025-04-01 17:45:12"`, lines[1])
}

func TestWriteCSVEmptyList(t *testing.T) {
	var b strings.Builder
	require.NoError(t, WriteCSV(&b, nil))
	assert.Equal(t, `"Id","Code","Name","Brand","PriceVnd","Stock","Status","Description","CreateDate","LastUpdate"`+"\r\n", b.String())
}
