package keeper

import (
	"context"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/cryptkeeper/internal/models"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newRecord(i int) *models.Record {
	key := make([]byte, 32)
	nonce := make([]byte, 12)
	key[0], nonce[0] = byte(i), byte(i)
	return &models.Record{
		ID:        fmt.Sprintf("00000000-0000-4000-8000-%012d", i),
		Key:       key,
		Nonce:     nonce,
		FileName:  fmt.Sprintf("file%d", i),
		Extension: ".txt",
		FullPath:  fmt.Sprintf("/home/u/docs/file%d.txt", i),
	}
}
