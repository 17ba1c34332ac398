package sqlite

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/goserg/eventhub/internal/storage"
	"github.com/goserg/eventhub/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	suite.Run(t, &storagetest.Suite{
		Open: func() storage.Storage {
			s, err := New(l, filepath.Join(t.TempDir(), "eventhub.sqlite"))
			require.NoError(t, err)
			return s
		},
	})
}
