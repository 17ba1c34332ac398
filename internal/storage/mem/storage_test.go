package mem

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/goserg/eventhub/internal/storage"
	"github.com/goserg/eventhub/internal/storage/storagetest"
)

func TestStorage(t *testing.T) {
	suite.Run(t, &storagetest.Suite{
		Open: func() storage.Storage { return New() },
	})
}
