package mongostore_test

import (
	"context"
	"os"
	"testing"

	"github.com/jrazmi/devcamper/infrastructure/docstore/docstoretest"
	"github.com/jrazmi/devcamper/infrastructure/docstore/mongostore"
	"github.com/jrazmi/devcamper/infrastructure/mongodb"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestMongoConformance(t *testing.T) {
	if os.Getenv("DEVCAMPER_INTEGRATION") != "1" {
		t.Skip("set DEVCAMPER_INTEGRATION=1 to run against a mongo container")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017")
	require.NoError(t, err)

	mdb, err := mongodb.New(mongodb.Options{
		URI:      "mongodb://" + host + ":" + port.Port(),
		Database: "devcamper_test",
	})
	require.NoError(t, err)

	db := mongostore.New(mdb, docstoretest.Items, docstoretest.Notes)
	t.Cleanup(func() { _ = db.Close(ctx) })

	docstoretest.Run(t, db)
	require.NoError(t, db.Drop(ctx))
}
