package schema

import (
	"github.com/jrazmi/devcamper/core/repositories/bootcampsrepo"
	"github.com/jrazmi/devcamper/core/repositories/coursesrepo"
	"github.com/jrazmi/devcamper/core/repositories/usersrepo"
	"github.com/jrazmi/devcamper/infrastructure/docstore"
)

// Collections returns the schema of every stored collection.
func Collections() []docstore.Schema {
	return []docstore.Schema{
		usersrepo.Schema,
		bootcampsrepo.Schema,
		coursesrepo.Schema,
	}
}
