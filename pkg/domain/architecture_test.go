package domain

import (
	"testing"

	"budgetcore/testutil"
)

// The domain layer is imported by every adapter; it must not depend on any of
// them or on the storage clients they wrap.
func TestDomainImportBoundaries(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".",
		testutil.AnyOf(testutil.InternalImportForbidden, testutil.StorageDriverForbidden),
		"pkg/domain must stay free of internal packages and storage drivers")
}
