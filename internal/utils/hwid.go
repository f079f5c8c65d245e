package utils

import (
	"github.com/denisbrodbeck/machineid"
)

// HWID is a stable, app-scoped hardware identifier used to tell apart
// clients of the same user in server logs. Falls back to "unknown" on
// platforms where no machine id is available.
var HWID = func() string {
	id, err := machineid.ProtectedID("drivebox")
	if err != nil {
		return "unknown"
	}
	return id
}()
